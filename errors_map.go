package inkwell

import (
	"errors"

	"github.com/inkwell-db/inkwell/internal/crud"
	"github.com/inkwell-db/inkwell/internal/persistence"
	"github.com/inkwell-db/inkwell/internal/plugin"
	"github.com/inkwell-db/inkwell/internal/query"
	"github.com/inkwell-db/inkwell/internal/txn"
)

// mapCRUDError translates internal/crud's local error types into the
// single *Error shape callers of this package see, preserving collection,
// id, and wrapped cause. Returns nil for a nil err, and wraps anything of
// an unrecognized concrete type as an OperationError so no crud failure
// ever escapes unmapped.
func mapCRUDError(err error) error {
	if err == nil {
		return nil
	}
	var (
		valErr *crud.ValidationError
		nfErr  *crud.NotFoundError
		dupErr *crud.DuplicateKeyError
		fkErr  *crud.ForeignKeyError
		opErr  *crud.OperationError
	)
	switch {
	case errors.As(err, &valErr):
		return ValidationError(valErr.Collection, valErr.Message, valErr.Cause)
	case errors.As(err, &nfErr):
		return NotFoundError(nfErr.Collection, nfErr.ID)
	case errors.As(err, &dupErr):
		return DuplicateKeyError(dupErr.Collection, dupErr.ID, dupErr.Message)
	case errors.As(err, &fkErr):
		return ForeignKeyError(fkErr.Collection, fkErr.Message)
	case errors.As(err, &opErr):
		return OperationError(opErr.Collection, opErr.Message, opErr.Cause)
	default:
		return OperationError("", "unrecognized crud error", err)
	}
}

// mapQueryError translates internal/query's local error types (currently
// just a dangling populate reference) into *Error.
func mapQueryError(err error) error {
	if err == nil {
		return nil
	}
	var danglingErr *query.DanglingReferenceError
	if errors.As(err, &danglingErr) {
		return DanglingReferenceError(danglingErr.Collection, danglingErr.Field, danglingErr.ID)
	}
	return OperationError("", "unrecognized query error", err)
}

// mapPersistenceError translates internal/persistence's local error types
// into *Error (spec.md §7's load/save error table).
func mapPersistenceError(err error) error {
	if err == nil {
		return nil
	}
	var (
		migErr    *persistence.MigrationError
		serErr    *persistence.SerializationError
		unsupErr  *persistence.UnsupportedFormatError
	)
	switch {
	case errors.As(err, &migErr):
		return MigrationError(migErr.Collection, MigrationReason(migErr.Reason), migErr.Step, migErr.Err)
	case errors.As(err, &serErr):
		return SerializationError(serErr.Path, serErr.Err)
	case errors.As(err, &unsupErr):
		return UnsupportedFormatError(unsupErr.Extension)
	default:
		return SerializationError("unrecognized persistence error", err)
	}
}

// mapPluginError translates internal/plugin's *Error into the root
// package's *Error. plugin.Reason carries two values beyond the root
// PluginReason's closed six (initialize_failed, shutdown_failed); both are
// passed through as-is since Error.Reason is a plain string field.
func mapPluginError(err error) error {
	if err == nil {
		return nil
	}
	var pErr *plugin.Error
	if errors.As(err, &pErr) {
		e := PluginError(PluginReason(pErr.Reason), pErr.Message)
		e.Err = pErr.Err
		return e
	}
	return PluginError("", err.Error())
}

// mapTxnError translates a *txn.Error (the only error Manager.Run ever
// returns) into a TransactionError wrapping its original cause, which may
// itself need further mapping (a crud/query error raised from inside the
// transaction body).
func mapTxnError(err error) error {
	if err == nil {
		return nil
	}
	var txErr *txn.Error
	if errors.As(err, &txErr) {
		return TransactionError(txErr.Unwrap())
	}
	return TransactionError(err)
}
