package crud

import "fmt"

// These mirror inkwell.Kind/inkwell.Error's discriminators (spec.md §4.7.1)
// without importing the root package, which would create an import cycle;
// the facade maps each of these onto the corresponding *inkwell.Error
// constructor at the package boundary.

type ValidationError struct {
	Collection string
	Message    string
	Cause      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("crud: validation: collection=%s: %s", e.Collection, e.Message)
}
func (e *ValidationError) Unwrap() error { return e.Cause }

type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("crud: not found: collection=%s id=%s", e.Collection, e.ID)
}

type DuplicateKeyError struct {
	Collection string
	ID         string
	Message    string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("crud: duplicate key: collection=%s id=%s: %s", e.Collection, e.ID, e.Message)
}

type ForeignKeyError struct {
	Collection string
	Message    string
}

func (e *ForeignKeyError) Error() string {
	return fmt.Sprintf("crud: foreign key: collection=%s: %s", e.Collection, e.Message)
}

type OperationError struct {
	Collection string
	Message    string
	Cause      error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("crud: operation: collection=%s: %s", e.Collection, e.Message)
}
func (e *OperationError) Unwrap() error { return e.Cause }
