package inkwell

import (
	"github.com/inkwell-db/inkwell/internal/txn"
)

// Tx is the transaction-scoped handle a Database.Transaction body receives
// (spec.md §4.8): the same Collection API as the live database, bound
// instead to that transaction's scratch copy of every collection's store.
type Tx struct {
	session *txn.Session
}

// Collection returns a handle bound to the transaction's scratch copy of
// name, or a NotFoundError-shaped *Error if no such collection exists.
func (tx *Tx) Collection(name string) (*CollectionHandle, error) {
	c, ok := tx.session.Collections.Get(name)
	if !ok {
		return nil, &Error{Kind: KindNotFound, Collection: name, Message: "no such collection"}
	}
	return &CollectionHandle{coll: c, engine: tx.session.Engine, pipeline: tx.session.Pipeline}, nil
}
