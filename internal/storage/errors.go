package storage

import "errors"

// ErrNotExist is returned (wrapped) by Read when the path has never been
// written. Callers distinguish "no file yet" (fine for a brand-new
// collection) from other I/O failures via errors.Is(err, ErrNotExist).
var ErrNotExist = errors.New("storage: path does not exist")
