// Package storage implements the narrow storage adapter (spec.md §4.2):
// { read(path), write(path, text), exists(path) } over either a real
// filesystem or an in-memory map used for tests.
package storage

import "context"

// Adapter is the storage boundary the persistence engine talks to. Every
// method takes a context so a caller-imposed timeout/cancellation can cut
// off a slow or stuck I/O call.
type Adapter interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
}
