// Package codec implements the serialization layer: a registry mapping file
// extensions to encode/decode pairs over whole-collection snapshots
// (spec.md §4.1). Each collection's backing file is one array of entities;
// codecs only ever see that shape.
//
// Codecs return plain errors; the facade at the module root wraps lookup
// misses and codec failures into *inkwell.Error (UnsupportedFormatError,
// SerializationError) so this package stays free of a dependency on the
// root package.
package codec

import (
	"log/slog"
	"strings"
	"sync"
)

// Codec mediates between a collection's in-memory entity slice and its
// on-disk text representation. Encode/Decode must be total functions over
// the codec's documented value domain (spec.md §7 "Codec contract"):
// Decode(Encode(v)) == v, modulo each codec's own documented null handling.
type Codec interface {
	Name() string
	Extensions() []string
	Encode(entities []map[string]any) ([]byte, error)
	Decode(data []byte) ([]map[string]any, error)
}

// Registry is an extension -> Codec lookup table. Multiple codecs may share
// a Name; extensions are the actual lookup key and are normalized to
// lower-case without a leading dot.
type Registry struct {
	mu     sync.RWMutex
	byExt  map[string]Codec
	logger *slog.Logger
}

// NewRegistry builds an empty registry. Pass a logger for the duplicate-
// extension warning log; nil uses slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{byExt: make(map[string]Codec), logger: logger}
}

// NewDefaultRegistry builds a registry with all built-in codecs registered:
// JSON, YAML, TOML, JSONL, TOON, and prose.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(NewJSON())
	r.Register(NewYAML())
	r.Register(NewTOML())
	r.Register(NewJSONL())
	r.Register(NewTOON())
	r.Register(NewProse(DefaultProseOptions()))
	return r
}

// normalizeExt lower-cases an extension and strips a leading dot.
func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	return strings.TrimPrefix(ext, ".")
}

// Register installs a codec under every extension it declares. On a
// duplicate extension, the newly-registered codec wins and a warning is
// logged naming both codecs (spec.md §4.1).
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range c.Extensions() {
		ext = normalizeExt(ext)
		if existing, ok := r.byExt[ext]; ok {
			r.logger.Warn("codec overwrote existing extension registration",
				"extension", ext, "previous_codec", existing.Name(), "new_codec", c.Name())
		}
		r.byExt[ext] = c
	}
}

// Lookup returns the codec registered for ext, or ok=false if none was ever
// registered for it.
func (r *Registry) Lookup(ext string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byExt[normalizeExt(ext)]
	return c, ok
}
