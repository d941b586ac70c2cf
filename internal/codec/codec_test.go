package codec

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.Register(NewJSON())

	c, ok := r.Lookup(".JSON")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	_, ok = r.Lookup("yaml")
	assert.False(t, ok)
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.Register(NewJSON())
	r.Register(NewProse(DefaultProseOptions())) // shares no extension, control case

	stub := &stubCodec{name: "custom", exts: []string{"json"}}
	r.Register(stub)

	c, ok := r.Lookup("json")
	require.True(t, ok)
	assert.Equal(t, "custom", c.Name())
}

type stubCodec struct {
	name string
	exts []string
}

func (s *stubCodec) Name() string         { return s.name }
func (s *stubCodec) Extensions() []string { return s.exts }
func (s *stubCodec) Encode(_ []map[string]any) ([]byte, error) { return nil, nil }
func (s *stubCodec) Decode(_ []byte) ([]map[string]any, error) { return nil, nil }

func TestNewDefaultRegistry_HasAllBuiltins(t *testing.T) {
	r := NewDefaultRegistry(nil)
	for _, ext := range []string{"json", "yaml", "yml", "toml", "jsonl", "ndjson", "toon", "prose", "txt"} {
		_, ok := r.Lookup(ext)
		assert.True(t, ok, "expected builtin codec for extension %q", ext)
	}
}
