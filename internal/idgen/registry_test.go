package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_BuiltinsRegistered(t *testing.T) {
	r := NewRegistry()

	h, ok := r.Lookup("hash")
	require.True(t, ok)
	assert.Equal(t, "hash", h.Name())

	u, ok := r.Lookup("uuid")
	require.True(t, ok)
	assert.Equal(t, "uuid", u.Name())

	assert.Same(t, h, r.Default())
}

func TestRegistry_LookupMiss(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("does-not-exist")
	assert.False(t, ok)
}

type stubGenerator struct{ name string }

func (s *stubGenerator) Name() string     { return s.name }
func (s *stubGenerator) Generate() string { return "stub-id" }

func TestRegistry_PluginOverride(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubGenerator{name: "hash"})
	g, ok := r.Lookup("hash")
	require.True(t, ok)
	assert.Equal(t, "stub-id", g.Generate())
}

func TestRegistry_SetDefaultSwitchesDefaultGenerator(t *testing.T) {
	r := NewRegistry()
	u, _ := r.Lookup("uuid")

	r.SetDefault("uuid")
	assert.Same(t, u, r.Default())
}

func TestRegistry_SetDefaultIgnoresUnregisteredName(t *testing.T) {
	r := NewRegistry()
	h := r.Default()

	r.SetDefault("does-not-exist")
	assert.Same(t, h, r.Default())
}
