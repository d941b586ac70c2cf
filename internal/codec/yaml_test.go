package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestYAMLCodec_RoundTrip(t *testing.T) {
	c := NewYAML()
	entities := []map[string]any{
		{"id": "1", "name": "alice", "active": true, "missing": nil},
	}
	got := roundTrip(t, c, entities)
	require.Equal(t, entities, got)
}

func TestYAMLCodec_EmptyCollection(t *testing.T) {
	c := NewYAML()
	got := roundTrip(t, c, nil)
	require.Empty(t, got)
}
