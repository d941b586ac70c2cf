package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTOMLCodec_StripsNullOnEncode(t *testing.T) {
	c := NewTOML()
	entities := []map[string]any{
		{"id": "1", "name": "alice", "deleted_at": nil},
	}
	got := roundTrip(t, c, entities)
	require.Len(t, got, 1)
	require.Equal(t, "1", got[0]["id"])
	require.Equal(t, "alice", got[0]["name"])
	_, present := got[0]["deleted_at"]
	require.False(t, present, "TOML codec must strip null fields on encode")
}

func TestTOMLCodec_EmptyCollection(t *testing.T) {
	c := NewTOML()
	got := roundTrip(t, c, nil)
	require.Empty(t, got)
}
