package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONLCodec_RoundTrip(t *testing.T) {
	c := NewJSONL()
	entities := []map[string]any{
		{"id": "1", "name": "alice"},
		{"id": "2", "name": "bob", "deleted": nil},
	}
	got := roundTrip(t, c, entities)
	require.Equal(t, entities, got)
}

func TestJSONLCodec_SkipsBlankLines(t *testing.T) {
	c := NewJSONL()
	got, err := c.Decode([]byte("{\"id\":\"1\"}\n\n{\"id\":\"2\"}\n"))
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestJSONLCodec_MalformedLineReportsLineNumber(t *testing.T) {
	c := NewJSONL()
	_, err := c.Decode([]byte("{\"id\":\"1\"}\nnot-json\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
}
