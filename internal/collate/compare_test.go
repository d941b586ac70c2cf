package collate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_NilAlwaysLast(t *testing.T) {
	c := New("")
	assert.Equal(t, -1, c.Compare("a", nil))
	assert.Equal(t, 1, c.Compare(nil, "a"))
	assert.Equal(t, 0, c.Compare(nil, nil))
}

func TestCompare_Strings(t *testing.T) {
	c := New("en")
	assert.Less(t, c.Compare("apple", "banana"), 0)
	assert.Greater(t, c.Compare("banana", "apple"), 0)
	assert.Equal(t, 0, c.Compare("same", "same"))
}

func TestCompare_Numbers(t *testing.T) {
	c := New("")
	assert.Less(t, c.Compare(1, 2.5), 0)
	assert.Greater(t, c.Compare(int64(10), int32(3)), 0)
}

func TestCompare_Bools(t *testing.T) {
	c := New("")
	assert.Less(t, c.Compare(false, true), 0)
}

func TestCompare_Times(t *testing.T) {
	c := New("")
	now := time.Unix(1000, 0)
	later := time.Unix(2000, 0)
	assert.Less(t, c.Compare(now, later), 0)
}

func TestSortLess_DirectionIgnoredForNil(t *testing.T) {
	c := New("")
	require.True(t, c.SortLess("x", nil, Desc))
	require.False(t, c.SortLess(nil, "x", Desc))
}

func TestStableSort_NullsLastBothDirections(t *testing.T) {
	c := New("")
	items := []map[string]any{
		{"id": "1", "n": nil},
		{"id": "2", "n": 3},
		{"id": "3", "n": 1},
	}
	get := func(e map[string]any) any { return e["n"] }

	c.StableSort(items, []Key{{Get: get, Direction: Asc}})
	require.Equal(t, "3", items[0]["id"])
	require.Equal(t, "2", items[1]["id"])
	require.Equal(t, "1", items[2]["id"])

	items = []map[string]any{
		{"id": "1", "n": nil},
		{"id": "2", "n": 3},
		{"id": "3", "n": 1},
	}
	c.StableSort(items, []Key{{Get: get, Direction: Desc}})
	require.Equal(t, "2", items[0]["id"])
	require.Equal(t, "3", items[1]["id"])
	require.Equal(t, "1", items[2]["id"])
}
