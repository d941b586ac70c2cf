package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_InsertGetAll(t *testing.T) {
	s := NewStore(nil, nil)
	s.Insert("1", map[string]any{"id": "1", "name": "alice"})
	s.Insert("2", map[string]any{"id": "2", "name": "bob"})

	e, ok := s.Get("1")
	require.True(t, ok)
	assert.Equal(t, "alice", e["name"])

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "1", all[0]["id"])
	assert.Equal(t, "2", all[1]["id"])
}

func TestStore_SecondaryIndexLookup(t *testing.T) {
	spec := IndexSpec{Name: "by_status", Fields: []string{"status"}}
	s := NewStore([]IndexSpec{spec}, nil)
	s.Insert("1", map[string]any{"id": "1", "status": "open"})
	s.Insert("2", map[string]any{"id": "2", "status": "open"})
	s.Insert("3", map[string]any{"id": "3", "status": "closed"})

	ix := s.Index("by_status")
	require.NotNil(t, ix)
	ids := ix.LookupValue("open", true)
	assert.Len(t, ids, 2)
	assert.True(t, ids["1"])
	assert.True(t, ids["2"])
}

func TestStore_NullVsAbsentDistinctKeys(t *testing.T) {
	spec := IndexSpec{Name: "by_parent", Fields: []string{"parent_id"}}
	s := NewStore([]IndexSpec{spec}, nil)
	s.Insert("1", map[string]any{"id": "1", "parent_id": nil})
	s.Insert("2", map[string]any{"id": "2"})

	ix := s.Index("by_parent")
	nullIDs := ix.LookupValue(nil, true)
	absentIDs := ix.LookupValue(nil, false)
	assert.True(t, nullIDs["1"])
	assert.False(t, nullIDs["2"])
	assert.True(t, absentIDs["2"])
	assert.False(t, absentIDs["1"])
}

func TestStore_UpdateOnlyTouchesChangedFieldIndexes(t *testing.T) {
	spec := IndexSpec{Name: "by_status", Fields: []string{"status"}}
	s := NewStore([]IndexSpec{spec}, nil)
	old := map[string]any{"id": "1", "status": "open", "title": "a"}
	s.Insert("1", old)

	updated := map[string]any{"id": "1", "status": "open", "title": "b"}
	s.Update("1", old, updated)

	ix := s.Index("by_status")
	ids := ix.LookupValue("open", true)
	assert.True(t, ids["1"])

	e, _ := s.Get("1")
	assert.Equal(t, "b", e["title"])
}

func TestStore_UpdateMovesIndexEntryOnFieldChange(t *testing.T) {
	spec := IndexSpec{Name: "by_status", Fields: []string{"status"}}
	s := NewStore([]IndexSpec{spec}, nil)
	old := map[string]any{"id": "1", "status": "open"}
	s.Insert("1", old)

	updated := map[string]any{"id": "1", "status": "closed"}
	s.Update("1", old, updated)

	ix := s.Index("by_status")
	assert.Empty(t, ix.LookupValue("open", true))
	assert.True(t, ix.LookupValue("closed", true)["1"])
}

func TestStore_Delete(t *testing.T) {
	spec := IndexSpec{Name: "by_status", Fields: []string{"status"}}
	s := NewStore([]IndexSpec{spec}, nil)
	s.Insert("1", map[string]any{"id": "1", "status": "open"})
	s.Delete("1")

	_, ok := s.Get("1")
	assert.False(t, ok)
	assert.Empty(t, s.All())
	assert.Empty(t, s.Index("by_status").LookupValue("open", true))
}

func TestStore_CompoundIndex(t *testing.T) {
	spec := IndexSpec{Name: "by_project_status", Fields: []string{"project_id", "status"}}
	s := NewStore([]IndexSpec{spec}, nil)
	s.Insert("1", map[string]any{"id": "1", "project_id": "p1", "status": "open"})
	s.Insert("2", map[string]any{"id": "2", "project_id": "p1", "status": "closed"})

	ix := s.Index("by_project_status")
	ids := ix.LookupEqual(map[string]any{"project_id": "p1", "status": "open"})
	require.Len(t, ids, 1)
	assert.True(t, ids["1"])
}

func TestStore_RangeLookup(t *testing.T) {
	spec := IndexSpec{Name: "by_priority", Fields: []string{"priority"}}
	s := NewStore([]IndexSpec{spec}, nil)
	s.Insert("1", map[string]any{"id": "1", "priority": float64(1)})
	s.Insert("2", map[string]any{"id": "2", "priority": float64(2)})
	s.Insert("3", map[string]any{"id": "3", "priority": float64(3)})

	less := func(a, b any) bool { return a.(float64) < b.(float64) }
	ix := s.Index("by_priority")
	ids := ix.LookupRange(RangeGT, float64(1), less)
	assert.Len(t, ids, 2)
	assert.True(t, ids["2"])
	assert.True(t, ids["3"])
}

func TestStore_SearchIndex(t *testing.T) {
	s := NewStore(nil, []string{"title"})
	s.Insert("1", map[string]any{"id": "1", "title": "Fix login bug"})
	s.Insert("2", map[string]any{"id": "2", "title": "Add login page"})
	s.Insert("3", map[string]any{"id": "3", "title": "Unrelated"})

	matches := s.Search().Query("log")
	assert.Len(t, matches, 2)
	assert.Contains(t, matches, "1")
	assert.Contains(t, matches, "2")
}

func TestStore_SearchIndexExactVsPrefix(t *testing.T) {
	s := NewStore(nil, []string{"title"})
	s.Insert("1", map[string]any{"id": "1", "title": "login"})
	s.Insert("2", map[string]any{"id": "2", "title": "logins"})

	matches := s.Search().Query("login")
	require.Contains(t, matches, "1")
	require.Contains(t, matches, "2")
	assert.Equal(t, 1, matches["1"].ExactTokens)
	assert.Equal(t, 1, matches["2"].PrefixTokens)
}
