package crud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPatch_DirectValueIsImplicitSet(t *testing.T) {
	current := map[string]any{"name": "Alice", "age": 30}
	merged, err := ApplyPatch("users", current, map[string]any{"name": "Alicia"})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", merged["name"])
	assert.Equal(t, 30, merged["age"])
}

func TestApplyPatch_SetOperatorReplacesSubtree(t *testing.T) {
	current := map[string]any{"profile": map[string]any{"bio": "old", "avatar": "a.png"}}
	merged, err := ApplyPatch("users", current, map[string]any{
		"profile": map[string]any{"$set": map[string]any{"bio": "new"}},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"bio": "new"}, merged["profile"])
}

func TestApplyPatch_NestedObjectDeepMerges(t *testing.T) {
	current := map[string]any{"profile": map[string]any{"bio": "old", "avatar": "a.png"}}
	merged, err := ApplyPatch("users", current, map[string]any{
		"profile": map[string]any{"bio": "new"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"bio": "new", "avatar": "a.png"}, merged["profile"])
}

func TestApplyPatch_IncrementDecrementMultiply(t *testing.T) {
	current := map[string]any{"count": 10.0}

	incremented, err := ApplyPatch("stats", current, map[string]any{"count": map[string]any{"$increment": 5.0}})
	require.NoError(t, err)
	assert.Equal(t, 15.0, incremented["count"])

	decremented, err := ApplyPatch("stats", current, map[string]any{"count": map[string]any{"$decrement": 4.0}})
	require.NoError(t, err)
	assert.Equal(t, 6.0, decremented["count"])

	multiplied, err := ApplyPatch("stats", current, map[string]any{"count": map[string]any{"$multiply": 3.0}})
	require.NoError(t, err)
	assert.Equal(t, 30.0, multiplied["count"])
}

func TestApplyPatch_IncrementOnNonNumericFieldFails(t *testing.T) {
	current := map[string]any{"count": "not-a-number"}
	_, err := ApplyPatch("stats", current, map[string]any{"count": map[string]any{"$increment": 1.0}})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestApplyPatch_Toggle(t *testing.T) {
	current := map[string]any{"active": true}
	merged, err := ApplyPatch("users", current, map[string]any{"active": map[string]any{"$toggle": nil}})
	require.NoError(t, err)
	assert.Equal(t, false, merged["active"])
}

func TestApplyPatch_ToggleOnNonBoolFails(t *testing.T) {
	current := map[string]any{"active": "yes"}
	_, err := ApplyPatch("users", current, map[string]any{"active": map[string]any{"$toggle": nil}})
	require.Error(t, err)
}

func TestApplyPatch_AppendPrependOnArray(t *testing.T) {
	current := map[string]any{"tags": []any{"a", "b"}}

	appended, err := ApplyPatch("posts", current, map[string]any{"tags": map[string]any{"$append": "c"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, appended["tags"])

	prepended, err := ApplyPatch("posts", current, map[string]any{"tags": map[string]any{"$prepend": "z"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"z", "a", "b"}, prepended["tags"])
}

func TestApplyPatch_AppendOnNilFieldCreatesArray(t *testing.T) {
	current := map[string]any{}
	merged, err := ApplyPatch("posts", current, map[string]any{"tags": map[string]any{"$append": "first"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"first"}, merged["tags"])
}

func TestApplyPatch_AppendOnString(t *testing.T) {
	current := map[string]any{"note": "hello "}
	merged, err := ApplyPatch("posts", current, map[string]any{"note": map[string]any{"$append": "world"}})
	require.NoError(t, err)
	assert.Equal(t, "hello world", merged["note"])
}

func TestApplyPatch_RemoveFiltersMatchingElement(t *testing.T) {
	current := map[string]any{"tags": []any{"a", "b", "a"}}
	merged, err := ApplyPatch("posts", current, map[string]any{"tags": map[string]any{"$remove": "a"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"b"}, merged["tags"])
}

func TestApplyPatch_RemoveOnNonArrayFails(t *testing.T) {
	current := map[string]any{"tags": "not-an-array"}
	_, err := ApplyPatch("posts", current, map[string]any{"tags": map[string]any{"$remove": "a"}})
	require.Error(t, err)
}

func TestApplyPatch_UnknownOperatorKeyIsTreatedAsNestedMerge(t *testing.T) {
	// A map with more than one key, or a single key that isn't a recognized
	// operator, is not a sole-operator map, so it falls through to the
	// nested-object deep-merge path rather than erroring.
	current := map[string]any{"meta": map[string]any{"x": 1}}
	merged, err := ApplyPatch("posts", current, map[string]any{"meta": map[string]any{"y": 2}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1, "y": 2}, merged["meta"])
}

func TestApplyPatch_DoesNotMutateOriginalMap(t *testing.T) {
	current := map[string]any{"name": "Alice", "profile": map[string]any{"bio": "old"}}
	_, err := ApplyPatch("users", current, map[string]any{
		"name":    "Alicia",
		"profile": map[string]any{"bio": "new"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", current["name"])
	assert.Equal(t, "old", current["profile"].(map[string]any)["bio"])
}
