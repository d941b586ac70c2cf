package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldValue_NestedPath(t *testing.T) {
	e := map[string]any{"a": map[string]any{"b": map[string]any{"c": 5}}}
	v, ok := FieldValue(e, "a.b.c")
	assert.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestFieldValue_MissingParentSkipsWithoutError(t *testing.T) {
	e := map[string]any{"a": map[string]any{}}
	_, ok := FieldValue(e, "a.b.c")
	assert.False(t, ok)
}

func TestFieldValue_TopLevel(t *testing.T) {
	e := map[string]any{"name": "alice"}
	v, ok := FieldValue(e, "name")
	assert.True(t, ok)
	assert.Equal(t, "alice", v)
}

func TestFieldValue_PresentNull(t *testing.T) {
	e := map[string]any{"deleted_at": nil}
	v, ok := FieldValue(e, "deleted_at")
	assert.True(t, ok)
	assert.Nil(t, v)
}
