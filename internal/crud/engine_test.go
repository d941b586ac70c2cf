package crud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/entity"
	"github.com/inkwell-db/inkwell/internal/idgen"
	"github.com/inkwell-db/inkwell/internal/query"
	"github.com/inkwell-db/inkwell/internal/reactive"
	"github.com/inkwell-db/inkwell/internal/schema"
)

type recordedEvent struct {
	collection string
	op         reactive.Operation
	id         string
}

type recordingBus struct {
	events []recordedEvent
}

func (b *recordingBus) Publish(ev reactive.Event) {
	b.events = append(b.events, recordedEvent{collection: ev.Collection, op: ev.Operation, id: ev.ID})
}

func newTestEngine(t *testing.T, cols ...*collection.Collection) (*Engine, *recordingBus, *[]string) {
	t.Helper()
	reg := collection.NewRegistry()
	for _, c := range cols {
		reg.Add(c)
	}
	ids := idgen.NewRegistry()
	pipeline := query.New(reg, nil, nil)
	bus := &recordingBus{}
	dirty := &[]string{}
	eng := New(reg, ids, pipeline, bus, nil, func(name string) { *dirty = append(*dirty, name) })
	return eng, bus, dirty
}

func usersCollection() *collection.Collection {
	sch := schema.NewMap([]schema.Fields{
		{Name: "name", Type: "string"},
		{Name: "email", Optional: true, Type: "string"},
	})
	return collection.New(collection.Config{
		Name:   "users",
		Schema: sch,
		Indexes: []entity.IndexSpec{
			{Name: "by_email", Fields: []string{"email"}, Unique: true},
		},
	})
}

func TestEngine_CreateAssignsGeneratedID(t *testing.T) {
	users := usersCollection()
	eng, bus, _ := newTestEngine(t, users)

	e, err := eng.Create("users", map[string]any{"name": "Alice"})
	require.NoError(t, err)
	assert.NotEmpty(t, e["id"])
	assert.Equal(t, "Alice", e["name"])
	assert.NotNil(t, e["createdAt"])
	assert.NotNil(t, e["updatedAt"])

	require.Len(t, bus.events, 1)
	assert.Equal(t, reactive.OpCreate, bus.events[0].op)
}

func TestEngine_CreateRejectsExplicitIDCollision(t *testing.T) {
	users := usersCollection()
	eng, _, _ := newTestEngine(t, users)

	_, err := eng.Create("users", map[string]any{"id": "u1", "name": "Alice"})
	require.NoError(t, err)

	_, err = eng.Create("users", map[string]any{"id": "u1", "name": "Bob"})
	require.Error(t, err)
	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
}

func TestEngine_CreateRejectsSchemaValidationFailure(t *testing.T) {
	users := usersCollection()
	eng, _, _ := newTestEngine(t, users)

	_, err := eng.Create("users", map[string]any{})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestEngine_CreateRejectsUniqueIndexCollision(t *testing.T) {
	users := usersCollection()
	eng, _, _ := newTestEngine(t, users)

	_, err := eng.Create("users", map[string]any{"id": "u1", "name": "Alice", "email": "a@example.com"})
	require.NoError(t, err)

	_, err = eng.Create("users", map[string]any{"id": "u2", "name": "Bob", "email": "a@example.com"})
	require.Error(t, err)
	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
}

func TestEngine_UpdateMergesViaApplyPatch(t *testing.T) {
	users := usersCollection()
	eng, bus, dirty := newTestEngine(t, users)

	_, err := eng.Create("users", map[string]any{"id": "u1", "name": "Alice"})
	require.NoError(t, err)

	updated, err := eng.Update("users", "u1", map[string]any{"name": "Alicia"})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated["name"])

	require.Len(t, bus.events, 2)
	assert.Equal(t, reactive.OpUpdate, bus.events[1].op)
	assert.Contains(t, *dirty, "users")
}

func TestEngine_UpdateUnknownIDFails(t *testing.T) {
	users := usersCollection()
	eng, _, _ := newTestEngine(t, users)

	_, err := eng.Update("users", "missing", map[string]any{"name": "x"})
	require.Error(t, err)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestEngine_DeleteRemovesEntity(t *testing.T) {
	users := usersCollection()
	eng, bus, _ := newTestEngine(t, users)

	_, err := eng.Create("users", map[string]any{"id": "u1", "name": "Alice"})
	require.NoError(t, err)

	deleted, err := eng.Delete("users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", deleted["name"])

	_, ok := users.Store.Get("u1")
	assert.False(t, ok)
	require.Len(t, bus.events, 2)
	assert.Equal(t, reactive.OpDelete, bus.events[1].op)
}

func TestEngine_BeforeCreateHookCanTransformPending(t *testing.T) {
	users := usersCollection()
	users.Config.BeforeCreate = []collection.Hook{
		func(collName string, pending map[string]any) (map[string]any, error) {
			pending["name"] = pending["name"].(string) + " (verified)"
			return pending, nil
		},
	}
	eng, _, _ := newTestEngine(t, users)

	e, err := eng.Create("users", map[string]any{"id": "u1", "name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "Alice (verified)", e["name"])
}

func TestEngine_BeforeDeleteHookCanVeto(t *testing.T) {
	users := usersCollection()
	users.Config.BeforeDelete = []collection.Hook{
		func(collName string, pending map[string]any) (map[string]any, error) {
			return nil, assertionError("cannot delete")
		},
	}
	eng, _, _ := newTestEngine(t, users)

	_, err := eng.Create("users", map[string]any{"id": "u1", "name": "Alice"})
	require.NoError(t, err)

	_, err = eng.Delete("users", "u1")
	require.Error(t, err)
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)

	_, ok := users.Store.Get("u1")
	assert.True(t, ok, "vetoed delete must not remove the entity")
}

func TestEngine_GlobalHooksRunBeforeLocalHooks(t *testing.T) {
	users := usersCollection()
	var order []string
	users.Config.BeforeCreate = []collection.Hook{
		func(collName string, pending map[string]any) (map[string]any, error) {
			order = append(order, "local")
			return pending, nil
		},
	}
	global := &GlobalHooks{
		BeforeCreate: []collection.Hook{
			func(collName string, pending map[string]any) (map[string]any, error) {
				order = append(order, "global")
				return pending, nil
			},
		},
	}

	reg := collection.NewRegistry()
	reg.Add(users)
	ids := idgen.NewRegistry()
	pipeline := query.New(reg, nil, nil)
	eng := New(reg, ids, pipeline, &recordingBus{}, global, nil)

	_, err := eng.Create("users", map[string]any{"id": "u1", "name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"global", "local"}, order)
}

func TestEngine_ForeignKeyCheckRejectsMissingTarget(t *testing.T) {
	teams := collection.New(collection.Config{Name: "teams"})
	users := usersCollection()
	users.Config.Relationships = []collection.Relationship{
		{Name: "team", Type: collection.Ref, Field: "teamID", Target: "teams"},
	}

	reg := collection.NewRegistry()
	reg.Add(teams)
	reg.Add(users)
	ids := idgen.NewRegistry()
	pipeline := query.New(reg, nil, nil)
	eng := New(reg, ids, pipeline, &recordingBus{}, nil, nil)

	_, err := eng.Create("users", map[string]any{"id": "u1", "name": "Alice", "teamID": "t1"})
	require.Error(t, err)
	var fkErr *ForeignKeyError
	require.ErrorAs(t, err, &fkErr)
}

func TestEngine_ForeignKeyCheckAcceptsExistingTarget(t *testing.T) {
	teams := collection.New(collection.Config{Name: "teams"})
	teams.Store.Insert("t1", map[string]any{"id": "t1"})
	users := usersCollection()
	users.Config.Relationships = []collection.Relationship{
		{Name: "team", Type: collection.Ref, Field: "teamID", Target: "teams"},
	}

	reg := collection.NewRegistry()
	reg.Add(teams)
	reg.Add(users)
	ids := idgen.NewRegistry()
	pipeline := query.New(reg, nil, nil)
	eng := New(reg, ids, pipeline, &recordingBus{}, nil, nil)

	_, err := eng.Create("users", map[string]any{"id": "u1", "name": "Alice", "teamID": "t1"})
	require.NoError(t, err)
}

type simpleError string

func (e simpleError) Error() string { return string(e) }

func assertionError(msg string) error { return simpleError(msg) }
