package crud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/entity"
	"github.com/inkwell-db/inkwell/internal/idgen"
	"github.com/inkwell-db/inkwell/internal/query"
)

func newCascadeEngine(t *testing.T, teams, users *collection.Collection) *Engine {
	t.Helper()
	reg := collection.NewRegistry()
	reg.Add(teams)
	reg.Add(users)
	ids := idgen.NewRegistry()
	pipeline := query.New(reg, nil, nil)
	return New(reg, ids, pipeline, &recordingBus{}, nil, nil)
}

func teamsAndUsers(cascadePolicy collection.CascadePolicy) (*collection.Collection, *collection.Collection) {
	teams := collection.New(collection.Config{
		Name: "teams",
		Relationships: []collection.Relationship{
			{Name: "members", Type: collection.Inverse, Field: "teamID", Target: "users", Cascade: cascadePolicy},
		},
	})
	users := collection.New(collection.Config{
		Name: "users",
		Indexes: []entity.IndexSpec{
			{Name: "by_team", Fields: []string{"teamID"}},
		},
	})
	return teams, users
}

func TestDeleteWithRelationships_RestrictBlocksDeleteWhileDependentsExist(t *testing.T) {
	teams, users := teamsAndUsers(collection.Restrict)
	eng := newCascadeEngine(t, teams, users)

	_, err := eng.Create("teams", map[string]any{"id": "t1"})
	require.NoError(t, err)
	_, err = eng.Create("users", map[string]any{"id": "u1", "teamID": "t1"})
	require.NoError(t, err)

	_, err = eng.DeleteWithRelationships("teams", "t1")
	require.Error(t, err)
	var fkErr *ForeignKeyError
	require.ErrorAs(t, err, &fkErr)

	_, ok := teams.Store.Get("t1")
	assert.True(t, ok, "restricted delete must not remove the target")
}

func TestDeleteWithRelationships_CascadeDeletesDependents(t *testing.T) {
	teams, users := teamsAndUsers(collection.Cascade)
	eng := newCascadeEngine(t, teams, users)

	_, err := eng.Create("teams", map[string]any{"id": "t1"})
	require.NoError(t, err)
	_, err = eng.Create("users", map[string]any{"id": "u1", "teamID": "t1"})
	require.NoError(t, err)

	_, err = eng.DeleteWithRelationships("teams", "t1")
	require.NoError(t, err)

	_, ok := teams.Store.Get("t1")
	assert.False(t, ok)
	_, ok = users.Store.Get("u1")
	assert.False(t, ok, "cascade delete must remove dependents")
}

func TestDeleteWithRelationships_SetNullClearsForeignKey(t *testing.T) {
	teams, users := teamsAndUsers(collection.SetNull)
	eng := newCascadeEngine(t, teams, users)

	_, err := eng.Create("teams", map[string]any{"id": "t1"})
	require.NoError(t, err)
	_, err = eng.Create("users", map[string]any{"id": "u1", "teamID": "t1"})
	require.NoError(t, err)

	_, err = eng.DeleteWithRelationships("teams", "t1")
	require.NoError(t, err)

	_, ok := teams.Store.Get("t1")
	assert.False(t, ok)
	u, ok := users.Store.Get("u1")
	require.True(t, ok)
	assert.Nil(t, u["teamID"])
}

func TestDeleteWithRelationships_NoDependentsDeletesCleanly(t *testing.T) {
	teams, users := teamsAndUsers(collection.Restrict)
	eng := newCascadeEngine(t, teams, users)

	_, err := eng.Create("teams", map[string]any{"id": "t1"})
	require.NoError(t, err)

	_, err = eng.DeleteWithRelationships("teams", "t1")
	require.NoError(t, err)
	_, ok := teams.Store.Get("t1")
	assert.False(t, ok)
}

func TestCreateWithRelationships_EmbeddedRefCreatesTargetFirst(t *testing.T) {
	teams, users := teamsAndUsers(collection.Restrict)
	users.Config.Relationships = []collection.Relationship{
		{Name: "team", Type: collection.Ref, Field: "teamID", Target: "teams"},
	}
	eng := newCascadeEngine(t, teams, users)

	created, err := eng.CreateWithRelationships("users", map[string]any{
		"id":     "u1",
		"teamID": map[string]any{"id": "t1", "name": "Engineering"},
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", created["teamID"])

	team, ok := teams.Store.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "Engineering", team["name"])
}

func TestCreateWithRelationships_EmbeddedRefWithoutIDGeneratesOne(t *testing.T) {
	teams, users := teamsAndUsers(collection.Restrict)
	users.Config.Relationships = []collection.Relationship{
		{Name: "team", Type: collection.Ref, Field: "teamID", Target: "teams"},
	}
	eng := newCascadeEngine(t, teams, users)

	created, err := eng.CreateWithRelationships("users", map[string]any{
		"id":     "u1",
		"teamID": map[string]any{"name": "Engineering"},
	})
	require.NoError(t, err)

	teamID, ok := created["teamID"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, teamID)
	_, ok = teams.Store.Get(teamID)
	assert.True(t, ok)
}

func TestUpdateWithRelationships_EmbeddedRefUpdatesExistingTarget(t *testing.T) {
	teams, users := teamsAndUsers(collection.Restrict)
	users.Config.Relationships = []collection.Relationship{
		{Name: "team", Type: collection.Ref, Field: "teamID", Target: "teams"},
	}
	eng := newCascadeEngine(t, teams, users)

	_, err := eng.Create("teams", map[string]any{"id": "t1", "name": "Old"})
	require.NoError(t, err)
	_, err = eng.Create("users", map[string]any{"id": "u1", "teamID": "t1"})
	require.NoError(t, err)

	updated, err := eng.UpdateWithRelationships("users", "u1", map[string]any{
		"teamID": map[string]any{"id": "t1", "name": "New"},
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", updated["teamID"])

	team, ok := teams.Store.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "New", team["name"])
}
