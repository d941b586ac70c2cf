package txn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/crud"
	"github.com/inkwell-db/inkwell/internal/idgen"
	"github.com/inkwell-db/inkwell/internal/query"
	"github.com/inkwell-db/inkwell/internal/reactive"
)

func newTestManager(t *testing.T) (*Manager, *collection.Registry, *reactive.Bus, *collection.Collection) {
	t.Helper()
	users := collection.New(collection.Config{Name: "users"})
	reg := collection.NewRegistry()
	reg.Add(users)

	ids := idgen.NewRegistry()
	pipeline := query.New(reg, nil, nil)
	bus := reactive.NewBus()
	var dirty []string
	liveEngine := crud.New(reg, ids, pipeline, bus, nil, func(name string) { dirty = append(dirty, name) })

	mgr := NewManager(liveEngine, pipeline, bus, func(name string) { dirty = append(dirty, name) })
	return mgr, reg, bus, users
}

func TestManager_CommitSwapsStoreAndPublishes(t *testing.T) {
	mgr, _, bus, users := newTestManager(t)

	events, unsub := bus.Subscribe("users")
	defer unsub()

	err := mgr.Run(func(s *Session) error {
		_, err := s.Engine.Create("users", map[string]any{"id": "u1", "name": "Alice"})
		return err
	})
	require.NoError(t, err)

	e, ok := users.Store.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "Alice", e["name"])

	select {
	case ev := <-events:
		assert.Equal(t, reactive.OpCreate, ev.Operation)
		assert.Equal(t, "u1", ev.ID)
	default:
		t.Fatal("expected a create event to have published after commit")
	}
}

func TestManager_RollbackLeavesLiveStoreUntouched(t *testing.T) {
	mgr, _, bus, users := newTestManager(t)

	events, unsub := bus.Subscribe("users")
	defer unsub()

	sentinel := errors.New("body failed")
	err := mgr.Run(func(s *Session) error {
		if _, err := s.Engine.Create("users", map[string]any{"id": "u1", "name": "Alice"}); err != nil {
			return err
		}
		return sentinel
	})
	require.Error(t, err)
	var txnErr *Error
	require.ErrorAs(t, err, &txnErr)
	assert.ErrorIs(t, txnErr.Unwrap(), sentinel)

	_, ok := users.Store.Get("u1")
	assert.False(t, ok, "rolled-back create must not appear in the live store")

	select {
	case ev := <-events:
		t.Fatalf("expected no events published on rollback, got %+v", ev)
	default:
	}
}

func TestManager_SessionIsolatedFromLiveDuringBody(t *testing.T) {
	mgr, _, _, users := newTestManager(t)
	users.Store.Insert("seed", map[string]any{"id": "seed", "name": "Pre-existing"})

	err := mgr.Run(func(s *Session) error {
		scratchColl, ok := s.Collections.Get("users")
		require.True(t, ok)
		scratchColl.Store.Insert("mid-txn", map[string]any{"id": "mid-txn"})

		_, liveHasIt := users.Store.Get("mid-txn")
		assert.False(t, liveHasIt, "live store must not see scratch writes before commit")
		return nil
	})
	require.NoError(t, err)

	_, ok := users.Store.Get("mid-txn")
	assert.True(t, ok, "commit must install the scratch store's writes")
	_, ok = users.Store.Get("seed")
	assert.True(t, ok, "pre-existing entities must survive a transaction")
}
