package inkwell

import (
	"context"

	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/crud"
	"github.com/inkwell-db/inkwell/internal/query"
	"github.com/inkwell-db/inkwell/internal/reactive"
)

// CollectionHandle is the per-collection surface spec.md describes:
// query/aggregate/findById/findOne, the full CRUD/cascade set, and watch.
// A handle returned from outside a transaction is bound to the live
// database; one obtained from a *Tx (see tx.go) is bound to that
// transaction's scratch copy instead — both share this same type because
// the operations are identical, only the underlying engine differs (spec.md
// §4.8: "the same collection API").
type CollectionHandle struct {
	db       *Database // nil inside a transaction
	coll     *collection.Collection
	engine   *crud.Engine
	pipeline *query.Pipeline
	bus      *reactive.Bus // nil inside a transaction; watch() only makes sense live
}

func (h *CollectionHandle) lock() func() {
	if h.db == nil {
		return func() {}
	}
	h.db.writeMu.Lock()
	return h.db.writeMu.Unlock
}

// Query runs query() (spec.md §4.6) and returns a lazy Stream.
func (h *CollectionHandle) Query(ctx context.Context, cfg QueryConfig) (*query.Stream, error) {
	s, err := h.pipeline.Query(ctx, h.coll, cfg)
	if err != nil {
		return nil, mapQueryError(err)
	}
	return s, nil
}

// QueryPage runs query() and materializes its result as a Page, honoring
// cursor pagination.
func (h *CollectionHandle) QueryPage(ctx context.Context, cfg QueryConfig) (Page, error) {
	p, err := h.pipeline.QueryPage(ctx, h.coll, cfg)
	if err != nil {
		return Page{}, mapQueryError(err)
	}
	return p, nil
}

// Aggregate runs aggregate() (spec.md §4.6.1).
func (h *CollectionHandle) Aggregate(cfg AggregateConfig) []AggregateResult {
	return h.pipeline.Aggregate(h.coll, cfg)
}

// FindByID returns the entity at id, or a NotFoundError-shaped *Error.
func (h *CollectionHandle) FindByID(id string) (map[string]any, error) {
	e, ok := h.coll.Store.Get(id)
	if !ok {
		return nil, NotFoundError(h.coll.Config.Name, id)
	}
	return e, nil
}

// FindOne runs query() with an implicit limit of 1 and returns its single
// result, or a NotFoundError-shaped *Error if nothing matched.
func (h *CollectionHandle) FindOne(ctx context.Context, cfg QueryConfig) (map[string]any, error) {
	limit := 1
	cfg.Limit = &limit
	page, err := h.QueryPage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, NotFoundError(h.coll.Config.Name, "")
	}
	return page.Items[0], nil
}

// Create implements spec.md §4.7's create.
func (h *CollectionHandle) Create(input map[string]any) (map[string]any, error) {
	defer h.lock()()
	e, err := h.engine.Create(h.coll.Config.Name, input)
	return e, mapCRUDError(err)
}

// CreateMany creates every input in order, stopping at the first failure;
// entities created before the failure remain committed (spec.md doesn't
// describe createMany as transactional — use Database.Transaction for
// all-or-nothing semantics).
func (h *CollectionHandle) CreateMany(inputs []map[string]any) ([]map[string]any, error) {
	defer h.lock()()
	out := make([]map[string]any, 0, len(inputs))
	for _, in := range inputs {
		e, err := h.engine.Create(h.coll.Config.Name, in)
		if err != nil {
			return out, mapCRUDError(err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Update implements spec.md §4.7's update via ApplyPatch's operator/deep-
// merge semantics.
func (h *CollectionHandle) Update(id string, patch map[string]any) (map[string]any, error) {
	defer h.lock()()
	e, err := h.engine.Update(h.coll.Config.Name, id, patch)
	return e, mapCRUDError(err)
}

// UpdateMany applies patch to every entity matching where, returning the
// updated entities.
func (h *CollectionHandle) UpdateMany(ctx context.Context, where map[string]any, patch map[string]any) ([]map[string]any, error) {
	defer h.lock()()
	page, err := h.pipeline.QueryPage(ctx, h.coll, QueryConfig{Where: where})
	if err != nil {
		return nil, mapQueryError(err)
	}
	out := make([]map[string]any, 0, len(page.Items))
	for _, e := range page.Items {
		id, _ := e["id"].(string)
		updated, err := h.engine.Update(h.coll.Config.Name, id, patch)
		if err != nil {
			return out, mapCRUDError(err)
		}
		out = append(out, updated)
	}
	return out, nil
}

// Upsert implements spec.md §4.7's upsert: {where, create, update}.
func (h *CollectionHandle) Upsert(where, create, update map[string]any) (map[string]any, error) {
	defer h.lock()()
	e, err := h.engine.Upsert(h.coll.Config.Name, where, create, update)
	return e, mapCRUDError(err)
}

// UpsertSpec is one entry of an UpsertMany call.
type UpsertSpec struct {
	Where, Create, Update map[string]any
}

// UpsertMany runs Upsert once per entry, in order.
func (h *CollectionHandle) UpsertMany(entries []UpsertSpec) ([]map[string]any, error) {
	defer h.lock()()
	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		e, err := h.engine.Upsert(h.coll.Config.Name, entry.Where, entry.Create, entry.Update)
		if err != nil {
			return out, mapCRUDError(err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Delete implements spec.md §4.7's delete, returning the deleted snapshot.
func (h *CollectionHandle) Delete(id string) (map[string]any, error) {
	defer h.lock()()
	e, err := h.engine.Delete(h.coll.Config.Name, id)
	return e, mapCRUDError(err)
}

// DeleteMany deletes every entity matching where, returning {count, deleted}
// as spec.md §4.7 describes.
func (h *CollectionHandle) DeleteMany(ctx context.Context, where map[string]any) (int, []map[string]any, error) {
	defer h.lock()()
	page, err := h.pipeline.QueryPage(ctx, h.coll, QueryConfig{Where: where})
	if err != nil {
		return 0, nil, mapQueryError(err)
	}
	deleted := make([]map[string]any, 0, len(page.Items))
	for _, e := range page.Items {
		id, _ := e["id"].(string)
		d, err := h.engine.Delete(h.coll.Config.Name, id)
		if err != nil {
			return len(deleted), deleted, mapCRUDError(err)
		}
		deleted = append(deleted, d)
	}
	return len(deleted), deleted, nil
}

// CreateWithRelationships is Create's cascade variant (spec.md §4.7): a Ref
// field supplied as an embedded entity map is created/updated in its target
// collection first.
func (h *CollectionHandle) CreateWithRelationships(input map[string]any) (map[string]any, error) {
	defer h.lock()()
	e, err := h.engine.CreateWithRelationships(h.coll.Config.Name, input)
	return e, mapCRUDError(err)
}

// UpdateWithRelationships is Update's cascade variant.
func (h *CollectionHandle) UpdateWithRelationships(id string, patch map[string]any) (map[string]any, error) {
	defer h.lock()()
	e, err := h.engine.UpdateWithRelationships(h.coll.Config.Name, id, patch)
	return e, mapCRUDError(err)
}

// DeleteWithRelationships is Delete's cascade variant: every Inverse
// relationship's declared cascade policy (restrict/cascade/setNull) runs
// before the entity itself is removed.
func (h *CollectionHandle) DeleteWithRelationships(id string) (map[string]any, error) {
	defer h.lock()()
	e, err := h.engine.DeleteWithRelationships(h.coll.Config.Name, id)
	return e, mapCRUDError(err)
}

// Watch implements spec.md §4.9: re-run cfg against this collection on
// every subsequent mutation to it, starting with one immediate evaluation.
// Watch is only available on a handle obtained from Database.Collection,
// never from inside a transaction (a scratch copy's mutations never
// publish until commit, so there is nothing to watch there).
func (h *CollectionHandle) Watch(ctx context.Context, cfg QueryConfig) (*Watcher, error) {
	if h.bus == nil {
		return nil, &Error{Kind: KindOperation, Collection: h.coll.Config.Name, Message: "watch is not available inside a transaction"}
	}
	return reactive.Watch(ctx, h.pipeline, h.coll, cfg, h.bus), nil
}
