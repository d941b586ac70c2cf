package query

import (
	"context"

	"github.com/inkwell-db/inkwell/internal/collate"
	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/telemetry"
)

// Pipeline runs query() and aggregate() against the collection registry
// shared by a single engine instance.
type Pipeline struct {
	Collections *collection.Registry
	Collator    *collate.Collator
	Operators   *OperatorRegistry
	Telemetry   *telemetry.Telemetry
}

// New builds a Pipeline. collator may be nil to use the default
// locale-agnostic collator; telemetry instrumentation is noop until the
// caller sets Pipeline.Telemetry to a provider-backed instance.
func New(collections *collection.Registry, collator *collate.Collator, operators *OperatorRegistry) *Pipeline {
	if collator == nil {
		collator = collate.New("")
	}
	if operators == nil {
		operators = NewOperatorRegistry()
	}
	return &Pipeline{Collections: collections, Collator: collator, Operators: operators, Telemetry: telemetry.Noop()}
}

// Query runs the full pipeline (spec.md §4.6 steps 1-7) and returns a lazy
// Stream. Computed fields, if any are declared on coll, are evaluated at
// query time after filtering and before sort, so sort, projection and
// populate can all see them.
func (p *Pipeline) Query(ctx context.Context, coll *collection.Collection, cfg Config) (stream *Stream, err error) {
	tel := p.Telemetry
	if tel == nil {
		tel = telemetry.Noop()
	}
	ctx, doneSpan := tel.StartQuery(ctx, coll.Config.Name)

	fc := &filterCtx{coll: coll, registry: p.Collections, collator: p.Collator, operators: p.Operators}

	candidates, narrowed := resolveCandidates(coll, cfg.Where, p.Collator)

	var matched []map[string]any
	var scanned int
	if narrowed {
		for id := range candidates {
			if e, ok := coll.Store.Get(id); ok {
				scanned++
				if evaluateWhere(e, cfg.Where, fc) {
					matched = append(matched, cloneShallow(e))
				}
			}
		}
	} else {
		for _, e := range coll.Store.All() {
			scanned++
			if evaluateWhere(e, cfg.Where, fc) {
				matched = append(matched, cloneShallow(e))
			}
		}
	}
	defer func() { doneSpan(scanned, narrowed, err) }()

	// matched entities are snapshots (cloneShallow above), so computed
	// fields and projection below are free to mutate them without touching
	// the live store (spec.md §4.7: computed fields "do not participate in
	// indexes").
	for name, fn := range coll.Config.Computed {
		for _, e := range matched {
			if _, exists := e[name]; !exists {
				e[name] = fn(e)
			}
		}
	}

	var scores map[string]float64
	if q, found := findSearchQuery(cfg.Where); found {
		scores = scoreByID(coll, q)
	}

	applySort(p.Collator, matched, cfg.Sort, scores)

	page, err := applyPagination(p.Collator, matched, cfg.Sort, cfg)
	if err != nil {
		return nil, err
	}

	stream = newStream(ctx, func(ctx context.Context, emit func(Item) bool) {
		for _, e := range page.Items {
			projected := applySelect(e, cfg.Select)
			populated, err := populateOne(coll, p.Collections, projected, cfg.Populate)
			if err != nil {
				if !emit(Item{Err: err}) {
					return
				}
				continue
			}
			if !emit(Item{Entity: populated}) {
				return
			}
		}
	})
	return stream, nil
}

// QueryPage runs the pipeline and returns a materialized Page directly,
// honoring cursor pagination's {items, nextCursor} shape without requiring
// the caller to drain a Stream (spec.md §4.6 step 5).
func (p *Pipeline) QueryPage(ctx context.Context, coll *collection.Collection, cfg Config) (Page, error) {
	stream, err := p.Query(ctx, coll, cfg)
	if err != nil {
		return Page{}, err
	}
	items, err := Collect(ctx, stream)
	if err != nil {
		return Page{}, err
	}
	nextCursor := pageCursorFor(p.Collator, coll, cfg, items)
	return Page{Items: items, NextCursor: nextCursor}, nil
}

func pageCursorFor(c *collate.Collator, coll *collection.Collection, cfg Config, items []map[string]any) *string {
	if len(items) == 0 || cfg.Limit == nil {
		return nil
	}
	if len(items) < *cfg.Limit {
		return nil
	}
	next, err := EncodeCursor(items[len(items)-1], cfg.Sort)
	if err != nil {
		return nil
	}
	return &next
}

// candidateEntities is a small helper used by aggregate to share candidate
// resolution + residual filtering with Query without the sort/paginate/
// project/populate stages.
func (p *Pipeline) candidateEntities(coll *collection.Collection, where map[string]any) []map[string]any {
	fc := &filterCtx{coll: coll, registry: p.Collections, collator: p.Collator, operators: p.Operators}
	candidates, narrowed := resolveCandidates(coll, where, p.Collator)
	var matched []map[string]any
	if narrowed {
		for id := range candidates {
			if e, ok := coll.Store.Get(id); ok && evaluateWhere(e, where, fc) {
				matched = append(matched, e)
			}
		}
		return matched
	}
	for _, e := range coll.Store.All() {
		if evaluateWhere(e, where, fc) {
			matched = append(matched, e)
		}
	}
	return matched
}
