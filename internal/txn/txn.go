// Package txn implements spec.md §4.8's transaction manager: snapshot every
// collection's store, run the transaction body against that scratch copy,
// then either swap the scratch stores back in atomically and publish the
// body's recorded change events in order, or discard the scratch copy
// entirely on error. Mutations outside a transaction and whole transactions
// both flow through the same live collection registry, so the caller (the
// root package's Database) is responsible for serializing concurrent
// mutation attempts with a single writer lock — this package only
// implements the snapshot/commit/rollback mechanics (spec.md §5: "the
// engine serializes all mutations on a single writer").
package txn

import (
	"github.com/inkwell-db/inkwell/internal/collate"
	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/crud"
	"github.com/inkwell-db/inkwell/internal/idgen"
	"github.com/inkwell-db/inkwell/internal/query"
	"github.com/inkwell-db/inkwell/internal/reactive"
)

// Error wraps the error that caused a transaction body to roll back
// (spec.md §4.7.1 TransactionError).
type Error struct {
	Err error
}

func (e *Error) Error() string { return "txn: rolled back: " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// recorder stands in for the live reactive.Bus and persistence dirty-
// marking hook during a transaction body: events and dirty collections
// accumulate here instead of taking effect immediately (spec.md §4.8: "writes
// mutate only the working copy and record change events in a pending
// list").
type recorder struct {
	events []reactive.Event
	dirty  map[string]bool
}

func (r *recorder) Publish(ev reactive.Event) { r.events = append(r.events, ev) }

func (r *recorder) markDirty(name string) {
	if r.dirty == nil {
		r.dirty = make(map[string]bool)
	}
	r.dirty[name] = true
}

// Session is the scratch transaction context a body operates against: its
// own cloned collection registry, a crud.Engine bound to it, and a
// query.Pipeline for reads — every one of spec.md §4.8's "same collection
// API" operations the live Database exposes, just pointed at the working
// copy instead of the live store.
type Session struct {
	Collections *collection.Registry
	Engine      *crud.Engine
	Pipeline    *query.Pipeline
	rec         *recorder
}

// Manager runs transaction bodies against a live collection registry.
type Manager struct {
	Collections  *collection.Registry
	IDGenerators *idgen.Registry
	Global       *crud.GlobalHooks
	Collator     *collate.Collator
	Operators    *query.OperatorRegistry
	Bus          *reactive.Bus
	MarkDirty    func(collectionName string)
}

// NewManager builds a Manager from the live engine/pipeline the database
// already constructed, reusing their id generator registry, global hooks,
// collator, and operator registry for every transaction's scratch copy.
func NewManager(liveEngine *crud.Engine, livePipeline *query.Pipeline, bus *reactive.Bus, markDirty func(string)) *Manager {
	return &Manager{
		Collections:  liveEngine.Collections,
		IDGenerators: liveEngine.IDGenerators,
		Global:       liveEngine.Global,
		Collator:     livePipeline.Collator,
		Operators:    livePipeline.Operators,
		Bus:          bus,
		MarkDirty:    markDirty,
	}
}

// Run implements spec.md §4.8: snapshot every collection, run fn against the
// scratch copy, and on success swap the scratch stores into the live
// registry, publish every recorded event in order, and schedule persistence
// once. On any error from fn, the scratch copy is discarded, no events
// publish, and the error returns wrapped as *Error. The caller must already
// hold whatever lock serializes this against other mutations.
func (m *Manager) Run(fn func(*Session) error) error {
	names := m.Collections.Names()
	scratch := collection.NewRegistry()
	for _, name := range names {
		live, ok := m.Collections.Get(name)
		if !ok {
			continue
		}
		scratch.Add(&collection.Collection{Config: live.Config, Store: live.Store.Clone()})
	}

	rec := &recorder{}
	scratchPipeline := query.New(scratch, m.Collator, m.Operators)
	scratchEngine := crud.New(scratch, m.IDGenerators, scratchPipeline, rec, m.Global, rec.markDirty)

	sess := &Session{Collections: scratch, Engine: scratchEngine, Pipeline: scratchPipeline, rec: rec}

	if err := fn(sess); err != nil {
		return &Error{Err: err}
	}

	for _, name := range names {
		sc, ok := scratch.Get(name)
		if !ok {
			continue
		}
		lc, ok := m.Collections.Get(name)
		if !ok {
			continue
		}
		lc.Store = sc.Store
	}

	for _, ev := range rec.events {
		if m.Bus != nil {
			m.Bus.Publish(ev)
		}
	}
	if m.MarkDirty != nil {
		for name := range rec.dirty {
			m.MarkDirty(name)
		}
	}
	return nil
}
