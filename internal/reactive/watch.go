package reactive

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/query"
)

// WatchResult is one emission from a watcher: a result snapshot honoring the
// query config's own pagination, or an error from the query pipeline.
type WatchResult struct {
	Items      []map[string]any
	NextCursor *string
	Err        error
}

// Watcher is watch()'s lazy, potentially-infinite sequence (spec.md §4.9).
type Watcher struct {
	Results <-chan WatchResult
	cancel  context.CancelFunc
}

// Cancel unsubscribes from the bus and stops further emissions.
func (w *Watcher) Cancel() { w.cancel() }

// Watch implements spec.md §4.9: run the query once for the initial
// emission, then re-run it on every subsequent event on coll, coalescing any
// events that arrive while a run is in flight into a single extra
// re-evaluation (the "if multiple events arrive during one evaluation"
// coalescing policy): drainPending discards the queued events before each
// re-run. Each run goes through a singleflight.Group, but runs are issued
// from one goroutine, so the group never merges two of them.
func Watch(ctx context.Context, p *query.Pipeline, coll *collection.Collection, cfg query.Config, bus *Bus) *Watcher {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan WatchResult, 1)
	events, unsubscribe := bus.Subscribe(coll.Config.Name)

	go func() {
		defer close(out)
		defer unsubscribe()

		var sf singleflight.Group
		run := func() WatchResult {
			v, err, _ := sf.Do("run", func() (any, error) {
				return p.QueryPage(ctx, coll, cfg)
			})
			if err != nil {
				return WatchResult{Err: err}
			}
			page := v.(query.Page)
			return WatchResult{Items: page.Items, NextCursor: page.NextCursor}
		}

		emit := func(r WatchResult) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit(run()) {
			return
		}

		for {
			select {
			case _, ok := <-events:
				if !ok {
					return
				}
				drainPending(events)
				if !emit(run()) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return &Watcher{Results: out, cancel: cancel}
}

// drainPending consumes any events already queued without blocking, so a
// burst that arrived while emit() was sending collapses into the next
// single run() rather than one run per event.
func drainPending(events <-chan Event) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
