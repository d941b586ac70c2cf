package query

import (
	"context"
	"errors"
)

// Item is one element of a Stream: either a populated entity snapshot or an
// error (spec.md §4.6 step 7: a dangling reference surfaces on the stream's
// error channel without aborting the rest of the stream).
type Item struct {
	Entity map[string]any
	Err    error
}

// Stream is query()'s lazy sequence (spec.md §4.6 preamble). Candidate
// resolution through pagination and projection are computed eagerly because
// sort and pagination both require the full candidate set in hand; populate
// is the one stage that can genuinely fail per-element, so it's produced
// lazily over a channel that a caller can cancel mid-flight (spec.md §5:
// "a query stream is cancelable... partial results already delivered are
// retained by the caller").
type Stream struct {
	items  chan Item
	cancel context.CancelFunc
}

func newStream(ctx context.Context, produce func(ctx context.Context, emit func(Item) bool)) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan Item)
	go func() {
		defer close(ch)
		produce(ctx, func(it Item) bool {
			select {
			case ch <- it:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return &Stream{items: ch, cancel: cancel}
}

// Next blocks until the next item is available, or returns ok=false once the
// stream is exhausted or the caller's context is done.
func (s *Stream) Next(ctx context.Context) (Item, bool) {
	select {
	case it, ok := <-s.items:
		return it, ok
	case <-ctx.Done():
		return Item{}, false
	}
}

// Close cancels any in-flight production and releases the stream's
// goroutine.
func (s *Stream) Close() {
	s.cancel()
}

// Collect is runPromise's coercion: eagerly drain the stream into an ordered
// list. An erroring element (e.g. a dangling reference) is omitted from the
// result rather than aborting collection (spec.md §4.6 step 7: "the element
// producing it is omitted"); every such error is joined and returned
// alongside whatever entities did resolve.
func Collect(ctx context.Context, s *Stream) ([]map[string]any, error) {
	defer s.Close()
	var out []map[string]any
	var errs []error
	for {
		it, ok := s.Next(ctx)
		if !ok {
			return out, errors.Join(errs...)
		}
		if it.Err != nil {
			errs = append(errs, it.Err)
			continue
		}
		out = append(out, it.Entity)
	}
}
