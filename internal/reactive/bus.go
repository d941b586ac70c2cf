// Package reactive implements the process-wide change bus and watch()
// combinator described in spec.md §4.9: every committed mutation publishes
// an event in commit order; watch() re-runs a query whenever an event on its
// collection arrives, coalescing the events queued during a run so a storm
// of writes only triggers one extra re-evaluation.
package reactive

import "sync"

// Operation is the mutation kind carried by an Event.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Event is one change notification (spec.md §4.9: "{collection, operation,
// id}").
type Event struct {
	Collection string
	Operation  Operation
	ID         string
}

// subscriber is a registered listener; id is used only for Unsubscribe.
type subscriber struct {
	id int
	ch chan Event
}

// Bus is a process-wide, in-memory publish/subscribe channel. Subscribers
// each get their own buffered channel so a slow watcher can't stall
// publication to the others; a full channel drops the oldest pending event
// rather than blocking the publisher (spec.md §5: mutations must not suspend
// on a watcher).
type Bus struct {
	mu        sync.Mutex
	nextID    int
	listeners map[string][]*subscriber // collection -> subscribers
}

// NewBus builds an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[string][]*subscriber)}
}

// Subscribe returns a channel of events for one collection, and an unsubscribe
// function. The channel is buffered; subscribers must drain it promptly.
func (b *Bus) Subscribe(collection string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &subscriber{id: b.nextID, ch: make(chan Event, 64)}
	b.listeners[collection] = append(b.listeners[collection], sub)

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.listeners[collection]
		for i, s := range subs {
			if s.id == sub.id {
				b.listeners[collection] = append(subs[:i], subs[i+1:]...)
				close(sub.ch)
				break
			}
		}
	}
	return sub.ch, unsubscribe
}

// Publish delivers ev to every current subscriber of ev.Collection, in
// registration order (spec.md §4.9: "Events for other collections are
// ignored by a given watcher"; §5: "the reactive bus preserves publication
// order per collection").
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	subs := append([]*subscriber(nil), b.listeners[ev.Collection]...)
	b.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- ev:
		default:
			// Drop the oldest queued event to make room rather than block
			// the publisher; watch() always re-runs the full query on any
			// event, so a dropped notification only costs one coalesced
			// re-evaluation, never a missed state transition.
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- ev:
			default:
			}
		}
	}
}
