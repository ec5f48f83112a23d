// Package notify propagates change notifications: a synchronous
// publish/subscribe bus for listeners in the same context, and a
// filesystem watcher that observes other contexts' writes to the shared
// store.
package notify

import "sync"

// Event names published by the caches.
const (
	// EventProfileUpdated carries a *profile.Event.
	EventProfileUpdated = "profile-updated"
	// EventHistoryUpdated carries the full updated record list, or nil;
	// subscribers must be able to re-pull.
	EventHistoryUpdated = "history-updated"
)

// Bus delivers events synchronously to same-context subscribers.
// Publish order follows mutation order because there is no parallelism
// within one context's mutation path.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]func(any)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]func(any))}
}

// Subscribe registers fn for the named event and returns a function
// that removes the subscription. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(event string, fn func(data any)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[event] == nil {
		b.subs[event] = make(map[int]func(any))
	}
	id := b.next
	b.next++
	b.subs[event][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[event], id)
	}
}

// Publish calls every subscriber of event with data. Subscribers run
// synchronously on the caller's goroutine, outside the bus lock so a
// subscriber may subscribe or unsubscribe during delivery.
func (b *Bus) Publish(event string, data any) {
	b.mu.Lock()
	fns := make([]func(any), 0, len(b.subs[event]))
	for _, fn := range b.subs[event] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(data)
	}
}

// SubscriberCount returns the number of active subscribers for event.
func (b *Bus) SubscriberCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[event])
}
