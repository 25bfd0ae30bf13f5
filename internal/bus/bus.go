// Package bus carries project summary updates from the task view to the
// project list view. One topic, synchronous dispatch, no replay: a handler
// subscribed after an event fired never sees it.
package bus

import "sync"

// SummaryUpdate is a partial patch for one project's cached summary. Nil
// fields are left untouched by the receiver.
type SummaryUpdate struct {
	ProjectID      int64
	Name           *string
	Domain         *string
	Description    *string
	CompletedTasks *int
	TotalTasks     *int
}

// Bus is a process-wide publish/subscribe channel for summary updates.
type Bus struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(SummaryUpdate)
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[int]func(SummaryUpdate))}
}

// Subscribe registers a handler and returns its unsubscribe function.
// Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(handler func(SummaryUpdate)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

// Publish delivers the update to every current subscriber, synchronously,
// on the caller's goroutine. Fire-and-forget: zero subscribers is fine.
func (b *Bus) Publish(update SummaryUpdate) {
	b.mu.Lock()
	handlers := make([]func(SummaryUpdate), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(update)
	}
}
