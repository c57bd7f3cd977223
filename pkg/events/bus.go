package events

import (
	"context"
	"sync"
)

// DefaultCapacity is the event channel depth used when the caller does not
// configure one. Small on purpose: a slow consumer exerts backpressure on
// the producing node instead of buffering unboundedly.
const DefaultCapacity = 64

// Bus is a bounded FIFO channel of events for a single task. Nodes run
// sequentially, so there is one logical producer; the facade's drain loop is
// the single consumer.
type Bus struct {
	ch        chan Event
	closeOnce sync.Once
}

// NewBus creates a bus with the given capacity; capacity <= 0 selects
// DefaultCapacity.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{ch: make(chan Event, capacity)}
}

// Publish enqueues one event, blocking while the bus is full. It returns
// ctx.Err() when the context is cancelled before the event is accepted, which
// is how a client disconnect unblocks a stalled producer.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	select {
	case b.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the receive side of the bus. The channel is closed by Close
// after the final event has been enqueued.
func (b *Bus) Events() <-chan Event {
	return b.ch
}

// Close closes the event channel. Safe to call more than once. Publish must
// not be called after Close.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.ch) })
}
