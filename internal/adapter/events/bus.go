// Package events carries state-change notifications out of the usecases.
// The in-process Bus serves tests and single-binary deploys; the NATS
// publisher pushes the same envelopes to external consumers.
package events

import (
	"context"
	"sync"

	"p2p-funding-core/internal/domain/event"
)

// Bus is an in-process fan-out publisher. Subscribers get a buffered channel;
// a subscriber that falls behind loses events rather than blocking the
// publishing transaction's caller.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan event.Event
	nextID int
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan event.Event)}
}

var _ event.Publisher = (*Bus)(nil)

// Subscribe registers a listener. The returned cancel func detaches it and
// closes its channel.
func (b *Bus) Subscribe(buffer int) (<-chan event.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan event.Event, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

func (b *Bus) Publish(_ context.Context, ev event.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default: // slow subscriber, drop
		}
	}
}

// Close detaches every subscriber. Publish after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
