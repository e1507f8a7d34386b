package pubmock

import (
	"context"
	"sync"

	"p2p-funding-core/internal/domain/event"
)

var _ event.Publisher = (*Publisher)(nil)

// Publisher records every published event for assertions.
type Publisher struct {
	mu     sync.Mutex
	Events []event.Event
}

func (p *Publisher) Publish(_ context.Context, ev event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, ev)
}

// ByType filters recorded events.
func (p *Publisher) ByType(t event.Type) []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []event.Event
	for _, ev := range p.Events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
