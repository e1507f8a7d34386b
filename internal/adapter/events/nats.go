package events

import (
	"context"
	"encoding/json"
	"fmt"

	"p2p-funding-core/internal/domain/event"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSPublisher pushes event envelopes to NATS for external consumers.
// Subjects follow funding.{type}.{loan_id}, e.g. funding.ledger.changed.<id>.
// Publish failures are logged and swallowed: the ledger already committed.
type NATSPublisher struct {
	nc  *nats.Conn
	log zerolog.Logger
}

func NewNATSPublisher(nc *nats.Conn, log zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{nc: nc, log: log}
}

var _ event.Publisher = (*NATSPublisher)(nil)

func (p *NATSPublisher) Publish(_ context.Context, ev event.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Str("event_id", ev.ID).Msg("marshal event")
		return
	}
	subject := fmt.Sprintf("funding.%s.%s", ev.Type, ev.LoanID)
	if err := p.nc.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("event_id", ev.ID).
			Msg("outbound publish failed")
	}
}

// Fanout publishes to every wrapped publisher in order.
type Fanout []event.Publisher

func (f Fanout) Publish(ctx context.Context, ev event.Event) {
	for _, p := range f {
		p.Publish(ctx, ev)
	}
}
