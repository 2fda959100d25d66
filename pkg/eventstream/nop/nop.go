// Package nop provides a publisher that discards all events, used when
// no event stream is configured.
package nop

import (
	"context"

	"github.com/perpetual-s/gemi/pkg/eventstream"
)

// Publisher discards every event.
type Publisher struct{}

// NewPublisher creates a discard-all publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishTurnPersisted(_ context.Context, _ eventstream.TurnPersistedEvent) error {
	return nil
}

func (p *Publisher) Close() error {
	return nil
}
