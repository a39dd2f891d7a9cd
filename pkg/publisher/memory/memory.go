// Package memory provides a recording publisher for tests and local runs
// without a broker.
package memory

import (
	"bills/pkg/domain"
	"bills/pkg/publisher"
	"context"
	"slices"
	"sync"
)

// Publisher records every accepted event.
type Publisher struct {
	mu       sync.Mutex
	events   []domain.BillCreatedEvent
	failWith error
	closed   bool
}

func New() *Publisher {
	return &Publisher{}
}

// FailWith makes following publishes return err without recording the
// event. Pass nil to accept events again.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = err
}

// Events returns the recorded events in publish order.
func (p *Publisher) Events() []domain.BillCreatedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.events)
}

func (p *Publisher) PublishBillCreated(ctx context.Context, event domain.BillCreatedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.closed:
		return publisher.ErrClosed
	case p.failWith != nil:
		return p.failWith
	}
	p.events = append(p.events, event)

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true

	return nil
}

var _ publisher.Publisher = (*Publisher)(nil)
