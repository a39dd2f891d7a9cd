// Package publisher announces persisted bills to downstream consumers.
//
//go:generate mockgen -package mockpublisher -source=interface.go -destination=mock/mockpublisher.go *
package publisher

import (
	"bills/pkg/domain"
	"context"
	"errors"
)

// ErrClosed is returned when publishing through a closed publisher.
var ErrClosed = errors.New("publisher closed")

// Publisher delivers integration events to a durable destination.
type Publisher interface {
	// PublishBillCreated returns nil only once the destination has durably
	// accepted the event.
	PublishBillCreated(ctx context.Context, event domain.BillCreatedEvent) error
	// Close releases the broker connection.
	Close() error
}
