// Package idempotency remembers which events were already handled so that
// at-least-once delivery paths can skip repeats.
//
//go:generate mockgen -package mockidempotency -source=interface.go -destination=mock/mockidempotency.go *
package idempotency

import (
	"context"
	"time"
)

// Store records processed event ids for a limited time.
type Store interface {
	// IsProcessed reports whether id was marked and has not expired.
	IsProcessed(ctx context.Context, id string) (bool, error)
	// MarkProcessed marks id for ttl. It returns false when id was already
	// marked.
	MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error)
	// Close releases the store's resources.
	Close() error
}
