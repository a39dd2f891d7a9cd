// Package storage defines the persistence interfaces the billing workflow
// relies on. Backends (PostgreSQL, in-memory) live in sub-packages and are
// interchangeable behind Storage.
//
//go:generate mockgen -package mockstorage -source=interface.go -destination=mock/mockstorage.go *
package storage

import (
	"bills/pkg/domain"
	"context"

	"github.com/riverqueue/river"
)

// BillStorage persists bills and serves the bill read model.
type BillStorage interface {
	// BillExistsByNumber reports whether a bill with the given number is
	// stored. It is a fast-path check only; uniqueness is enforced by
	// CreateBill.
	BillExistsByNumber(ctx context.Context, number string) (bool, error)
	// CreateBill inserts the bill header and all of its lines as one atomic
	// unit and returns the stored bill with its assigned id and creation
	// time. A bill number that is already taken yields ErrDuplicateBillNumber
	// and nothing is written.
	CreateBill(ctx context.Context, bill domain.ValidatedBill) (*domain.PersistedBill, error)
	// BillSummaries lists every bill ordered by id ascending, with the total
	// recomputed from the stored line amounts plus tax.
	BillSummaries(ctx context.Context) ([]domain.BillSummary, error)
}

// JobStorage enqueues background jobs. When the backend supports it, the
// insert joins the surrounding transaction so the job becomes visible only on
// commit.
type JobStorage interface {
	// AddJob enqueues a job and reports whether it was inserted (false when a
	// unique job with the same arguments already exists).
	AddJob(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error)
}

// AllStorage is a composite of every capability a storage handle offers,
// inside or outside a transaction.
type AllStorage interface {
	BillStorage
	JobStorage
}

// TxStorage is a storage handle bound to a database transaction.
// Implementations become unusable after Commit or Rollback is called.
type TxStorage interface {
	AllStorage

	// Commit finalizes the transaction, persisting all changes.
	Commit() error
	// Rollback aborts the transaction, discarding all uncommitted changes.
	Rollback() error
}

// Storage is a non-transactional storage handle able to start transactions.
type Storage interface {
	AllStorage

	// Close releases any resources held by the storage implementation (e.g. the
	// underlying connection pool). After Close, the instance should not be used.
	Close() error

	// Begin starts a new transaction.
	Begin(ctx context.Context) (TxStorage, error)
	// WithTx begins a transaction, invokes cb with it, and commits when cb
	// returns nil. Any error from cb rolls the transaction back.
	WithTx(ctx context.Context, cb func(storage AllStorage) error) error
}
