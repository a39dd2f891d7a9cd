// Package memory implements storage.Storage in process memory. It keeps the
// same guarantees as the PostgreSQL backend that the billing workflow relies
// on: unique bill numbers and all-or-nothing transactions.
package memory

import (
	"bills/pkg/domain"
	"bills/pkg/money"
	"bills/pkg/storage"
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/riverqueue/river"
	"github.com/shopspring/decimal"
)

// Job is a job recorded by AddJob.
type Job struct {
	Args river.JobArgs
	Opts *river.InsertOpts
}

type state struct {
	mu       sync.RWMutex
	nextID   int64
	bills    []domain.PersistedBill
	byNumber map[string]int
	jobs     []Job
	jobKeys  map[string]struct{}
	now      func() time.Time
	failWith error
}

// Store is an in-memory storage.Storage. The zero value is not usable; create
// one with New.
type Store struct {
	*state
}

// New creates an empty store.
func New() *Store {
	return &Store{state: &state{
		byNumber: make(map[string]int),
		jobKeys:  make(map[string]struct{}),
		now:      time.Now,
	}}
}

// FailCreateWith makes every following CreateBill call return err. Pass nil
// to restore normal behaviour.
func (s *Store) FailCreateWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Jobs returns the committed jobs in insertion order.
func (s *Store) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.jobs)
}

// Bills returns the committed bills in id order.
func (s *Store) Bills() []domain.PersistedBill {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.bills)
}

func (s *Store) Close() error { return nil }

func (s *Store) BillExistsByNumber(_ context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byNumber[number]

	return ok, nil
}

func (s *Store) CreateBill(ctx context.Context, bill domain.ValidatedBill) (*domain.PersistedBill, error) {
	var created *domain.PersistedBill
	err := s.WithTx(ctx, func(tx storage.AllStorage) error {
		var err error
		created, err = tx.CreateBill(ctx, bill)

		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *Store) BillSummaries(_ context.Context) ([]domain.BillSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.BillSummary, 0, len(s.bills))
	for _, b := range s.bills {
		amounts := make([]decimal.Decimal, 0, len(b.Lines))
		for _, l := range b.Lines {
			amounts = append(amounts, l.Amount())
		}
		out = append(out, domain.BillSummary{
			ID:         b.ID,
			BillNumber: b.BillNumber,
			IssuedAt:   b.IssuedAt,
			Total:      money.Normalize(money.Sum(amounts...).Add(b.Tax)),
			Currency:   b.Currency,
		})
	}

	return out, nil
}

func (s *Store) AddJob(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error) {
	var inserted bool
	err := s.WithTx(ctx, func(tx storage.AllStorage) error {
		var err error
		inserted, err = tx.AddJob(ctx, args, opts)

		return err
	})

	return inserted, err
}

func (s *Store) Begin(_ context.Context) (storage.TxStorage, error) {
	return &Tx{state: s.state}, nil
}

func (s *Store) WithTx(ctx context.Context, cb func(storage storage.AllStorage) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	if err := cb(tx); err != nil {
		_ = tx.Rollback()

		return err
	}

	return tx.Commit()
}

// jobKey identifies a unique job by its kind and encoded arguments. Empty
// when the job is not unique by arguments. Explicit opts take precedence over
// the args' own InsertOpts, as they do in River.
func jobKey(args river.JobArgs, opts *river.InsertOpts) (string, error) {
	if opts == nil {
		if withOpts, ok := args.(river.JobArgsWithInsertOpts); ok {
			own := withOpts.InsertOpts()
			opts = &own
		}
	}
	if opts == nil || !opts.UniqueOpts.ByArgs {
		return "", nil
	}

	encoded, err := json.Marshal(args)
	if err != nil {
		return "", err
	}

	return args.Kind() + ":" + string(encoded), nil
}

var _ storage.Storage = (*Store)(nil)
