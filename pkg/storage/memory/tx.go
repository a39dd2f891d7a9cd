package memory

import (
	"bills/pkg/domain"
	"bills/pkg/storage"
	"context"
	"fmt"

	"github.com/riverqueue/river"
)

// Tx stages writes and applies them on Commit. Reads see committed data plus
// the transaction's own pending writes.
type Tx struct {
	*state

	pendingBills []domain.PersistedBill
	pendingJobs  []Job
	pendingKeys  []string
	done         bool
}

func (t *Tx) BillExistsByNumber(_ context.Context, number string) (bool, error) {
	if t.pendingNumber(number) {
		return true, nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byNumber[number]

	return ok, nil
}

func (t *Tx) CreateBill(_ context.Context, bill domain.ValidatedBill) (*domain.PersistedBill, error) {
	if t.done {
		return nil, storage.ErrNotInTx
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failWith != nil {
		return nil, t.failWith
	}
	if _, ok := t.byNumber[bill.Number()]; ok || t.pendingNumber(bill.Number()) {
		return nil, fmt.Errorf("%w: %s", storage.ErrDuplicateBillNumber, bill.Number())
	}

	t.nextID++
	persisted := domain.NewPersistedBill(bill, t.nextID, t.now().UTC())
	t.pendingBills = append(t.pendingBills, persisted)

	return &persisted, nil
}

func (t *Tx) BillSummaries(ctx context.Context) ([]domain.BillSummary, error) {
	return (&Store{state: t.state}).BillSummaries(ctx)
}

func (t *Tx) AddJob(_ context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error) {
	if t.done {
		return false, storage.ErrNotInTx
	}

	key, err := jobKey(args, opts)
	if err != nil {
		return false, fmt.Errorf("could not encode job args: %w", err)
	}
	if key != "" {
		t.mu.RLock()
		_, exists := t.jobKeys[key]
		t.mu.RUnlock()
		for _, k := range t.pendingKeys {
			exists = exists || k == key
		}
		if exists {
			return false, nil
		}
		t.pendingKeys = append(t.pendingKeys, key)
	}

	t.pendingJobs = append(t.pendingJobs, Job{Args: args, Opts: opts})

	return true, nil
}

func (t *Tx) Commit() error {
	if t.done {
		return storage.ErrNotInTx
	}
	t.done = true

	t.mu.Lock()
	defer t.mu.Unlock()

	// another transaction may have committed the same number meanwhile
	for _, b := range t.pendingBills {
		if _, ok := t.byNumber[b.BillNumber]; ok {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateBillNumber, b.BillNumber)
		}
	}

	for _, b := range t.pendingBills {
		t.byNumber[b.BillNumber] = len(t.bills)
		t.bills = append(t.bills, b)
	}
	for _, k := range t.pendingKeys {
		t.jobKeys[k] = struct{}{}
	}
	t.jobs = append(t.jobs, t.pendingJobs...)

	return nil
}

func (t *Tx) Rollback() error {
	if t.done {
		return storage.ErrNotInTx
	}
	t.done = true
	t.pendingBills, t.pendingJobs, t.pendingKeys = nil, nil, nil

	return nil
}

func (t *Tx) pendingNumber(number string) bool {
	for _, b := range t.pendingBills {
		if b.BillNumber == number {
			return true
		}
	}

	return false
}

var _ storage.TxStorage = (*Tx)(nil)
