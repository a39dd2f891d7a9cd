package storage

import "errors"

// Common errors returned by storage implementations.
var (
	// ErrAlreadyInTx is returned when a transaction is started from a handle
	// that is already inside one.
	ErrAlreadyInTx = errors.New("already in tx")
	// ErrNotInTx is returned when Commit or Rollback is called outside a
	// transaction.
	ErrNotInTx = errors.New("not in tx")
	// ErrDuplicateBillNumber is returned by CreateBill when the bill number is
	// already stored.
	ErrDuplicateBillNumber = errors.New("duplicate bill number")
)
