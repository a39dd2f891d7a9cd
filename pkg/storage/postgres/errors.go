package postgres

import (
	"bills/pkg/storage"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// billNumberConstraint is the unique constraint guarding bill numbers.
const billNumberConstraint = "bill_bill_number_key"

// translateError maps driver errors to storage errors. A unique violation on
// the bill number becomes storage.ErrDuplicateBillNumber, keeping the driver
// error in the chain.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}

	if pgErr.ConstraintName == "" || pgErr.ConstraintName == billNumberConstraint {
		return fmt.Errorf("%w: %w", storage.ErrDuplicateBillNumber, err)
	}

	return err
}
