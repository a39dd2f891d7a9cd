package billing

import (
	"bills/pkg/domain"
	"time"

	"github.com/shopspring/decimal"
)

// CreateCommand is a bill as submitted by a client. Nothing in it has been
// validated yet.
type CreateCommand struct {
	BillNumber   string
	IssuedAt     time.Time
	CustomerName string
	Currency     string
	Tax          decimal.Decimal
	Lines        []domain.BillLine
}
