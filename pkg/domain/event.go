package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillCreatedEventName tags the integration event envelope.
const BillCreatedEventName = "bill.created"

// BillCreatedEvent is a snapshot of a persisted bill announced to downstream
// consumers. It does not track later changes to the stored row.
type BillCreatedEvent struct {
	BillID     int64
	BillNumber string
	IssuedAt   time.Time
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	Currency   string
	OccurredAt time.Time
	Source     string
}

// NewBillCreatedEvent builds the event for bill, stamped at the given time.
func NewBillCreatedEvent(bill PersistedBill, source string, at time.Time) BillCreatedEvent {
	return BillCreatedEvent{
		BillID:     bill.ID,
		BillNumber: bill.BillNumber,
		IssuedAt:   bill.IssuedAt,
		Subtotal:   bill.Subtotal,
		Tax:        bill.Tax,
		Total:      bill.Total,
		Currency:   bill.Currency,
		OccurredAt: at.UTC(),
		Source:     source,
	}
}
