package billing

import (
	"bills/pkg/domain"
	"context"
)

//go:generate mockgen -package mockbilling -source=interface.go -destination=mock/mockbilling.go *
type Billing interface {
	// Create validates, stores and announces a bill. Failures carry one of
	// serrors.ErrValidation, ErrConflict, ErrMessaging or ErrInternal.
	Create(ctx context.Context, cmd CreateCommand) (*domain.PersistedBill, error)
	// List returns every bill ordered by id.
	List(ctx context.Context) ([]domain.BillSummary, error)
}
