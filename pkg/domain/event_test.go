package domain_test

import (
	"bills/pkg/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewBillCreatedEvent(t *testing.T) {
	b, err := domain.NewBill("INV-100", issued, "ACME", "USD", dec("1"),
		[]domain.ValidatedBillLine{mustLine(t, 1, "Widget", "3", "9.995")})
	require.NoError(t, err)
	p := domain.NewPersistedBill(b, 7, time.Now())

	loc := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2025, 3, 14, 12, 0, 0, 0, loc)
	ev := domain.NewBillCreatedEvent(p, "go-api", at)

	require.Equal(t, int64(7), ev.BillID)
	require.Equal(t, "INV-100", ev.BillNumber)
	require.Equal(t, issued, ev.IssuedAt)
	require.Equal(t, "29.99", ev.Subtotal.StringFixed(2))
	require.Equal(t, "1.00", ev.Tax.StringFixed(2))
	require.Equal(t, "30.99", ev.Total.StringFixed(2))
	require.Equal(t, "USD", ev.Currency)
	require.Equal(t, "go-api", ev.Source)
	require.Equal(t, time.UTC, ev.OccurredAt.Location())
	require.True(t, ev.OccurredAt.Equal(at))
}
