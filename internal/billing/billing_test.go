package billing_test

import (
	"bills/internal/billing"
	"bills/pkg/domain"
	"bills/pkg/logger"
	mockpublisher "bills/pkg/publisher/mock"
	"bills/pkg/serrors"
	"bills/pkg/storage"
	mockstorage "bills/pkg/storage/mock"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMain(m *testing.M) {
	logger.Setup("development")
	os.Exit(m.Run())
}

var issued = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validCommand() billing.CreateCommand {
	return billing.CreateCommand{
		BillNumber:   " INV-1 ",
		IssuedAt:     issued,
		CustomerName: "ACME",
		Currency:     "usd",
		Tax:          dec("1"),
		Lines: []domain.BillLine{
			{Concept: "Widget", Quantity: dec("3"), UnitAmount: dec("9.995")},
		},
	}
}

func persisted(bill domain.ValidatedBill) *domain.PersistedBill {
	p := domain.NewPersistedBill(bill, 11, issued.Add(10*time.Hour))

	return &p
}

func newTestBilling(t *testing.T, delivery billing.Delivery) (
	*gomock.Controller, *mockstorage.MockStorage, *mockpublisher.MockPublisher, billing.Billing) {
	t.Helper()

	ctrl := gomock.NewController(t)
	st := mockstorage.NewMockStorage(ctrl)
	pub := mockpublisher.NewMockPublisher(ctrl)
	b := billing.New(st, pub, nil, billing.Options{Delivery: delivery, Source: "go-api", MaxAttempts: 5})

	return ctrl, st, pub, b
}

// helper to wire Storage.WithTx to execute callback with a MockAllStorage.
func expectWithTx(
	t *testing.T,
	ctrl *gomock.Controller,
	m *mockstorage.MockStorage,
	fn func(tx *mockstorage.MockAllStorage)) {
	t.Helper()

	m.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cb func(storage.AllStorage) error) error {
			tx := mockstorage.NewMockAllStorage(ctrl)
			if fn != nil {
				fn(tx)
			}

			return cb(tx)
		},
	)
}

func TestBilling_Create_Direct(t *testing.T) {
	_, st, pub, b := newTestBilling(t, billing.DeliveryDirect)

	st.EXPECT().BillExistsByNumber(gomock.Any(), "INV-1").Return(false, nil)
	st.EXPECT().CreateBill(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, bill domain.ValidatedBill) (*domain.PersistedBill, error) {
			require.Equal(t, "INV-1", bill.Number())
			require.Equal(t, "USD", bill.Currency())
			require.Equal(t, "29.99", bill.Subtotal().StringFixed(2))
			require.Equal(t, "30.99", bill.Total().StringFixed(2))

			return persisted(bill), nil
		})
	pub.EXPECT().PublishBillCreated(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event domain.BillCreatedEvent) error {
			require.Equal(t, int64(11), event.BillID)
			require.Equal(t, "INV-1", event.BillNumber)
			require.Equal(t, "30.99", event.Total.StringFixed(2))
			require.Equal(t, "go-api", event.Source)
			require.Equal(t, time.UTC, event.OccurredAt.Location())

			return nil
		})

	created, err := b.Create(context.Background(), validCommand())
	require.NoError(t, err)
	require.Equal(t, int64(11), created.ID)
	require.Equal(t, "INV-1", created.BillNumber)
}

func TestBilling_Create_DuplicatePreCheck(t *testing.T) {
	_, st, _, b := newTestBilling(t, billing.DeliveryDirect)

	st.EXPECT().BillExistsByNumber(gomock.Any(), "INV-1").Return(true, nil)

	// invalid payload: the conflict wins because validation never runs
	cmd := validCommand()
	cmd.Currency = "dollars"

	_, err := b.Create(context.Background(), cmd)
	require.ErrorIs(t, err, serrors.ErrConflict)
	require.EqualError(t, err, "Bill number 'INV-1' already exists.")
}

func TestBilling_Create_PreCheckFailure(t *testing.T) {
	_, st, _, b := newTestBilling(t, billing.DeliveryDirect)

	dbErr := errors.New("connection refused")
	st.EXPECT().BillExistsByNumber(gomock.Any(), "INV-1").Return(false, dbErr)

	_, err := b.Create(context.Background(), validCommand())
	require.ErrorIs(t, err, serrors.ErrInternal)
	require.ErrorIs(t, err, dbErr)
}

func TestBilling_Create_ValidationMergesHeaderAndLines(t *testing.T) {
	_, st, _, b := newTestBilling(t, billing.DeliveryDirect)

	st.EXPECT().BillExistsByNumber(gomock.Any(), "INV-1").Return(false, nil)

	cmd := validCommand()
	cmd.Currency = "US"
	cmd.Tax = dec("-1")
	cmd.Lines = []domain.BillLine{
		{Concept: "ok", Quantity: dec("1"), UnitAmount: dec("1")},
		{Concept: " ", Quantity: dec("0"), UnitAmount: dec("-1")},
	}

	_, err := b.Create(context.Background(), cmd)
	require.ErrorIs(t, err, serrors.ErrValidation)

	var serr *serrors.Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, map[string][]string{
		domain.FieldCurrency:       {domain.MsgCurrencyInvalid},
		domain.FieldTax:            {domain.MsgTaxNegative},
		domain.FieldLineConcept:    {domain.MsgLineConceptRequired},
		domain.FieldLineQuantity:   {domain.MsgLineQuantityInvalid},
		domain.FieldLineUnitAmount: {domain.MsgLineUnitAmountNegative},
	}, serr.Fields())
}

func TestBilling_Create_NoLines(t *testing.T) {
	_, st, _, b := newTestBilling(t, billing.DeliveryDirect)

	st.EXPECT().BillExistsByNumber(gomock.Any(), "INV-1").Return(false, nil)

	cmd := validCommand()
	cmd.Lines = nil

	_, err := b.Create(context.Background(), cmd)

	var serr *serrors.Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, map[string][]string{domain.FieldLines: {domain.MsgLinesRequired}}, serr.Fields())
}

func TestBilling_Create_BlankNumberSkipsPreCheck(t *testing.T) {
	_, _, _, b := newTestBilling(t, billing.DeliveryDirect)

	cmd := validCommand()
	cmd.BillNumber = "   "

	_, err := b.Create(context.Background(), cmd)

	var serr *serrors.Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, []string{domain.MsgBillNumberRequired}, serr.Fields()[domain.FieldBillNumber])
}

func TestBilling_Create_InvalidTextSkipsPreCheck(t *testing.T) {
	_, _, _, b := newTestBilling(t, billing.DeliveryDirect)

	cmd := validCommand()
	cmd.BillNumber = "INV-\xff\xfe"

	_, err := b.Create(context.Background(), cmd)
	require.Equal(t, serrors.ErrValidation, serrors.KindOf(err))

	var serr *serrors.Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, []string{domain.MsgBillNumberBadText}, serr.Fields()[domain.FieldBillNumber])
}

func TestBilling_Create_OutOfRangeTax(t *testing.T) {
	_, st, _, b := newTestBilling(t, billing.DeliveryDirect)
	st.EXPECT().BillExistsByNumber(gomock.Any(), "INV-1").Return(false, nil)

	cmd := validCommand()
	cmd.Tax = dec("1e12")

	_, err := b.Create(context.Background(), cmd)

	var serr *serrors.Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, map[string][]string{domain.FieldTax: {domain.MsgTaxOutOfRange}}, serr.Fields())
}

func TestBilling_Create_StorageDuplicateIsConflict(t *testing.T) {
	_, st, _, b := newTestBilling(t, billing.DeliveryDirect)

	st.EXPECT().BillExistsByNumber(gomock.Any(), "INV-1").Return(false, nil)
	st.EXPECT().CreateBill(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("could not store bill into pg: %w", storage.ErrDuplicateBillNumber))

	_, err := b.Create(context.Background(), validCommand())
	require.ErrorIs(t, err, serrors.ErrConflict)
	require.EqualError(t, err, "Bill number 'INV-1' already exists.")
}

func TestBilling_Create_StorageFailure(t *testing.T) {
	_, st, _, b := newTestBilling(t, billing.DeliveryDirect)

	st.EXPECT().BillExistsByNumber(gomock.Any(), "INV-1").Return(false, nil)
	st.EXPECT().CreateBill(gomock.Any(), gomock.Any()).Return(nil, errors.New("disk full"))

	_, err := b.Create(context.Background(), validCommand())
	require.ErrorIs(t, err, serrors.ErrInternal)
	require.NotErrorIs(t, err, serrors.ErrConflict)
}

func TestBilling_Create_PublishFailureKeepsBill(t *testing.T) {
	_, st, pub, b := newTestBilling(t, billing.DeliveryDirect)

	st.EXPECT().BillExistsByNumber(gomock.Any(), "INV-1").Return(false, nil)
	st.EXPECT().CreateBill(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, bill domain.ValidatedBill) (*domain.PersistedBill, error) {
			return persisted(bill), nil
		}).Times(1)
	brokerErr := errors.New("nack")
	pub.EXPECT().PublishBillCreated(gomock.Any(), gomock.Any()).Return(brokerErr)

	// no compensating delete is expected on the storage mock
	created, err := b.Create(context.Background(), validCommand())
	require.Nil(t, created)
	require.ErrorIs(t, err, serrors.ErrMessaging)
	require.ErrorIs(t, err, brokerErr)
}

func TestBilling_Create_Outbox(t *testing.T) {
	ctrl, st, _, b := newTestBilling(t, billing.DeliveryOutbox)

	st.EXPECT().BillExistsByNumber(gomock.Any(), "INV-1").Return(false, nil)
	expectWithTx(t, ctrl, st, func(tx *mockstorage.MockAllStorage) {
		tx.EXPECT().CreateBill(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, bill domain.ValidatedBill) (*domain.PersistedBill, error) {
				return persisted(bill), nil
			})
		tx.EXPECT().AddJob(gomock.Any(), gomock.Any(), gomock.Nil()).DoAndReturn(
			func(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (bool, error) {
				job, ok := args.(billing.BillCreatedJobArgs)
				require.True(t, ok)
				require.Equal(t, int64(11), job.BillID)
				require.Equal(t, 5, job.InsertOpts().MaxAttempts)
				require.True(t, job.InsertOpts().UniqueOpts.ByArgs)
				require.Contains(t, string(job.Envelope), `"billNumber":"INV-1"`)

				return true, nil
			})
	})

	// the publisher mock has no expectations: publishing is left to the worker
	created, err := b.Create(context.Background(), validCommand())
	require.NoError(t, err)
	require.Equal(t, int64(11), created.ID)
}

func TestBilling_Create_OutboxEnqueueFailure(t *testing.T) {
	ctrl, st, _, b := newTestBilling(t, billing.DeliveryOutbox)

	st.EXPECT().BillExistsByNumber(gomock.Any(), "INV-1").Return(false, nil)
	expectWithTx(t, ctrl, st, func(tx *mockstorage.MockAllStorage) {
		tx.EXPECT().CreateBill(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, bill domain.ValidatedBill) (*domain.PersistedBill, error) {
				return persisted(bill), nil
			})
		tx.EXPECT().AddJob(gomock.Any(), gomock.Any(), gomock.Nil()).Return(false, errors.New("river down"))
	})

	_, err := b.Create(context.Background(), validCommand())
	require.ErrorIs(t, err, serrors.ErrInternal)
}

func TestBilling_List(t *testing.T) {
	_, st, _, b := newTestBilling(t, billing.DeliveryDirect)

	summaries := []domain.BillSummary{{ID: 1, BillNumber: "INV-1", IssuedAt: issued, Total: dec("30.99"), Currency: "USD"}}
	st.EXPECT().BillSummaries(gomock.Any()).Return(summaries, nil)

	got, err := b.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, summaries, got)

	st.EXPECT().BillSummaries(gomock.Any()).Return(nil, errors.New("timeout"))
	_, err = b.List(context.Background())
	require.ErrorIs(t, err, serrors.ErrInternal)
}
