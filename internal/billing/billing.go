package billing

import (
	"bills/internal/config"
	"bills/pkg/domain"
	"bills/pkg/logger"
	"bills/pkg/metrics"
	"bills/pkg/publisher"
	"bills/pkg/serrors"
	"bills/pkg/storage"
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Delivery selects how the bill.created event leaves the service.
type Delivery string

const (
	// DeliveryDirect publishes after the bill transaction committed and fails
	// the call when the broker does not confirm. The bill stays stored.
	DeliveryDirect Delivery = "direct"
	// DeliveryOutbox enqueues a publish job inside the bill transaction. The
	// worker publishes it with retries.
	DeliveryOutbox Delivery = "outbox"
)

const tracerName = "bills/billing"

// Options configure event delivery.
type Options struct {
	// Delivery is DeliveryDirect unless set otherwise.
	Delivery Delivery
	// Source is stamped on every event.
	Source string
	// MaxAttempts bounds the retries of an outbox job.
	MaxAttempts int
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Delivery:    Delivery(cfg.Events.Delivery),
		Source:      cfg.Events.Source,
		MaxAttempts: cfg.Outbox.MaxAttempts,
	}
}

// billing is the concrete implementation of the Billing interface.
type billing struct {
	options   Options
	storage   storage.Storage
	publisher publisher.Publisher
	metrics   *metrics.BillingMetrics
	tracer    trace.Tracer
	now       func() time.Time
}

// Create runs the workflow: duplicate pre-check, validation, persistence and
// publication. A publication failure in direct delivery does not undo the
// stored bill.
func (b *billing) Create(ctx context.Context, cmd CreateCommand) (_ *domain.PersistedBill, err error) {
	number := strings.TrimSpace(cmd.BillNumber)

	ctx, span := b.tracer.Start(ctx, "billing.Create", trace.WithAttributes(
		attribute.String("bill.number", number),
		attribute.String("bill.delivery", string(b.options.Delivery)),
	))
	started := time.Now()
	defer func() {
		var kind string
		if err != nil {
			kind = serrors.KindOf(err).Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, kind)
		}
		b.metrics.RecordCreate(ctx, kind, time.Since(started))
		span.End()
	}()

	// Invalid text is reported by validation; the database would reject it.
	if number != "" && domain.ValidText(number) {
		exists, err := b.storage.BillExistsByNumber(ctx, number)
		if err != nil {
			return nil, serrors.Wrap(serrors.ErrInternal, err, "could not check bill number")
		}
		if exists {
			return nil, conflict(number)
		}
	}

	bill, err := buildBill(cmd)
	if err != nil {
		return nil, err
	}

	if b.options.Delivery == DeliveryOutbox {
		return b.createWithOutbox(ctx, bill)
	}

	return b.createAndPublish(ctx, bill)
}

func (b *billing) createAndPublish(ctx context.Context, bill domain.ValidatedBill) (*domain.PersistedBill, error) {
	created, err := b.storage.CreateBill(ctx, bill)
	if err != nil {
		return nil, persistError(bill, err)
	}
	b.metrics.RecordCommitted(ctx)

	ctx = logger.WithFields(ctx, zap.Int64("bill_id", created.ID), zap.String("bill_number", created.BillNumber))

	event := domain.NewBillCreatedEvent(*created, b.options.Source, b.now())
	if err := b.publisher.PublishBillCreated(ctx, event); err != nil {
		return nil, serrors.Wrap(serrors.ErrMessaging, err, "could not publish bill created event")
	}
	b.metrics.RecordPublished(ctx, string(DeliveryDirect))
	logger.Debug(ctx, "bill created")

	return created, nil
}

func (b *billing) createWithOutbox(ctx context.Context, bill domain.ValidatedBill) (*domain.PersistedBill, error) {
	var created *domain.PersistedBill
	if err := b.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		var err error
		created, err = tx.CreateBill(ctx, bill)
		if err != nil {
			return err
		}

		event := domain.NewBillCreatedEvent(*created, b.options.Source, b.now())
		if _, err := tx.AddJob(ctx, NewBillCreatedJobArgs(event, b.options.MaxAttempts), nil); err != nil {
			return serrors.Wrap(serrors.ErrInternal, err, "could not enqueue bill created event")
		}

		return nil
	}); err != nil {
		return nil, persistError(bill, err)
	}
	b.metrics.RecordCommitted(ctx)

	logger.Debug(ctx, "bill created, event queued",
		zap.Int64("bill_id", created.ID),
		zap.String("bill_number", created.BillNumber))

	return created, nil
}

// List reads the bill summaries; totals come from the stored lines.
func (b *billing) List(ctx context.Context) ([]domain.BillSummary, error) {
	summaries, err := b.storage.BillSummaries(ctx)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrInternal, err, "could not list bills")
	}

	return summaries, nil
}

// buildBill validates every line and the header, and reports all failures
// together.
func buildBill(cmd CreateCommand) (domain.ValidatedBill, error) {
	fields := domain.FieldErrors{}
	lines := make([]domain.ValidatedBillLine, 0, len(cmd.Lines))
	for i, l := range cmd.Lines {
		line, err := domain.NewLine(i+1, l.Concept, l.Quantity, l.UnitAmount)
		if err != nil {
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				return domain.ValidatedBill{}, serrors.Wrap(serrors.ErrInternal, err, "could not build line")
			}
			fields.Merge(verr.Fields)

			continue
		}
		lines = append(lines, line)
	}

	if !fields.Empty() {
		fields.Merge(domain.ValidateHeader(cmd.BillNumber, cmd.IssuedAt, cmd.CustomerName, cmd.Currency, cmd.Tax))

		return domain.ValidatedBill{}, serrors.Invalid(fields, "Validation failed")
	}

	bill, err := domain.NewBill(cmd.BillNumber, cmd.IssuedAt, cmd.CustomerName, cmd.Currency, cmd.Tax, lines)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return domain.ValidatedBill{}, serrors.Invalid(verr.Fields, "Validation failed")
		}

		return domain.ValidatedBill{}, serrors.Wrap(serrors.ErrInternal, err, "could not build bill")
	}

	return bill, nil
}

// persistError classifies a storage failure. A unique violation means another
// request stored the same number after the pre-check.
func persistError(bill domain.ValidatedBill, err error) error {
	if errors.Is(err, storage.ErrDuplicateBillNumber) {
		return conflict(bill.Number())
	}

	var serr *serrors.Error
	if errors.As(err, &serr) {
		return err
	}

	return serrors.Wrap(serrors.ErrInternal, err, "could not store bill")
}

func conflict(number string) error {
	return serrors.With(serrors.ErrConflict, "Bill number '%s' already exists.", number)
}

// New creates a new Billing instance. metrics may be nil.
func New(storage storage.Storage, publisher publisher.Publisher, metrics *metrics.BillingMetrics, options Options) Billing {
	if options.Delivery == "" {
		options.Delivery = DeliveryDirect
	}

	return &billing{
		options:   options,
		storage:   storage,
		publisher: publisher,
		metrics:   metrics,
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
}
