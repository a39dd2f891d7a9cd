package worker

import (
	"bills/internal/billing"
	"bills/internal/config"
	"bills/pkg/idempotency"
	"bills/pkg/logger"
	"bills/pkg/metrics"
	"bills/pkg/publisher"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

const publishTimeout = 30 * time.Second

// BillCreatedWorkerOptions configure the outbox publisher.
type BillCreatedWorkerOptions struct {
	// PublishedTTL is how long a published bill is remembered. Retries of the
	// same job within this window are skipped.
	PublishedTTL time.Duration
}

// NewBillCreatedWorkerOptions constructs options from the application config.
func NewBillCreatedWorkerOptions(cfg *config.Config) BillCreatedWorkerOptions {
	return BillCreatedWorkerOptions{PublishedTTL: cfg.Redis.PublishedTTL}
}

// BillCreatedWorker publishes the events queued by outbox delivery. Delivery
// is at-least-once: a crash between the broker confirm and the job
// completion publishes again, unless the idempotency store remembers the
// bill.
type BillCreatedWorker struct {
	river.WorkerDefaults[billing.BillCreatedJobArgs]

	publisher publisher.Publisher
	published idempotency.Store
	metrics   *metrics.BillingMetrics
	options   BillCreatedWorkerOptions
}

// NewBillCreatedWorker constructs the worker. metrics may be nil.
func NewBillCreatedWorker(
	publisher publisher.Publisher,
	published idempotency.Store,
	metrics *metrics.BillingMetrics,
	options BillCreatedWorkerOptions,
) *BillCreatedWorker {
	return &BillCreatedWorker{
		publisher: publisher,
		published: published,
		metrics:   metrics,
		options:   options,
	}
}

// Timeout bounds a single publish attempt, confirm included.
func (w *BillCreatedWorker) Timeout(*river.Job[billing.BillCreatedJobArgs]) time.Duration {
	return publishTimeout
}

// Work publishes one queued event. A malformed envelope cancels the job since
// no retry can fix it; broker failures are returned so River retries.
func (w *BillCreatedWorker) Work(ctx context.Context, job *river.Job[billing.BillCreatedJobArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID), zap.Int64("bill_id", job.Args.BillID))
	key := "bill:" + strconv.FormatInt(job.Args.BillID, 10)

	done, err := w.published.IsProcessed(ctx, key)
	if err != nil {
		// publishing twice is acceptable, not publishing is not
		logger.Warn(ctx, "could not check published bills", zap.Error(err))
	}
	if done {
		logger.Info(ctx, "bill created event already published, skipping")

		return nil
	}

	env, err := publisher.DecodeEnvelope(job.Args.Envelope)
	if err != nil {
		logger.Error(ctx, "invalid bill created envelope", zap.Error(err))

		return river.JobCancel(fmt.Errorf("could not decode envelope: %w", err)) //nolint: wrapcheck
	}

	if err := w.publisher.PublishBillCreated(ctx, env.Payload); err != nil {
		logger.Error(ctx, "error in publishing bill created event",
			zap.Error(err),
			zap.Int("attempt", job.Attempt))

		return fmt.Errorf("could not publish bill created event: %w", err)
	}

	if _, err := w.published.MarkProcessed(ctx, key, w.options.PublishedTTL); err != nil {
		logger.Warn(ctx, "could not remember published bill", zap.Error(err))
	}
	w.metrics.RecordPublished(ctx, string(billing.DeliveryOutbox))

	logger.Info(ctx, "bill created event published")

	return nil
}
