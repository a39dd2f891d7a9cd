// Package metrics wires OpenTelemetry metrics to the Prometheus registry and
// defines the instruments recorded by the billing workflow.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

// MeterName is the instrumentation scope of the billing instruments.
const MeterName = "bills/billing"

// NewMeterProvider creates a MeterProvider whose readings are exported through
// reg, so they are served next to the native Prometheus collectors.
func NewMeterProvider(reg prometheus.Registerer) (*sdkmetric.MeterProvider, error) {
	exp, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp)), nil
}

// BillingMetrics holds the instruments recorded around bill creation and
// event publication.
type BillingMetrics struct {
	created   metric.Int64Counter
	failures  metric.Int64Counter
	duration  metric.Float64Histogram
	published metric.Int64Counter
}

// NewBillingMetrics registers the billing instruments on meter.
func NewBillingMetrics(meter metric.Meter) (*BillingMetrics, error) {
	created, err := meter.Int64Counter("bills_created",
		metric.WithDescription("Bills committed to storage."))
	if err != nil {
		return nil, fmt.Errorf("could not create bills_created counter: %w", err)
	}

	failures, err := meter.Int64Counter("bill_create_failures",
		metric.WithDescription("Failed bill creations by error kind."))
	if err != nil {
		return nil, fmt.Errorf("could not create bill_create_failures counter: %w", err)
	}

	duration, err := meter.Float64Histogram("bill_create_duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time spent creating a bill, publication included."),
		metric.WithExplicitBucketBoundaries(DefaultBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create bill_create_duration histogram: %w", err)
	}

	published, err := meter.Int64Counter("bill_events_published",
		metric.WithDescription("bill.created events confirmed by the broker."))
	if err != nil {
		return nil, fmt.Errorf("could not create bill_events_published counter: %w", err)
	}

	return &BillingMetrics{
		created:   created,
		failures:  failures,
		duration:  duration,
		published: published,
	}, nil
}

// RecordCreate records the duration of one Create call and, when kind is not
// empty, counts it as a failure of that kind. A nil receiver records nothing.
func (m *BillingMetrics) RecordCreate(ctx context.Context, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}

	outcome := "ok"
	if kind != "" {
		outcome = "error"
		m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordCommitted counts a bill that reached storage even though the call as
// a whole may still fail on publication.
func (m *BillingMetrics) RecordCommitted(ctx context.Context) {
	if m == nil {
		return
	}

	m.created.Add(ctx, 1)
}

// RecordPublished counts a confirmed event for the given delivery mode.
func (m *BillingMetrics) RecordPublished(ctx context.Context, delivery string) {
	if m == nil {
		return
	}

	m.published.Add(ctx, 1, metric.WithAttributes(attribute.String("delivery", delivery)))
}
