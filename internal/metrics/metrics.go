// Package metrics records lifecycle and reconciliation counters through
// OpenTelemetry. A nil *Recorder is valid and records nothing.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mikecbrant/event-streams/internal/eventstream"
)

const instrumentationName = "github.com/mikecbrant/event-streams"

// Recorder holds the service instruments.
type Recorder struct {
	operations       metric.Int64Counter
	duration         metric.Float64Histogram
	notifications    metric.Int64Counter
	versionConflicts metric.Int64Counter
}

// New creates the instruments on mp, or on the global provider when mp is nil.
func New(mp metric.MeterProvider) (*Recorder, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	operations, err := meter.Int64Counter(
		"lifecycle_operations_total",
		metric.WithDescription("Lifecycle operations by operation and outcome"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"lifecycle_operation_duration_seconds",
		metric.WithDescription("Lifecycle operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter(
		"status_notifications_total",
		metric.WithDescription("Stack status notifications by resource kind and result"),
	)
	if err != nil {
		return nil, err
	}
	versionConflicts, err := meter.Int64Counter(
		"store_version_conflicts_total",
		metric.WithDescription("Optimistic-lock conflicts that forced a re-read"),
	)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		operations:       operations,
		duration:         duration,
		notifications:    notifications,
		versionConflicts: versionConflicts,
	}, nil
}

// Outcome buckets an operation error: "ok", "rejected" for client-visible
// domain errors, "error" otherwise.
func Outcome(err error) string {
	switch status := eventstream.HTTPStatus(err); {
	case err == nil:
		return "ok"
	case status < 500:
		return "rejected"
	default:
		return "error"
	}
}

// Operation records one lifecycle call that started at start.
func (r *Recorder) Operation(ctx context.Context, op string, start time.Time, err error) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", Outcome(err)),
	)
	r.operations.Add(ctx, 1, attrs)
	r.duration.Record(ctx, time.Since(start).Seconds(), attrs)
}

// Notification records one processed status notification.
func (r *Recorder) Notification(ctx context.Context, kind, result string) {
	if r == nil {
		return
	}
	r.notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("result", result),
	))
}

// VersionConflict records a lost compare-and-swap in op.
func (r *Recorder) VersionConflict(ctx context.Context, op string) {
	if r == nil {
		return
	}
	r.versionConflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}
