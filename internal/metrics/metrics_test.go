package metrics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/mikecbrant/event-streams/internal/eventstream"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, key, value string) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected int64 sum, got %T", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestRecorder(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	r, err := New(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	r.Operation(ctx, "stream.create", time.Now(), nil)
	r.Operation(ctx, "stream.create", time.Now(), fmt.Errorf("%w: ds/1", eventstream.ErrConflict))
	r.Operation(ctx, "sink.enable", time.Now(), fmt.Errorf("boom"))
	r.Notification(ctx, "event-sink", "applied")
	r.VersionConflict(ctx, "sink.enable")

	got := collect(t, reader)
	ops := got["lifecycle_operations_total"]
	if sumFor(t, ops, "operation", "stream.create") != 2 {
		t.Fatalf("expected two stream.create operations")
	}
	if sumFor(t, ops, "outcome", "rejected") != 1 || sumFor(t, ops, "outcome", "error") != 1 || sumFor(t, ops, "outcome", "ok") != 1 {
		t.Fatalf("unexpected outcomes: %+v", ops)
	}
	if sumFor(t, got["status_notifications_total"], "result", "applied") != 1 {
		t.Fatalf("expected one applied notification")
	}
	if sumFor(t, got["store_version_conflicts_total"], "operation", "sink.enable") != 1 {
		t.Fatalf("expected one version conflict")
	}
	if _, ok := got["lifecycle_operation_duration_seconds"].(metricdata.Histogram[float64]); !ok {
		t.Fatalf("expected duration histogram")
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Operation(context.Background(), "x", time.Now(), nil)
	r.Notification(context.Background(), "x", "y")
	r.VersionConflict(context.Background(), "x")
}

func TestOutcome(t *testing.T) {
	if Outcome(nil) != "ok" {
		t.Fatalf("nil")
	}
	if Outcome(&eventstream.ValidationError{Field: "type"}) != "rejected" {
		t.Fatalf("validation")
	}
	if Outcome(eventstream.ErrParentNotReady) != "rejected" {
		t.Fatalf("parent not ready")
	}
}
