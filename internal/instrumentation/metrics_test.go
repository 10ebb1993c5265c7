package instrumentation

import (
	"context"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, ctx context.Context, detailed bool) *Provider {
	t.Helper()
	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
		DetailedLabels:  detailed,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/mcp", 200, 100*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "POST", "/mcp", 500, 50*time.Millisecond)
}

func TestMetrics_RecordSchedulingRequest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()

	// Should not panic
	metrics.RecordSchedulingRequest(ctx, OutcomeOK, 120*time.Millisecond, 12)
	metrics.RecordSchedulingRequest(ctx, OutcomePartial, 2*time.Second, 4)
	metrics.RecordSchedulingRequest(ctx, OutcomeEmpty, time.Millisecond, 0)
	metrics.RecordSchedulingRequest(ctx, OutcomeRejected, time.Millisecond, 0)
	metrics.RecordSchedulingRequest(ctx, OutcomeCanceled, time.Second, 0)
}

func TestMetrics_RecordProviderFetch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()

	// Should not panic
	metrics.RecordProviderFetch(ctx, ProviderGoogle, "ok", 200*time.Millisecond)
	metrics.RecordProviderFetch(ctx, ProviderGraph, "unknown", 10*time.Second)
	metrics.RecordProviderFetch(ctx, ProviderFile, "ok", time.Microsecond)
}

func TestMetrics_RecordBooking(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()

	// Should not panic
	metrics.RecordBooking(ctx, BookingCreated)
	metrics.RecordBooking(ctx, BookingExisting)
	metrics.RecordBooking(ctx, BookingError)
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()

	// Should not panic
	metrics.RecordToolInvocation(ctx, "find_meeting_slots", StatusSuccess, 300*time.Millisecond)
	metrics.RecordToolInvocation(ctx, "book_meeting_slot", StatusError, 100*time.Millisecond)
}

func TestMetrics_RecordToolInvocationWithParticipants_DetailedLabels(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, true).Metrics()
	if !metrics.detailedLabels {
		t.Fatal("expected detailed labels to be enabled")
	}

	// Should not panic
	metrics.RecordToolInvocationWithParticipants(ctx, "find_meeting_slots", StatusSuccess, 4, 300*time.Millisecond)
	metrics.RecordToolInvocationWithParticipants(ctx, "find_meeting_slots", StatusSuccess, 0, 300*time.Millisecond)
}

func TestMetrics_NoOp_WhenDisabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewProvider(ctx, Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil even when disabled")
	}

	// All these should not panic even with nil underlying metrics
	metrics.RecordHTTPRequest(ctx, "GET", "/mcp", 200, 100*time.Millisecond)
	metrics.RecordSchedulingRequest(ctx, OutcomeOK, time.Second, 3)
	metrics.RecordProviderFetch(ctx, ProviderGoogle, "ok", time.Second)
	metrics.RecordBooking(ctx, BookingCreated)
	metrics.RecordToolInvocation(ctx, "test_tool", StatusSuccess, 100*time.Millisecond)
	metrics.RecordToolInvocationWithParticipants(ctx, "test_tool", StatusSuccess, 2, 100*time.Millisecond)
}
