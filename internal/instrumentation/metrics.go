package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrMethod       = "method"
	attrPath         = "path"
	attrStatus       = "status"
	attrOutcome      = "outcome"
	attrProvider     = "provider"
	attrTool         = "tool"
	attrParticipants = "participants"
)

// Metrics provides methods for recording observability metrics.
// It implements availability.Recorder.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Scheduling metrics
	schedulingRequestsTotal   metric.Int64Counter
	schedulingRequestDuration metric.Float64Histogram
	candidateSlots            metric.Int64Histogram

	// Calendar provider metrics
	providerFetchTotal    metric.Int64Counter
	providerFetchDuration metric.Float64Histogram

	// Booking metrics
	bookingsTotal metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Configuration
	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	// Scheduling Metrics
	m.schedulingRequestsTotal, err = meter.Int64Counter(
		"scheduling_requests_total",
		metric.WithDescription("Total number of scheduling requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduling_requests_total counter: %w", err)
	}

	m.schedulingRequestDuration, err = meter.Float64Histogram(
		"scheduling_request_duration_seconds",
		metric.WithDescription("End-to-end scheduling request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduling_request_duration_seconds histogram: %w", err)
	}

	m.candidateSlots, err = meter.Int64Histogram(
		"candidate_slots",
		metric.WithDescription("Number of candidate slots found before ranking"),
		metric.WithUnit("{slot}"),
		metric.WithExplicitBucketBoundaries(0, 1, 3, 5, 10, 20, 50),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate_slots histogram: %w", err)
	}

	// Calendar Provider Metrics
	m.providerFetchTotal, err = meter.Int64Counter(
		"provider_fetch_total",
		metric.WithDescription("Total number of busy-interval fetches by provider and source status"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_fetch_total counter: %w", err)
	}

	m.providerFetchDuration, err = meter.Float64Histogram(
		"provider_fetch_duration_seconds",
		metric.WithDescription("Busy-interval fetch duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_fetch_duration_seconds histogram: %w", err)
	}

	m.bookingsTotal, err = meter.Int64Counter(
		"bookings_total",
		metric.WithDescription("Total number of meeting bookings by result"),
		metric.WithUnit("{booking}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bookings_total counter: %w", err)
	}

	// MCP Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSchedulingRequest records a finished scheduling request.
//
// Parameters:
//   - outcome: ok, partial, empty, rejected or canceled
//   - duration: Time taken for the whole request
//   - candidates: Number of candidate slots found before ranking
func (m *Metrics) RecordSchedulingRequest(ctx context.Context, outcome string, duration time.Duration, candidates int) {
	if m.schedulingRequestsTotal == nil || m.schedulingRequestDuration == nil || m.candidateSlots == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(attribute.String(attrOutcome, outcome))

	m.schedulingRequestsTotal.Add(ctx, 1, attrs)
	m.schedulingRequestDuration.Record(ctx, duration.Seconds(), attrs)
	if outcome != OutcomeRejected && outcome != OutcomeCanceled {
		m.candidateSlots.Record(ctx, int64(candidates))
	}
}

// RecordProviderFetch records one participant's busy-interval fetch.
//
// Parameters:
//   - provider: Calendar backend name (google, graph, file, static)
//   - status: Source status of the answer (ok, unavailable, unknown)
//   - duration: Time taken for the fetch
func (m *Metrics) RecordProviderFetch(ctx context.Context, provider, status string, duration time.Duration) {
	if m.providerFetchTotal == nil || m.providerFetchDuration == nil {
		return // Instrumentation not initialized
	}

	m.providerFetchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrStatus, status),
	))
	m.providerFetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrProvider, provider),
	))
}

// RecordBooking records a booking attempt. Result should be one of:
// "created", "existing", "error".
func (m *Metrics) RecordBooking(ctx context.Context, result string) {
	if m.bookingsTotal == nil {
		return // Instrumentation not initialized
	}

	m.bookingsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, result)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "find_meeting_slots")
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	m.RecordToolInvocationWithParticipants(ctx, toolName, status, 0, duration)
}

// RecordToolInvocationWithParticipants records an MCP tool invocation together with the
// size of the participant set, bucketed when detailedLabels is enabled.
func (m *Metrics) RecordToolInvocationWithParticipants(ctx context.Context, toolName, status string, participants int, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	// Only add the extra label if explicitly enabled
	if m.detailedLabels && participants > 0 {
		attrs = append(attrs, attribute.String(attrParticipants, ParticipantBucket(participants)))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
