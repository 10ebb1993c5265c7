// Package instrumentation provides OpenTelemetry instrumentation for meetslot.
//
// This package enables observability through:
//   - OpenTelemetry metrics for scheduling requests, calendar fetches and MCP tools
//   - Distributed tracing for scheduling requests and calendar backend calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// Scheduling Metrics:
//   - scheduling_requests_total: Counter of scheduling requests by outcome
//   - scheduling_request_duration_seconds: Histogram of request durations
//   - candidate_slots: Histogram of candidate slots found before ranking
//
// Calendar Provider Metrics:
//   - provider_fetch_total: Counter of busy-interval fetches by provider and status
//   - provider_fetch_duration_seconds: Histogram of fetch durations by provider
//   - bookings_total: Counter of booking attempts by result
//
// Server and MCP Tool Metrics:
//   - http_requests_total, http_request_duration_seconds
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//
// # Tracing
//
// Spans are created for:
//   - Scheduling requests (availability.find_slots), with one event per phase
//   - MCP tool invocations (tool.<name>)
//   - Calendar backend calls (<provider>.<operation>)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: meetslot)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	engine := availability.NewEngine(registry,
//		availability.WithMetrics(provider.Recorder()))
package instrumentation
