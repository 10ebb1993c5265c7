package instrumentation

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Config selects the telemetry exporters. It is filled from the telemetry
// section of the meetslot configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// ServiceInstanceID defaults to the hostname.
	ServiceInstanceID string

	// Enabled turns metrics and tracing on. A disabled provider records nothing.
	Enabled bool

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string

	// TracingExporter is one of otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port of the collector, without scheme.
	OTLPEndpoint string

	// OTLPInsecure disables TLS towards the collector. Spans carry participant
	// counts and provider names, so keep it off outside development.
	OTLPInsecure bool

	// TraceSamplingRate is the ratio of sampled root spans, 0 to 1.
	TraceSamplingRate float64

	// DetailedLabels adds the bucketed participant count to scheduling metrics.
	DetailedLabels bool
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	Enabled bool

	// IncludePII logs participant addresses instead of their hashes.
	// Audit logs must then be stored with matching access controls.
	IncludePII bool
}

// DefaultConfig returns the defaults: Prometheus metrics, no tracing.
func DefaultConfig() Config {
	return Config{
		ServiceName:       DefaultServiceName,
		ServiceVersion:    "unknown",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: DefaultTraceSamplingRate,
	}
}

// instanceID returns the configured instance ID or the hostname.
func (c Config) instanceID() string {
	if c.ServiceInstanceID != "" {
		return c.ServiceInstanceID
	}
	hostname, err := os.Hostname()
	if err != nil {
		return ""
	}
	return hostname
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, errors.New("service name is required"))
	}
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		errs = append(errs, fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate))
	}

	switch c.MetricsExporter {
	case ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			errs = append(errs, errors.New("OTLP endpoint is required when using OTLP metrics exporter"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter))
	}

	switch c.TracingExporter {
	case ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			errs = append(errs, errors.New("OTLP endpoint is required when using OTLP tracing exporter"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter))
	}

	return errors.Join(errs...)
}

// Telemetry defaults.
const (
	DefaultServiceName       = "meetslot"
	DefaultTraceSamplingRate = 0.1
)

// Constants for metric label values.
const (
	// Status values
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"

	// Scheduling request outcomes.
	// Note: These mirror the availability package, which imports this one.
	OutcomeOK       = "ok"
	OutcomePartial  = "partial"
	OutcomeEmpty    = "empty"
	OutcomeRejected = "rejected"
	OutcomeCanceled = "canceled"

	// Booking results
	BookingCreated  = "created"
	BookingExisting = "existing"
	BookingError    = "error"

	// Calendar provider names
	ProviderGoogle = "google"
	ProviderGraph  = "graph"
	ProviderFile   = "file"
	ProviderStatic = "static"

	// Exporter types
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	// Metric recording intervals
	DefaultMetricInterval = 10 * time.Second
)
