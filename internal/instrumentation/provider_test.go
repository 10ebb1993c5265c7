package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(metrics, tracing string) Config {
	c := DefaultConfig()
	c.ServiceName = "test-service"
	c.ServiceVersion = "1.0.0"
	c.ServiceInstanceID = "test-instance"
	c.MetricsExporter = metrics
	c.TracingExporter = tracing
	return c
}

func TestNewProvider_Disabled(t *testing.T) {
	config := testConfig(ExporterPrometheus, ExporterNone)
	config.Enabled = false

	provider, err := NewProvider(context.Background(), config)
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.False(t, provider.PrometheusEnabled())
	assert.NotNil(t, provider.Metrics(), "metrics must be usable when disabled")
	assert.NotNil(t, provider.Tracer("test"))
	assert.NoError(t, provider.Shutdown(context.Background()))

	// The recorder of a disabled provider must be usable.
	provider.Recorder().RecordSchedulingRequest(context.Background(), OutcomeOK, time.Second, 3)
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name           string
		metrics        string
		tracing        string
		wantPrometheus bool
	}{
		{"prometheus without tracing", ExporterPrometheus, ExporterNone, true},
		{"stdout metrics and traces", ExporterStdout, ExporterStdout, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			provider, err := NewProvider(ctx, testConfig(tt.metrics, tt.tracing))
			require.NoError(t, err)
			defer func() { _ = provider.Shutdown(ctx) }()

			assert.True(t, provider.Enabled())
			assert.Equal(t, tt.wantPrometheus, provider.PrometheusEnabled())
			assert.NotNil(t, provider.Metrics())
			assert.Same(t, provider.Metrics(), provider.Recorder())
			assert.NotNil(t, provider.Tracer("test"))
		})
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"unknown metrics exporter", testConfig("invalid", ExporterNone)},
		{"unknown tracing exporter", testConfig(ExporterPrometheus, "invalid")},
		{"otlp tracing without endpoint", testConfig(ExporterPrometheus, ExporterOTLP)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			assert.ErrorContains(t, err, "invalid instrumentation config")
		})
	}
}

func TestProvider_Shutdown(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, testConfig(ExporterStdout, ExporterNone))
	require.NoError(t, err)
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_Recorder_Nil(t *testing.T) {
	var provider *Provider
	require.NotNil(t, provider.Recorder(), "a nil provider returns a no-op recorder")
	provider.Recorder().RecordProviderFetch(context.Background(), ProviderGoogle, "ok", time.Second)
}
