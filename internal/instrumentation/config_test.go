package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, DefaultServiceName, config.ServiceName)
	assert.True(t, config.Enabled)
	assert.Equal(t, ExporterPrometheus, config.MetricsExporter)
	assert.Equal(t, ExporterNone, config.TracingExporter)
	assert.Equal(t, DefaultTraceSamplingRate, config.TraceSamplingRate)
	assert.False(t, config.DetailedLabels)
	assert.NoError(t, config.Validate())
}

func TestConfig_InstanceID(t *testing.T) {
	assert.Equal(t, "pod-1", Config{ServiceInstanceID: "pod-1"}.instanceID())
	assert.NotPanics(t, func() { _ = Config{}.instanceID() })
}

func TestConfig_Validate(t *testing.T) {
	valid := func(mutate func(*Config)) Config {
		c := DefaultConfig()
		mutate(&c)
		return c
	}

	tests := []struct {
		name        string
		config      Config
		errContains []string
	}{
		{
			name:   "otlp tracing with endpoint",
			config: valid(func(c *Config) { c.TracingExporter = ExporterOTLP; c.OTLPEndpoint = "localhost:4318" }),
		},
		{
			name:   "stdout metrics",
			config: valid(func(c *Config) { c.MetricsExporter = ExporterStdout }),
		},
		{
			name:        "missing service name",
			config:      valid(func(c *Config) { c.ServiceName = "" }),
			errContains: []string{"service name is required"},
		},
		{
			name:        "negative sampling rate",
			config:      valid(func(c *Config) { c.TraceSamplingRate = -0.5 }),
			errContains: []string{"sampling rate"},
		},
		{
			name:        "sampling rate above 1",
			config:      valid(func(c *Config) { c.TraceSamplingRate = 1.5 }),
			errContains: []string{"sampling rate"},
		},
		{
			name:        "unknown metrics exporter",
			config:      valid(func(c *Config) { c.MetricsExporter = "graphite" }),
			errContains: []string{"invalid metrics exporter"},
		},
		{
			name:        "empty tracing exporter",
			config:      valid(func(c *Config) { c.TracingExporter = "" }),
			errContains: []string{"invalid tracing exporter"},
		},
		{
			name:        "otlp tracing without endpoint",
			config:      valid(func(c *Config) { c.TracingExporter = ExporterOTLP }),
			errContains: []string{"OTLP endpoint is required when using OTLP tracing exporter"},
		},
		{
			name: "all problems are reported",
			config: valid(func(c *Config) {
				c.MetricsExporter = ExporterOTLP
				c.TracingExporter = ExporterOTLP
				c.TraceSamplingRate = 2
			}),
			errContains: []string{"sampling rate", "OTLP metrics exporter", "OTLP tracing exporter"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if len(tt.errContains) == 0 {
				assert.NoError(t, err)
				return
			}
			for _, want := range tt.errContains {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}
