package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetslot/internal/availability"
	"github.com/teemow/meetslot/internal/instrumentation"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meetslot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	policy, err := cfg.Policy()
	require.NoError(t, err)
	def := availability.DefaultPolicy()
	assert.Equal(t, def.WorkStart, policy.WorkStart)
	assert.Equal(t, def.WorkEnd, policy.WorkEnd)
	assert.Equal(t, def.LunchStart, policy.LunchStart)
	assert.Equal(t, def.LunchEnd, policy.LunchEnd)
	assert.Equal(t, availability.DefaultTimezone, policy.Location.String())
	assert.True(t, policy.ExcludeWeekends)

	table, err := cfg.ScoringTable()
	require.NoError(t, err)
	assert.Equal(t, availability.DefaultScoringTable(), table)

	assert.Equal(t, availability.DefaultTopN, cfg.TopN)
	assert.Equal(t, availability.DefaultStep, cfg.Step)
	assert.Equal(t, availability.DefaultFetchTimeout, cfg.FetchTimeout)
	assert.Equal(t, availability.DefaultDurationMinutes, cfg.DefaultDuration)
	assert.Equal(t, availability.DefaultMaxConcurrentFetches, cfg.MaxConcurrentFetches)
	assert.Equal(t, BackendGoogle, cfg.DefaultBackend)
	assert.Len(t, cfg.Routes, 3)
	assert.Equal(t, "default", cfg.Google.Account)
	assert.False(t, cfg.Graph.Configured())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
timezone: UTC
working_hours: {start: "08:00", end: "17:00"}
lunch: {start: "12:30", end: "13:30"}
exclude_weekends: false
top_n: 5
step: 15m
fetch_timeout: 3s
default_duration: 60
max_concurrent_fetches: 4
scoring:
  default: 0.5
  bands: ["[09:00,10:00)=1"]
default_backend: graph
routes:
  - {participant: ceo@example.com, provider: google}
graph:
  tenant_id: tenant
  client_id: client
  client_secret: secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	policy, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, policy.Location)
	assert.Equal(t, availability.Clock(8, 0), policy.WorkStart)
	assert.Equal(t, availability.Clock(13, 30), policy.LunchEnd)
	assert.False(t, policy.ExcludeWeekends)

	table, err := cfg.ScoringTable()
	require.NoError(t, err)
	require.Len(t, table.Bands, 1)
	assert.Equal(t, 1.0, table.Bands[0].Score)
	assert.Equal(t, 0.5, table.Default)

	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, 15*time.Minute, cfg.Step)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 60, cfg.DefaultDuration)
	assert.Equal(t, 4, cfg.MaxConcurrentFetches)
	assert.Equal(t, []Route{{Participant: "ceo@example.com", Provider: BackendGoogle}}, cfg.Routes)
	assert.True(t, cfg.Graph.Configured())

	opts, err := cfg.EngineOptions()
	require.NoError(t, err)
	e := availability.NewEngine(nil, opts...)
	assert.Equal(t, time.UTC, e.Policy().Location)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("MEETSLOT_TIMEZONE", "UTC")
	t.Setenv("MEETSLOT_TOP_N", "7")
	t.Setenv("MEETSLOT_WORKING_HOURS_END", "19:00")
	t.Setenv("MEETSLOT_GRAPH_CLIENT_SECRET", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 7, cfg.TopN)
	assert.Equal(t, "19:00", cfg.WorkingHours.End)
	assert.Equal(t, "from-env", cfg.Graph.ClientSecret)
}

func TestLoad_Telemetry(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	ic := cfg.Instrumentation("1.2.3")
	assert.True(t, ic.Enabled)
	assert.Equal(t, "1.2.3", ic.ServiceVersion)
	assert.Equal(t, instrumentation.DefaultServiceName, ic.ServiceName)
	assert.Equal(t, instrumentation.ExporterPrometheus, ic.MetricsExporter)
	assert.Equal(t, instrumentation.ExporterNone, ic.TracingExporter)
	assert.Equal(t, instrumentation.DefaultTraceSamplingRate, ic.TraceSamplingRate)
	assert.Equal(t, instrumentation.AuditLoggingConfig{Enabled: true}, cfg.AuditLogging())

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	t.Setenv("MEETSLOT_TELEMETRY_TRACING_EXPORTER", "otlp")
	t.Setenv("MEETSLOT_TELEMETRY_AUDIT_INCLUDE_PII", "true")

	cfg, err = Load("")
	require.NoError(t, err)
	ic = cfg.Instrumentation("dev")
	assert.Equal(t, "collector:4318", ic.OTLPEndpoint)
	assert.Equal(t, 0.5, ic.TraceSamplingRate)
	assert.Equal(t, instrumentation.ExporterOTLP, ic.TracingExporter)
	assert.True(t, cfg.AuditLogging().IncludePII)

	t.Setenv("MEETSLOT_TELEMETRY_OTLP_ENDPOINT", "own:4318")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "own:4318", cfg.Telemetry.OTLPEndpoint, "MEETSLOT_ variables take precedence")
}

func TestLoad_TelemetryDisabledSkipsValidation(t *testing.T) {
	cfg, err := Load(writeConfig(t, "telemetry: {enabled: false, metrics_exporter: graphite}"))
	require.NoError(t, err)
	assert.False(t, cfg.Instrumentation("dev").Enabled)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	tests := map[string]string{
		"bad timezone":       "timezone: Mars/Olympus",
		"lunch outside work": `lunch: {start: "08:00", end: "09:00"}`,
		"bad clock":          `working_hours: {start: "9am", end: "18:00"}`,
		"bad band":           `scoring: {bands: ["10-11=0.9"]}`,
		"score out of range": `scoring: {bands: ["[10:00,11:00)=1.5"]}`,
		"top n":              "top_n: 0",
		"step":               "step: 0s",
		"default duration":   "default_duration: 0",
		"fetch concurrency":  "max_concurrent_fetches: -1",
		"unknown backend":    "default_backend: exchange",
		"route target":       "routes: [{domain: example.com, provider: exchange}]",
		"route selector":     "routes: [{provider: google}]",
		"metrics exporter":   "telemetry: {metrics_exporter: graphite}",
		"otlp endpoint":      "telemetry: {tracing_exporter: otlp}",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestBuildRegistry(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Routes = append(cfg.Routes, Route{Participant: "vip@outlook.com", Provider: BackendGoogle})
	cfg.Google.RateLimit = RateLimit{}

	google := availability.NewStaticProvider(BackendGoogle)
	r := cfg.BuildRegistry(map[string]availability.Provider{BackendGoogle: google})

	p, ok := r.Lookup("alice@example.com")
	require.True(t, ok)
	assert.Same(t, google, p, "unthrottled backends are used as is")

	p, ok = r.Lookup("vip@outlook.com")
	require.True(t, ok)
	assert.Same(t, google, p)

	p, ok = r.Lookup("bob@hotmail.com")
	require.True(t, ok)
	assert.Equal(t, BackendGraph, p.Name())
	busy := p.FetchBusy(context.Background(), "bob@hotmail.com", availability.TimeInterval{})
	assert.ErrorIs(t, busy.Err, availability.ErrProviderUnavailable, "graph has no credentials")
}

func TestBuildRegistry_Throttled(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	graph := availability.NewStaticProvider(BackendGraph)
	r := cfg.BuildRegistry(map[string]availability.Provider{
		BackendGoogle: availability.NewStaticProvider(BackendGoogle),
		BackendGraph:  graph,
	})

	outlook, ok := r.Lookup("a@outlook.com")
	require.True(t, ok)
	live, ok := r.Lookup("b@live.com")
	require.True(t, ok)

	_, throttled := outlook.(*availability.ThrottledProvider)
	assert.True(t, throttled)
	assert.Same(t, outlook, live, "one limiter per backend")
}
