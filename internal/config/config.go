package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/teemow/meetslot/internal/availability"
	"github.com/teemow/meetslot/internal/instrumentation"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MEETSLOT"

// Backend names used in routes.
const (
	BackendGoogle = "google"
	BackendGraph  = "graph"
)

// Config is the complete meetslot configuration.
type Config struct {
	Timezone        string        `mapstructure:"timezone"`
	WorkingHours    Range         `mapstructure:"working_hours"`
	Lunch           Range         `mapstructure:"lunch"`
	ExcludeWeekends bool          `mapstructure:"exclude_weekends"`
	TopN            int           `mapstructure:"top_n"`
	Step            time.Duration `mapstructure:"step"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	// DefaultDuration is the meeting length in minutes when a request gives none
	// and the user has no preferred duration.
	DefaultDuration      int `mapstructure:"default_duration"`
	MaxConcurrentFetches int `mapstructure:"max_concurrent_fetches"`
	Scoring         Scoring       `mapstructure:"scoring"`

	// DefaultBackend serves participants no route matches.
	DefaultBackend string  `mapstructure:"default_backend"`
	Routes         []Route `mapstructure:"routes"`

	Google Google `mapstructure:"google"`
	Graph  Graph  `mapstructure:"graph"`

	// Preferences is the path of the user preference file. Empty disables hints.
	Preferences string `mapstructure:"preferences"`

	Telemetry Telemetry `mapstructure:"telemetry"`
}

// Telemetry configures metrics, tracing and audit logging of the server.
type Telemetry struct {
	Enabled         bool    `mapstructure:"enabled"`
	InstanceID      string  `mapstructure:"instance_id"`
	MetricsExporter string  `mapstructure:"metrics_exporter"`
	TracingExporter string  `mapstructure:"tracing_exporter"`
	OTLPEndpoint    string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure    bool    `mapstructure:"otlp_insecure"`
	SamplingRate    float64 `mapstructure:"sampling_rate"`
	DetailedLabels  bool    `mapstructure:"detailed_labels"`
	Audit           Audit   `mapstructure:"audit"`
}

// Audit configures the audit log of tool calls.
type Audit struct {
	Enabled    bool `mapstructure:"enabled"`
	IncludePII bool `mapstructure:"include_pii"`
}

// Range is a time-of-day range in HH:MM form.
type Range struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// Scoring configures the scoring table. Bands use the ScoreBand string form,
// e.g. "[10:00,11:00)=0.9".
type Scoring struct {
	Default float64  `mapstructure:"default"`
	Bands   []string `mapstructure:"bands"`
}

// Route sends a participant or an email domain to a backend.
type Route struct {
	Domain      string `mapstructure:"domain"`
	Participant string `mapstructure:"participant"`
	Provider    string `mapstructure:"provider"`
}

// RateLimit bounds the request rate to a backend. Zero disables throttling.
type RateLimit struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// Google configures the Google Calendar backend.
type Google struct {
	Account    string    `mapstructure:"account"`
	CalendarID string    `mapstructure:"calendar_id"`
	RateLimit  RateLimit `mapstructure:"rate_limit"`
}

// Graph configures the Microsoft Graph backend.
type Graph struct {
	TenantID     string    `mapstructure:"tenant_id"`
	ClientID     string    `mapstructure:"client_id"`
	ClientSecret string    `mapstructure:"client_secret"`
	BaseURL      string    `mapstructure:"base_url"`
	RateLimit    RateLimit `mapstructure:"rate_limit"`
}

// Configured reports whether client credentials are present.
func (g Graph) Configured() bool {
	return g.TenantID != "" && g.ClientID != "" && g.ClientSecret != ""
}

func setDefaults(v *viper.Viper) {
	def := availability.DefaultPolicy()
	table := availability.DefaultScoringTable()

	bands := make([]string, len(table.Bands))
	for i, b := range table.Bands {
		bands[i] = b.String()
	}

	v.SetDefault("timezone", availability.DefaultTimezone)
	v.SetDefault("working_hours.start", def.WorkStart.String())
	v.SetDefault("working_hours.end", def.WorkEnd.String())
	v.SetDefault("lunch.start", def.LunchStart.String())
	v.SetDefault("lunch.end", def.LunchEnd.String())
	v.SetDefault("exclude_weekends", def.ExcludeWeekends)
	v.SetDefault("top_n", availability.DefaultTopN)
	v.SetDefault("step", availability.DefaultStep)
	v.SetDefault("fetch_timeout", availability.DefaultFetchTimeout)
	v.SetDefault("default_duration", availability.DefaultDurationMinutes)
	v.SetDefault("max_concurrent_fetches", availability.DefaultMaxConcurrentFetches)
	v.SetDefault("scoring.default", table.Default)
	v.SetDefault("scoring.bands", bands)
	v.SetDefault("default_backend", BackendGoogle)
	v.SetDefault("routes", []map[string]interface{}{
		{"domain": "outlook.com", "provider": BackendGraph},
		{"domain": "hotmail.com", "provider": BackendGraph},
		{"domain": "live.com", "provider": BackendGraph},
	})
	v.SetDefault("google.account", "default")
	v.SetDefault("google.calendar_id", "primary")
	v.SetDefault("google.rate_limit.requests_per_second", 10.0)
	v.SetDefault("google.rate_limit.burst", 5)
	v.SetDefault("graph.tenant_id", "")
	v.SetDefault("graph.client_id", "")
	v.SetDefault("graph.client_secret", "")
	v.SetDefault("graph.base_url", "")
	v.SetDefault("graph.rate_limit.requests_per_second", 4.0)
	v.SetDefault("graph.rate_limit.burst", 4)
	v.SetDefault("preferences", "")

	tel := instrumentation.DefaultConfig()
	v.SetDefault("telemetry.enabled", tel.Enabled)
	v.SetDefault("telemetry.instance_id", "")
	v.SetDefault("telemetry.metrics_exporter", tel.MetricsExporter)
	v.SetDefault("telemetry.tracing_exporter", tel.TracingExporter)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", false)
	v.SetDefault("telemetry.sampling_rate", tel.TraceSamplingRate)
	v.SetDefault("telemetry.detailed_labels", tel.DetailedLabels)
	v.SetDefault("telemetry.audit.enabled", true)
	v.SetDefault("telemetry.audit.include_pii", false)
}

// Load reads the configuration. path may be empty to use defaults and
// environment variables only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindStandardEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// standardEnv maps keys to the OpenTelemetry variables also honoured for them.
var standardEnv = map[string]string{
	"telemetry.instance_id":   "OTEL_SERVICE_INSTANCE_ID",
	"telemetry.otlp_endpoint": "OTEL_EXPORTER_OTLP_ENDPOINT",
	"telemetry.otlp_insecure": "OTEL_EXPORTER_OTLP_INSECURE",
	"telemetry.sampling_rate": "OTEL_TRACES_SAMPLER_ARG",
}

// bindStandardEnv binds each key to its MEETSLOT_ variable first and the
// OpenTelemetry variable second.
func bindStandardEnv(v *viper.Viper) error {
	replacer := strings.NewReplacer(".", "_")
	for key, env := range standardEnv {
		own := EnvPrefix + "_" + strings.ToUpper(replacer.Replace(key))
		if err := v.BindEnv(key, own, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks that the configuration can build an engine.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Policy(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ScoringTable(); err != nil {
		errs = append(errs, err)
	}
	if c.TopN < 1 || c.TopN > availability.MaxTopN {
		errs = append(errs, fmt.Errorf("top_n must be between 1 and %d, got %d", availability.MaxTopN, c.TopN))
	}
	if c.Step <= 0 {
		errs = append(errs, fmt.Errorf("step must be positive, got %s", c.Step))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch_timeout must be positive, got %s", c.FetchTimeout))
	}
	if c.DefaultDuration < 1 || c.DefaultDuration > availability.MaxDurationMinutes {
		errs = append(errs, fmt.Errorf("default_duration must be between 1 and %d minutes, got %d", availability.MaxDurationMinutes, c.DefaultDuration))
	}
	if c.MaxConcurrentFetches < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent_fetches must be positive, got %d", c.MaxConcurrentFetches))
	}
	if !knownBackend(c.DefaultBackend) {
		errs = append(errs, fmt.Errorf("default_backend %q is not one of %s, %s", c.DefaultBackend, BackendGoogle, BackendGraph))
	}
	for i, r := range c.Routes {
		if (r.Domain == "") == (r.Participant == "") {
			errs = append(errs, fmt.Errorf("routes[%d]: exactly one of domain and participant must be set", i))
		}
		if !knownBackend(r.Provider) {
			errs = append(errs, fmt.Errorf("routes[%d]: unknown provider %q", i, r.Provider))
		}
	}
	if c.Telemetry.Enabled {
		if err := c.Instrumentation("").Validate(); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: %w", err))
		}
	}
	return errors.Join(errs...)
}

func knownBackend(name string) bool {
	return name == BackendGoogle || name == BackendGraph
}

// Policy builds the working-hours policy.
func (c *Config) Policy() (availability.WorkingHoursPolicy, error) {
	loc, err := availability.LoadLocation(c.Timezone)
	if err != nil {
		return availability.WorkingHoursPolicy{}, err
	}

	p := availability.WorkingHoursPolicy{
		Location:        loc,
		ExcludeWeekends: c.ExcludeWeekends,
	}
	clocks := []struct {
		key string
		val string
		dst *availability.ClockTime
	}{
		{"working_hours.start", c.WorkingHours.Start, &p.WorkStart},
		{"working_hours.end", c.WorkingHours.End, &p.WorkEnd},
		{"lunch.start", c.Lunch.Start, &p.LunchStart},
		{"lunch.end", c.Lunch.End, &p.LunchEnd},
	}
	for _, cl := range clocks {
		if *cl.dst, err = availability.ParseClock(cl.val); err != nil {
			return availability.WorkingHoursPolicy{}, fmt.Errorf("%s: %w", cl.key, err)
		}
	}

	if err := p.Validate(); err != nil {
		return availability.WorkingHoursPolicy{}, err
	}
	return p, nil
}

// ScoringTable builds the scoring table.
func (c *Config) ScoringTable() (availability.ScoringTable, error) {
	t := availability.ScoringTable{Default: c.Scoring.Default}
	for _, s := range c.Scoring.Bands {
		b, err := availability.ParseScoreBand(s)
		if err != nil {
			return availability.ScoringTable{}, err
		}
		t.Bands = append(t.Bands, b)
	}
	if err := t.Validate(); err != nil {
		return availability.ScoringTable{}, fmt.Errorf("scoring: %w", err)
	}
	return t, nil
}

// EngineOptions returns the engine options derived from the configuration.
func (c *Config) EngineOptions() ([]availability.Option, error) {
	policy, err := c.Policy()
	if err != nil {
		return nil, err
	}
	table, err := c.ScoringTable()
	if err != nil {
		return nil, err
	}
	return []availability.Option{
		availability.WithDefaultPolicy(policy),
		availability.WithScoring(table),
		availability.WithTopN(c.TopN),
		availability.WithStep(c.Step),
		availability.WithFetchTimeout(c.FetchTimeout),
		availability.WithDefaultDuration(c.DefaultDuration),
		availability.WithMaxConcurrentFetches(c.MaxConcurrentFetches),
	}, nil
}

// BuildRegistry routes participants to the given backends. Backends missing
// from the map are registered as unconfigured, so their participants are
// reported as unknown rather than silently sent elsewhere. Backends are
// throttled according to their rate limits.
func (c *Config) BuildRegistry(backends map[string]availability.Provider) *availability.Registry {
	limits := map[string]RateLimit{
		BackendGoogle: c.Google.RateLimit,
		BackendGraph:  c.Graph.RateLimit,
	}

	resolved := make(map[string]availability.Provider, len(limits))
	resolve := func(name string) availability.Provider {
		if p, ok := resolved[name]; ok {
			return p
		}
		p, ok := backends[name]
		if !ok || p == nil {
			p = availability.Unconfigured(name)
		} else if l := limits[name]; l.RequestsPerSecond > 0 {
			p = availability.Throttle(p, l.RequestsPerSecond, l.Burst)
		}
		resolved[name] = p
		return p
	}

	r := availability.NewRegistry()
	r.SetDefault(resolve(c.DefaultBackend))
	for _, route := range c.Routes {
		p := resolve(route.Provider)
		if route.Participant != "" {
			r.RegisterParticipant(route.Participant, p)
		} else {
			r.RegisterDomain(route.Domain, p)
		}
	}
	return r
}

// Instrumentation returns the telemetry settings for a server of the given version.
func (c *Config) Instrumentation(version string) instrumentation.Config {
	ic := instrumentation.DefaultConfig()
	ic.ServiceVersion = version
	ic.ServiceInstanceID = c.Telemetry.InstanceID
	ic.Enabled = c.Telemetry.Enabled
	ic.MetricsExporter = c.Telemetry.MetricsExporter
	ic.TracingExporter = c.Telemetry.TracingExporter
	ic.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	ic.OTLPInsecure = c.Telemetry.OTLPInsecure
	ic.TraceSamplingRate = c.Telemetry.SamplingRate
	ic.DetailedLabels = c.Telemetry.DetailedLabels
	return ic
}

// AuditLogging returns the audit log settings.
func (c *Config) AuditLogging() instrumentation.AuditLoggingConfig {
	return instrumentation.AuditLoggingConfig{
		Enabled:    c.Telemetry.Audit.Enabled,
		IncludePII: c.Telemetry.Audit.IncludePII,
	}
}
