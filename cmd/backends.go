package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/teemow/meetslot/internal/availability"
	"github.com/teemow/meetslot/internal/calendar"
	"github.com/teemow/meetslot/internal/config"
	"github.com/teemow/meetslot/internal/google"
	"github.com/teemow/meetslot/internal/instrumentation"
	"github.com/teemow/meetslot/internal/logging"
	"github.com/teemow/meetslot/internal/msgraph"
	"github.com/teemow/meetslot/internal/preferences"
)

// stack is everything a command needs to answer scheduling requests.
type stack struct {
	cfg         *config.Config
	engine      *availability.Engine
	booker      *calendar.Booker
	preferences *preferences.Store
}

// stackOptions are the command-line overrides applied on top of the configuration.
type stackOptions struct {
	// cfg is loaded from --config when nil.
	cfg             *config.Config
	busyFile        string
	preferencesFile string
	timezone        string
	topN            int
	metrics         *instrumentation.Metrics
}

// loadConfig reads --config and applies the command-line overrides.
func loadConfig(opts stackOptions) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if opts.timezone != "" {
		cfg.Timezone = opts.timezone
	}
	if opts.topN > 0 {
		cfg.TopN = opts.topN
	}
	if opts.preferencesFile != "" {
		cfg.Preferences = opts.preferencesFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildStack wires the calendar backends into an engine. With a busy file,
// every participant is served from that file and no backend is contacted.
func buildStack(ctx context.Context, opts stackOptions) (*stack, error) {
	cfg := opts.cfg
	if cfg == nil {
		var err error
		if cfg, err = loadConfig(opts); err != nil {
			return nil, err
		}
	}

	logger := slog.Default()
	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	engineOpts = append(engineOpts, availability.WithLogger(logger))
	if opts.metrics != nil {
		engineOpts = append(engineOpts, availability.WithMetrics(opts.metrics))
	}

	s := &stack{cfg: cfg}
	var registry *availability.Registry
	if opts.busyFile != "" {
		policy, err := cfg.Policy()
		if err != nil {
			return nil, err
		}
		static, err := loadBusyFile(opts.busyFile, policy.Location)
		if err != nil {
			return nil, err
		}
		registry = availability.NewRegistry()
		registry.SetDefault(static)
	} else {
		backends, booker, err := buildBackends(ctx, cfg, logger, opts.metrics)
		if err != nil {
			return nil, err
		}
		s.booker = booker
		registry = cfg.BuildRegistry(backends)
	}
	s.engine = availability.NewEngine(registry, engineOpts...)

	if cfg.Preferences != "" {
		store, err := preferences.LoadFile(cfg.Preferences)
		if err != nil {
			return nil, err
		}
		s.preferences = store
	}
	return s, nil
}

func loadBusyFile(path string, ref *time.Location) (*availability.StaticProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open busy file: %w", err)
	}
	defer f.Close()
	return availability.LoadStaticProvider(f, ref)
}

// buildBackends creates the providers whose credentials are available. A backend
// without credentials is left out; the registry then reports its participants as unknown.
func buildBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) (map[string]availability.Provider, *calendar.Booker, error) {
	backends := make(map[string]availability.Provider)
	adapter := logging.NewSlogAdapter(logger)

	var booker *calendar.Booker
	tokens := google.NewFileTokenProvider()
	if tokens.HasTokenForAccount(cfg.Google.Account) {
		client, err := calendar.NewClientForAccount(ctx, cfg.Google.Account, tokens)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Google Calendar client: %w", err)
		}
		backends[config.BackendGoogle] = calendar.NewFreeBusyProvider(client, calendar.WithLogger(adapter.ForProvider(instrumentation.ProviderGoogle)))
		var recorder calendar.BookingRecorder
		if metrics != nil {
			recorder = metrics
		}
		booker = calendar.NewBooker(client, cfg.Google.CalendarID, recorder)
	} else {
		logger.Warn("no Google token found, Google participants will be reported as unknown",
			slog.String("account", cfg.Google.Account),
			slog.String("hint", google.GetAuthenticationErrorMessage(cfg.Google.Account)))
	}

	if cfg.Graph.Configured() {
		p, err := msgraph.New(ctx, msgraph.Config{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			BaseURL:      cfg.Graph.BaseURL,
		}, msgraph.WithLogger(adapter.ForProvider(instrumentation.ProviderGraph)))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Microsoft Graph provider: %w", err)
		}
		backends[config.BackendGraph] = p
	}

	return backends, booker, nil
}
