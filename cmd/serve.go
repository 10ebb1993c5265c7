package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetslot/internal/instrumentation"
	"github.com/teemow/meetslot/internal/server"
	"github.com/teemow/meetslot/internal/tools/scheduling_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// serveOptions holds the serve command flags.
type serveOptions struct {
	transport        string
	httpAddr         string
	yolo             bool
	disableStreaming bool
	busyFile         string
	preferencesFile  string
	metrics          MetricsConfig
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide meeting scheduling
tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp

Safety Mode:
  By default, the server operates in read-only mode and only offers
  find_meeting_slots and query_freebusy. Use --yolo to also offer
  book_meeting_slot, which creates calendar events.

Calendar access:
  Google Calendar uses the token stored for the configured account
  (google.account). Microsoft Graph uses client credentials from the
  configuration (graph.tenant_id, graph.client_id, graph.client_secret) or
  MEETSLOT_GRAPH_* env vars.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadMetricsEnvVars(cmd, &opts.metrics)
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.yolo, "yolo", false, "Enable write operations (booking meetings). Default is read-only mode.")
	cmd.Flags().BoolVar(&opts.disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().StringVar(&opts.busyFile, "busy-file", "", "Serve busy times from a YAML file instead of calendars")
	cmd.Flags().StringVar(&opts.preferencesFile, "preferences", "", "User preference file (JSON)")

	// Metrics server flags
	cmd.Flags().BoolVar(&opts.metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadMetricsEnvVars applies METRICS_ENABLED and METRICS_ADDR when the
// corresponding flag was not set explicitly.
func loadMetricsEnvVars(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		if v, ok := os.LookupEnv("METRICS_ENABLED"); ok {
			config.Enabled = strings.EqualFold(v, "true")
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

func runServe(opts serveOptions) error {
	if opts.transport != transportStdio && opts.transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(stackOptions{preferencesFile: opts.preferencesFile})
	if err != nil {
		return err
	}

	provider, err := instrumentation.NewProvider(shutdownCtx, cfg.Instrumentation(version))
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			slog.Warn("error during instrumentation shutdown", "error", err)
		}
	}()

	s, err := buildStack(shutdownCtx, stackOptions{
		cfg:      cfg,
		busyFile: opts.busyFile,
		metrics:  provider.Recorder(),
	})
	if err != nil {
		return err
	}

	serverOpts := []server.Option{
		server.WithInstrumentation(provider),
		server.WithAuditLogger(instrumentation.NewAuditLoggerWithConfig(slog.Default(), cfg.AuditLogging())),
		server.WithLogger(slog.Default()),
		server.WithPreferences(s.preferences),
		server.WithReadOnly(!opts.yolo),
	}
	if s.booker != nil {
		serverOpts = append(serverOpts, server.WithBooker(s.booker))
	}
	serverContext, err := server.NewServerContext(shutdownCtx, s.engine, serverOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			slog.Warn("error during server context shutdown", "error", err)
		}
	}()

	if opts.yolo && !serverContext.CanBook() {
		slog.Warn("write mode requested but no Google calendar is available for booking; book_meeting_slot is disabled")
	}

	mcpSrv := mcpserver.NewMCPServer("meetslot", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := scheduling_tools.RegisterSchedulingTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register scheduling tools: %w", err)
	}

	switch opts.transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	default:
		metricsServer, err := startMetricsServer(opts.metrics, provider)
		if err != nil {
			return err
		}
		if metricsServer != nil {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
				defer cancel()
				if err := metricsServer.Shutdown(ctx); err != nil {
					slog.Warn("error shutting down metrics server", "error", err)
				}
			}()
		}
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, opts, provider)
	}
}

// startMetricsServer starts the metrics server when enabled and the provider
// exports Prometheus metrics. It returns nil when no server was started.
func startMetricsServer(config MetricsConfig, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	if !config.Enabled || !provider.Enabled() || !provider.PrometheusEnabled() {
		return nil, nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    config.Addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		slog.Info("metrics server started", "addr", metricsServer.BoundAddr())
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// newHTTPHandler builds the mux of the streamable HTTP transport: /mcp behind
// the metrics middleware plus the health endpoints.
func newHTTPHandler(mcpSrv *mcpserver.MCPServer, serverContext *server.ServerContext, disableStreaming bool, health *server.HealthChecker) http.Handler {
	httpOpts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath("/mcp"),
	}
	if disableStreaming {
		httpOpts = append(httpOpts, mcpserver.WithDisableStreaming(true))
	}
	mcpHandler := mcpserver.NewStreamableHTTPServer(mcpSrv, httpOpts...)

	mux := http.NewServeMux()
	mux.Handle("/mcp", server.MetricsMiddleware(serverContext.Metrics(), mcpHandler))
	health.RegisterHealthEndpoints(mux)
	return mux
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, serverContext *server.ServerContext, opts serveOptions, provider *instrumentation.Provider) error {
	healthChecker := server.NewHealthChecker(serverContext, version)

	httpServer := &http.Server{
		Addr:              opts.httpAddr,
		Handler:           newHTTPHandler(mcpSrv, serverContext, opts.disableStreaming, healthChecker),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("starting streamable HTTP server",
		"addr", opts.httpAddr,
		"endpoint", "/mcp",
		"health", "/healthz, /readyz",
		"read_only", serverContext.ReadOnly(),
		"metrics", provider.PrometheusEnabled() && opts.metrics.Enabled)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping HTTP server")
		healthChecker.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		slog.Info("HTTP server stopped normally")
	}

	slog.Info("HTTP server gracefully stopped")
	return nil
}
