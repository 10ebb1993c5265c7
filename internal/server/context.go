package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/meetslot/internal/availability"
	"github.com/teemow/meetslot/internal/calendar"
	"github.com/teemow/meetslot/internal/instrumentation"
	"github.com/teemow/meetslot/internal/preferences"
)

// Booker creates the calendar event for a chosen slot. calendar.Booker implements it.
type Booker interface {
	Book(ctx context.Context, req calendar.BookingRequest) (*calendar.Booking, error)
}

// ServerContext holds the dependencies shared by the MCP tools
type ServerContext struct {
	ctx             context.Context
	cancel          context.CancelFunc
	engine          *availability.Engine
	booker          Booker
	preferences     *preferences.Store
	instrumentation *instrumentation.Provider
	auditLogger     *instrumentation.AuditLogger
	logger          *slog.Logger
	readOnly        bool
	mu              sync.RWMutex
	shutdown        bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithBooker enables booking. Without a booker, book_meeting_slot is not offered.
func WithBooker(b Booker) Option {
	return func(sc *ServerContext) {
		sc.booker = b
	}
}

// WithPreferences sets the store consulted for per-user defaults.
func WithPreferences(s *preferences.Store) Option {
	return func(sc *ServerContext) {
		sc.preferences = s
	}
}

// WithInstrumentation sets the instrumentation provider.
func WithInstrumentation(p *instrumentation.Provider) Option {
	return func(sc *ServerContext) {
		sc.instrumentation = p
	}
}

// WithAuditLogger sets the audit logger for tool invocations.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) {
		sc.auditLogger = al
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// WithReadOnly controls whether write tools are registered.
func WithReadOnly(readOnly bool) Option {
	return func(sc *ServerContext) {
		sc.readOnly = readOnly
	}
}

// NewServerContext creates a new server context around engine.
func NewServerContext(ctx context.Context, engine *availability.Engine, opts ...Option) (*ServerContext, error) {
	if engine == nil {
		return nil, fmt.Errorf("availability engine is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		engine:   engine,
		logger:   slog.Default(),
		readOnly: true,
	}
	for _, opt := range opts {
		opt(sc)
	}
	if sc.auditLogger == nil {
		sc.auditLogger = instrumentation.NewAuditLogger(sc.logger)
	}
	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Engine returns the availability engine.
func (sc *ServerContext) Engine() *availability.Engine {
	return sc.engine
}

// Booker returns the booker, or nil when booking is not configured.
func (sc *ServerContext) Booker() Booker {
	return sc.booker
}

// Preferences returns the preference store. It may be nil.
func (sc *ServerContext) Preferences() *preferences.Store {
	return sc.preferences
}

// Metrics returns the metrics recorder. It is never nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.instrumentation.Recorder()
}

// AuditLogger returns the audit logger for tool invocations.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// Logger returns the logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// ReadOnly reports whether write tools are disabled.
func (sc *ServerContext) ReadOnly() bool {
	return sc.readOnly
}

// CanBook reports whether book_meeting_slot may be offered.
func (sc *ServerContext) CanBook() bool {
	return !sc.readOnly && sc.booker != nil
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
