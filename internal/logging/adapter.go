package logging

import (
	"log/slog"
)

// Logger is the logging interface taken by the calendar backends.
// Arguments after msg are alternating key-value pairs or slog.Attr values.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter adapts an slog.Logger to Logger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger. If logger is nil, slog.Default() is used.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// DefaultLogger returns an adapter for slog.Default().
func DefaultLogger() *SlogAdapter {
	return NewSlogAdapter(nil)
}

// ForProvider returns an adapter whose records carry the provider name.
func (a *SlogAdapter) ForProvider(name string) *SlogAdapter {
	return &SlogAdapter{logger: WithProvider(a.logger, name)}
}

func (a *SlogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *SlogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *SlogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *SlogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }

// Slog returns the wrapped logger.
func (a *SlogAdapter) Slog() *slog.Logger {
	return a.logger
}

// FetchFailed logs a busy-time fetch that left participant unknown.
// The participant is logged as a hash plus its domain.
func FetchFailed(l Logger, participant string, err error) {
	l.Warn("busy-time fetch failed, participant status unknown",
		UserHash(participant), Domain(participant), Err(err))
}
