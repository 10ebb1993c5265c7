package instrumentation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation captures all information about a tool invocation for audit logging.
// This provides an audit trail for every scheduling tool call.
//
// # Privacy Considerations
//
// The Participants field contains PII. When logging, consider:
//   - Using ParticipantDomains() for general logs
//   - Only logging full addresses in audit-specific log streams
//   - Ensuring audit logs have appropriate access controls
type ToolInvocation struct {
	// Tool name
	Tool string

	// Scheduling details
	Participants    []string
	RequestID       string
	Outcome         string // ok, partial, empty, rejected, canceled
	PartialFailures int
	ReadOnly        bool

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// ParticipantDomains returns the sorted distinct email domains of the participants.
func (ti *ToolInvocation) ParticipantDomains() []string {
	seen := make(map[string]bool, len(ti.Participants))
	domains := make([]string, 0, len(ti.Participants))
	for _, p := range ti.Participants {
		d := ExtractUserDomain(p)
		if !seen[d] {
			seen[d] = true
			domains = append(domains, d)
		}
	}
	sort.Strings(domains)
	return domains
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for structured logging.
// Participants are reduced to their count and domains.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Int("participants", len(ti.Participants)),
		slog.Any("participant_domains", ti.ParticipantDomains()),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	return append(attrs, ti.commonAttrs()...)
}

// LogAuditAttrs returns slog attributes for full audit logging.
//
// # Security Warning
//
// This method includes PII (participant addresses). Ensure audit logs are
// stored securely with appropriate access controls.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Any("participants", ti.Participants),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	attrs = append(attrs, ti.commonAttrs()...)
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	return attrs
}

func (ti *ToolInvocation) commonAttrs() []slog.Attr {
	var attrs []slog.Attr
	if ti.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", ti.RequestID))
	}
	if ti.Outcome != "" {
		attrs = append(attrs, slog.String("outcome", ti.Outcome))
	}
	if ti.PartialFailures > 0 {
		attrs = append(attrs, slog.Int("partial_failures", ti.PartialFailures))
	}
	if !ti.ReadOnly {
		attrs = append(attrs, slog.Bool("write", true))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// NewToolInvocation creates a new read-only ToolInvocation with timing started.
// Call Complete() when the tool operation finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
		ReadOnly:  true,
	}
}

// WithParticipants sets the participants of the request.
func (ti *ToolInvocation) WithParticipants(participants []string) *ToolInvocation {
	ti.Participants = append([]string(nil), participants...)
	return ti
}

// WithResult records the engine's request ID, outcome and partial failure count.
func (ti *ToolInvocation) WithResult(requestID, outcome string, partialFailures int) *ToolInvocation {
	ti.RequestID = requestID
	ti.Outcome = outcome
	ti.PartialFailures = partialFailures
	return ti
}

// WithWrite marks the invocation as a write operation.
func (ti *ToolInvocation) WithWrite() *ToolInvocation {
	ti.ReadOnly = false
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the invocation as completed and calculates duration.
// Returns the same ToolInvocation for method chaining.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithError marks the invocation as failed with the given error.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// AuditLogger provides structured audit logging for tool invocations.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default, PII is not included in logs.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// SetIncludePII sets whether to include participant addresses in audit logs.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogToolInvocation logs a tool invocation. Full participant addresses are only
// logged when the logger is configured with IncludePII.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = ti.LogAuditAttrs()
	} else {
		attrs = ti.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
