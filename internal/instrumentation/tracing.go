package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every meetslot span.
const TracerName = "github.com/teemow/meetslot"

// Span attribute keys.
const (
	SpanAttrTool         = "mcp.tool"
	SpanAttrStatus       = "mcp.status"
	SpanAttrReadOnly     = "mcp.read_only"
	SpanAttrProvider     = "calendar.provider"
	SpanAttrOperation    = "calendar.operation"
	SpanAttrRequestID    = "scheduling.request_id"
	SpanAttrParticipants = "scheduling.participants"
	SpanAttrCandidates   = "scheduling.candidates"
	SpanAttrOutcome      = "scheduling.outcome"
)

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartSpan starts an internal span. The caller ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartSchedulingSpan starts the span of one scheduling request.
func StartSchedulingSpan(ctx context.Context, name, requestID string, participants int) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.Int(SpanAttrParticipants, participants)}
	if requestID != "" {
		attrs = append(attrs, attribute.String(SpanAttrRequestID, requestID))
	}
	return StartSpan(ctx, name, attrs...)
}

// StartToolSpan starts a server span named "tool.<toolName>".
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, "tool."+toolName,
		trace.WithAttributes(append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...)...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartProviderSpan starts a client span for a calendar backend call,
// named "<provider>.<operation>".
func StartProviderSpan(ctx context.Context, provider, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	base := []attribute.KeyValue{
		attribute.String(SpanAttrProvider, provider),
		attribute.String(SpanAttrOperation, operation),
	}
	return tracer().Start(ctx, provider+"."+operation,
		trace.WithAttributes(append(base, attrs...)...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records err on the span. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// SetSpanResult sets the span status from err.
func SetSpanResult(span trace.Span, err error) {
	if err != nil {
		SetSpanError(span, err)
		return
	}
	SetSpanSuccess(span)
}

// SetSchedulingOutcome annotates a scheduling span with its outcome and the
// number of candidates returned.
func SetSchedulingOutcome(span trace.Span, outcome string, candidates int) {
	span.SetAttributes(
		attribute.String(SpanAttrOutcome, outcome),
		attribute.Int(SpanAttrCandidates, candidates),
	)
}

// AddSpanEvent adds an event to the span.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID of the span in ctx, or "".
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
