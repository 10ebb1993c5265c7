package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/meetslot/internal/instrumentation"
	"github.com/teemow/meetslot/internal/server"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

type invocationKey struct{}

// InvocationFromContext returns the audit record of the tool call running in ctx,
// or nil outside an instrumented handler. Handlers use it to attach the
// scheduling result to the audit log.
func InvocationFromContext(ctx context.Context) *instrumentation.ToolInvocation {
	ti, _ := ctx.Value(invocationKey{}).(*instrumentation.ToolInvocation)
	return ti
}

// InstrumentedToolHandler wraps a tool handler with tracing, metrics and audit logging.
// It records tool invocation metrics and logs the invocation for audit purposes.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return instrumented(toolName, false, sc, handler)
}

// InstrumentedWriteToolHandler is like InstrumentedToolHandler but marks the
// invocation as a write in traces and audit logs.
func InstrumentedWriteToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return instrumented(toolName, true, sc, handler)
}

func instrumented(toolName string, write bool, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		// Participants are best effort here; the handler reports malformed input.
		participants, _ := ParticipantsFromArgs(request.GetArguments())

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			attribute.Int(instrumentation.SpanAttrParticipants, len(participants)),
			attribute.Bool(instrumentation.SpanAttrReadOnly, !write),
		)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithParticipants(participants)
		if write {
			invocation.WithWrite()
		}

		result, err := handler(context.WithValue(ctx, invocationKey{}, invocation), request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			invocation.Complete(false, nil)
			span.SetAttributes(attribute.String(instrumentation.SpanAttrStatus, status))
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		metrics.RecordToolInvocationWithParticipants(ctx, toolName, status, len(participants), duration)
		auditLogger.LogToolInvocation(invocation)

		return result, err
	}
}
