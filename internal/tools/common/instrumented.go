package common

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/meetsync/internal/instrumentation"
	"github.com/teemow/meetsync/internal/server"
)

// ToolHandler is the signature of an mcp-go tool handler.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

type invocationKey struct{}

// Annotate lets a handler attach domain details to the running invocation.
// It is a no-op when the handler runs without instrumentation.
func Annotate(ctx context.Context, fn func(*instrumentation.ToolInvocation)) {
	if inv, ok := ctx.Value(invocationKey{}).(*instrumentation.ToolInvocation); ok && inv != nil {
		fn(inv)
	}
}

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging. The participant named by manager_id or owner_id is recorded
// as the caller.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Get metrics and audit logger (may be nil if not configured)
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		// If no instrumentation configured, just call the handler
		if metrics == nil && auditLogger == nil {
			return handler(ctx, request)
		}

		caller := CallerFromArgs(request.GetArguments())
		attrs := instrumentation.NewSpanAttributeBuilder().WithParticipant(caller).Build()
		ctx, span := instrumentation.StartToolSpan(ctx, toolName, attrs...)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithCaller(caller)
		ctx = context.WithValue(ctx, invocationKey{}, invocation)

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.Complete(false, err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			resultErr := errors.New(resultText(result))
			invocation.Complete(false, resultErr)
			instrumentation.SetSpanError(span, resultErr)
		default:
			invocation.Complete(true, nil)
			instrumentation.SetSpanSuccess(span)
		}

		if metrics != nil {
			metrics.RecordToolInvocationWithCaller(ctx, toolName, status, caller, duration)
		}
		if auditLogger != nil {
			auditLogger.LogToolInvocation(invocation)
		}

		return result, err
	}
}

// resultText returns the first text content of a tool result.
func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return "tool returned an error"
}
