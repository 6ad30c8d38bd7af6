package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "tradeassist"

// StartQuerySpan starts a span covering one query through the pipeline.
func StartQuerySpan(ctx context.Context, userID, conversationID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "query",
		trace.WithAttributes(
			attribute.String("query.user_id", userID),
			attribute.String("query.conversation_id", conversationID),
		),
	)
}

// StartToolSpan starts a span for a tool execution within a query.
func StartToolSpan(ctx context.Context, tool string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "tool",
		trace.WithAttributes(
			attribute.String("tool.name", tool),
		),
	)
}

// StartLLMSpan starts a span for one model call.
func StartLLMSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "llm",
		trace.WithAttributes(
			attribute.String("llm.operation", operation),
		),
	)
}
