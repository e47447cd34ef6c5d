package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "roost"

// StartRunSpan starts a span for one account run.
func StartRunSpan(ctx context.Context, runID, accountID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "account_run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("account.id", accountID),
		),
	)
}

// StartPhaseSpan starts a span for one phase within an account run.
func StartPhaseSpan(ctx context.Context, accountID, kind string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "phase",
		trace.WithAttributes(
			attribute.String("account.id", accountID),
			attribute.String("phase.kind", kind),
		),
	)
}
