package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/birdwork/roost/internal/domain/phase"
	"github.com/birdwork/roost/internal/domain/report"
	portmetrics "github.com/birdwork/roost/internal/port/metrics"
)

const meterName = "roost"

// Metrics holds all engagement metric instruments. Its Record method
// implements the metrics sink port.
type Metrics struct {
	Actions     metric.Int64Counter
	RunsStarted metric.Int64Counter
	RunDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Actions, err = meter.Int64Counter("roost.actions",
		metric.WithDescription("Engagement actions attempted, by phase and outcome"))
	if err != nil {
		return nil, err
	}

	m.RunsStarted, err = meter.Int64Counter("roost.runs.started",
		metric.WithDescription("Account runs started"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("roost.run.duration_seconds",
		metric.WithDescription("Account run duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Record implements the metrics sink port.
func (m *Metrics) Record(ctx context.Context, accountID string, kind phase.Kind, action phase.ActionKind, outcome portmetrics.Outcome) {
	m.Actions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("account", accountID),
		attribute.String("phase", string(kind)),
		attribute.String("action", string(action)),
		attribute.String("outcome", string(outcome)),
	))
}

// RecordRun records the duration and status of one finished account run.
func (m *Metrics) RecordRun(ctx context.Context, result report.RunResult) {
	m.RunDuration.Record(ctx, result.Duration.Seconds(), metric.WithAttributes(
		attribute.String("account", result.AccountID),
		attribute.String("status", string(result.Status)),
	))
}
