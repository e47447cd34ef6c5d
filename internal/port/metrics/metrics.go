// Package metrics defines the metrics sink port (interface).
package metrics

import (
	"context"

	"github.com/birdwork/roost/internal/domain/phase"
)

// Outcome is the result of one attempted action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeSkipped Outcome = "skipped"
)

// Sink receives per-action outcomes. Implementations must be safe for
// concurrent use across accounts and must never block the engagement path
// for long (buffer or drop internally).
type Sink interface {
	Record(ctx context.Context, accountID string, kind phase.Kind, action phase.ActionKind, outcome Outcome)
}

// Fanout forwards every record to all member sinks.
type Fanout []Sink

// Record implements Sink.
func (f Fanout) Record(ctx context.Context, accountID string, kind phase.Kind, action phase.ActionKind, outcome Outcome) {
	for _, s := range f {
		s.Record(ctx, accountID, kind, action, outcome)
	}
}

// Nop is a Sink that discards everything.
type Nop struct{}

// Record implements Sink.
func (Nop) Record(context.Context, string, phase.Kind, phase.ActionKind, Outcome) {}
