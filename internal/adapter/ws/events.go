package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/birdwork/roost/internal/domain/phase"
	"github.com/birdwork/roost/internal/domain/report"
	"github.com/birdwork/roost/internal/port/metrics"
)

// Event type constants for progress messages.
const (
	EventAction      = "engage.action"
	EventRunFinished = "run.finished"
)

// ActionEvent is broadcast for every attempted engagement action.
type ActionEvent struct {
	AccountID string           `json:"account_id"`
	Phase     phase.Kind       `json:"phase"`
	Action    phase.ActionKind `json:"action"`
	Outcome   metrics.Outcome  `json:"outcome"`
	At        time.Time        `json:"at"`
}

// RunFinishedEvent is broadcast when an orchestrator run completes.
type RunFinishedEvent struct {
	RunID    string                `json:"run_id"`
	Actions  int                   `json:"actions"`
	Totals   map[report.Status]int `json:"totals"`
	Duration time.Duration         `json:"duration_ns"`
}

// Record implements metrics.Sink, streaming per-action progress to clients.
func (h *Hub) Record(ctx context.Context, accountID string, kind phase.Kind, action phase.ActionKind, outcome metrics.Outcome) {
	h.broadcastEvent(ctx, EventAction, ActionEvent{
		AccountID: accountID,
		Phase:     kind,
		Action:    action,
		Outcome:   outcome,
		At:        time.Now().UTC(),
	})
}

// BroadcastRunFinished announces a completed orchestrator run.
func (h *Hub) BroadcastRunFinished(ctx context.Context, agg report.Aggregate) {
	h.broadcastEvent(ctx, EventRunFinished, RunFinishedEvent{
		RunID:    agg.RunID,
		Actions:  agg.TotalActions(),
		Totals:   agg.Totals(),
		Duration: agg.Duration,
	})
}

func (h *Hub) broadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}
	h.Broadcast(ctx, Message{Type: eventType, Payload: json.RawMessage(data)})
}
