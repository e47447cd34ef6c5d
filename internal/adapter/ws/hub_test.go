package ws

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/birdwork/roost/internal/domain/phase"
	"github.com/birdwork/roost/internal/domain/report"
	"github.com/birdwork/roost/internal/port/metrics"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewHub(t *testing.T) {
	hub := testHub()
	if hub == nil {
		t.Fatal("expected non-nil hub")
	}
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubBroadcastNoConnections(t *testing.T) {
	hub := testHub()

	// Broadcast with no connections should not panic.
	hub.Broadcast(context.Background(), Message{
		Type:    "test",
		Payload: []byte(`{"key":"value"}`),
	})
}

func TestHubRecordNoConnections(t *testing.T) {
	hub := testHub()

	// Record feeds the sink fan-out; with no clients it must be a no-op.
	hub.Record(context.Background(), "a1", phase.KindLike, phase.ActionLike, metrics.OutcomeSuccess)
}

func TestHubBroadcastRunFinishedNoConnections(t *testing.T) {
	hub := testHub()

	hub.BroadcastRunFinished(context.Background(), report.Aggregate{
		RunID:    "run-1",
		Duration: 3 * time.Second,
		Results: []report.RunResult{
			{Status: report.StatusCompleted, Phases: []report.PhaseOutcome{{Actions: 2}}},
		},
	})
}

func TestHubBroadcastEventMarshalError(t *testing.T) {
	hub := testHub()

	// A channel cannot be marshaled to JSON; log and drop, never panic.
	hub.broadcastEvent(context.Background(), "bad", make(chan int))
}

func TestHubRemoveNonexistent(t *testing.T) {
	hub := testHub()

	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &client{ws: nil, cancel: cancel}
	hub.remove(c)

	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}
