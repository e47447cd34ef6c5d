// Package nats publishes engagement events to NATS JetStream.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/birdwork/roost/internal/domain/phase"
	"github.com/birdwork/roost/internal/domain/report"
	"github.com/birdwork/roost/internal/port/metrics"
)

const streamName = "ROOST"

// Publisher emits per-action events and finished run reports onto JetStream.
// Action events are best-effort: a publish failure is logged and dropped so
// the engagement path never blocks on the bus.
type Publisher struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	log *slog.Logger
}

// Connect establishes a connection to NATS and ensures the JetStream stream exists.
func Connect(ctx context.Context, url string, log *slog.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"engage.>", "runs.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	log.Info("nats connected", "url", url, "stream", streamName)
	return &Publisher{nc: nc, js: js, log: log}, nil
}

// actionEvent is the wire shape of one per-action event.
type actionEvent struct {
	AccountID string           `json:"account_id"`
	Phase     phase.Kind       `json:"phase"`
	Action    phase.ActionKind `json:"action"`
	Outcome   metrics.Outcome  `json:"outcome"`
	At        time.Time        `json:"at"`
}

// Record implements metrics.Sink. Events go to engage.<account>.<phase>.
func (p *Publisher) Record(ctx context.Context, accountID string, kind phase.Kind, action phase.ActionKind, outcome metrics.Outcome) {
	body, err := json.Marshal(actionEvent{
		AccountID: accountID,
		Phase:     kind,
		Action:    action,
		Outcome:   outcome,
		At:        time.Now().UTC(),
	})
	if err != nil {
		p.log.Warn("marshal action event failed", "error", err)
		return
	}

	subject := fmt.Sprintf("engage.%s.%s", accountID, kind)
	if _, err := p.js.Publish(ctx, subject, body); err != nil {
		p.log.Warn("nats publish failed", "subject", subject, "error", err)
	}
}

// PublishRun emits a finished aggregate report to runs.completed.
func (p *Publisher) PublishRun(ctx context.Context, agg report.Aggregate) error {
	body, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}
	if _, err := p.js.Publish(ctx, "runs.completed", body); err != nil {
		return fmt.Errorf("nats publish runs.completed: %w", err)
	}
	return nil
}

// Close shuts down the NATS connection.
func (p *Publisher) Close() error {
	p.nc.Close()
	return nil
}
