package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/birdwork/roost/internal/domain"
	"github.com/birdwork/roost/internal/domain/phase"
	"github.com/birdwork/roost/internal/domain/report"
	"github.com/birdwork/roost/internal/port/metrics"
)

// PhaseCount is one cumulative counter row for an account.
type PhaseCount struct {
	Phase     phase.Kind       `json:"phase"`
	Action    phase.ActionKind `json:"action"`
	Outcome   metrics.Outcome  `json:"outcome"`
	Count     int64            `json:"count"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// MetricsStore persists cumulative per-account action counters and finished
// run reports. Its Record method implements metrics.Sink best-effort: a
// failed upsert is logged, never surfaced into the engagement path.
type MetricsStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewMetricsStore creates a MetricsStore backed by the given connection pool.
func NewMetricsStore(pool *pgxpool.Pool, log *slog.Logger) *MetricsStore {
	return &MetricsStore{pool: pool, log: log}
}

// Record implements metrics.Sink.
func (s *MetricsStore) Record(ctx context.Context, accountID string, kind phase.Kind, action phase.ActionKind, outcome metrics.Outcome) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO account_metrics (account_id, phase, action_kind, outcome, count, updated_at)
		 VALUES ($1, $2, $3, $4, 1, now())
		 ON CONFLICT (account_id, phase, action_kind, outcome)
		 DO UPDATE SET count = account_metrics.count + 1, updated_at = now()`,
		accountID, string(kind), string(action), string(outcome))
	if err != nil {
		s.log.Warn("metrics upsert failed", "account", accountID, "phase", kind, "error", err)
	}
}

// AccountMetrics returns all cumulative counters for one account.
func (s *MetricsStore) AccountMetrics(ctx context.Context, accountID string) ([]PhaseCount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT phase, action_kind, outcome, count, updated_at
		 FROM account_metrics WHERE account_id = $1
		 ORDER BY phase, action_kind, outcome`, accountID)
	if err != nil {
		return nil, classify("account metrics", err)
	}
	defer rows.Close()

	var counts []PhaseCount
	for rows.Next() {
		var c PhaseCount
		if err := rows.Scan(&c.Phase, &c.Action, &c.Outcome, &c.Count, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan metrics row: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// SaveRun persists one finished aggregate report.
func (s *MetricsStore) SaveRun(ctx context.Context, agg report.Aggregate) error {
	body, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (run_id, started_at, report) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id) DO UPDATE SET report = EXCLUDED.report`,
		agg.RunID, agg.StartedAt, body)
	if err != nil {
		return classify("save run", err)
	}
	return nil
}

// LatestRun returns the most recently started run report.
func (s *MetricsStore) LatestRun(ctx context.Context) (*report.Aggregate, error) {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT report FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("latest run: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, classify("latest run", err)
	}

	var agg report.Aggregate
	if err := json.Unmarshal(body, &agg); err != nil {
		return nil, fmt.Errorf("unmarshal run report: %w", err)
	}
	return &agg, nil
}
