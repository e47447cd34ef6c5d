package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	roostotel "github.com/birdwork/roost/internal/adapter/otel"
	"github.com/birdwork/roost/internal/config"
	"github.com/birdwork/roost/internal/domain/account"
	"github.com/birdwork/roost/internal/domain/report"
	"github.com/birdwork/roost/internal/logger"
)

// Orchestrator fans one run out across accounts with bounded concurrency.
// Account runs are isolated: a failure or panic in one never affects the
// others, and the aggregate report always carries one result per account.
type Orchestrator struct {
	runner *AccountRunner
	cfg    config.Orchestrator
	clock  Clock
	log    *slog.Logger

	obs *roostotel.Metrics

	mu         sync.RWMutex
	latest     *report.Aggregate
	onComplete []func(report.Aggregate)
}

// NewOrchestrator wires an Orchestrator over one AccountRunner.
func NewOrchestrator(runner *AccountRunner, cfg config.Orchestrator, clock Clock, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		runner: runner,
		cfg:    cfg,
		clock:  clock,
		log:    log,
	}
}

// SetObservability attaches metric instruments for run-level telemetry.
func (o *Orchestrator) SetObservability(m *roostotel.Metrics) {
	o.obs = m
}

// AddOnComplete registers a callback invoked after every finished run.
// Not safe to call concurrently with RunAll.
func (o *Orchestrator) AddOnComplete(fn func(report.Aggregate)) {
	o.onComplete = append(o.onComplete, fn)
}

// Latest returns the most recent aggregate report, or nil before the first run.
func (o *Orchestrator) Latest() *report.Aggregate {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.latest
}

// RunAll executes one engagement run across all given accounts and returns
// the aggregate report. It never returns an error: per-account failures are
// recorded in the results.
func (o *Orchestrator) RunAll(ctx context.Context, accounts []account.Account) report.Aggregate {
	agg := report.Aggregate{
		RunID:     uuid.NewString(),
		StartedAt: o.clock.Now(),
		Results:   make([]report.RunResult, len(accounts)),
	}
	ctx = logger.WithRunID(ctx, agg.RunID)
	log := o.log.With("run", agg.RunID)

	if o.cfg.RunDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RunDeadline)
		defer cancel()
	}

	log.Info("engagement run started", "accounts", len(accounts), "max_concurrent", o.cfg.MaxConcurrent)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(o.cfg.MaxConcurrent, 1))

	for i, acct := range accounts {
		g.Go(func() error {
			agg.Results[i] = o.runIsolated(ctx, acct)
			return nil
		})
	}
	_ = g.Wait()

	agg.Duration = o.clock.Now().Sub(agg.StartedAt)

	totals := agg.Totals()
	log.Info("engagement run finished",
		"duration", agg.Duration,
		"actions", agg.TotalActions(),
		"completed", totals[report.StatusCompleted],
		"partial", totals[report.StatusPartial],
		"failed", totals[report.StatusFailed],
	)

	o.mu.Lock()
	o.latest = &agg
	o.mu.Unlock()

	for _, fn := range o.onComplete {
		fn(agg)
	}
	return agg
}

// RunOne executes an ad-hoc run for a single account.
func (o *Orchestrator) RunOne(ctx context.Context, acct account.Account) report.RunResult {
	ctx = logger.WithRunID(ctx, uuid.NewString())
	return o.runIsolated(ctx, acct)
}

// runIsolated runs one account with its timeout applied and converts any
// panic into a failed result.
func (o *Orchestrator) runIsolated(ctx context.Context, acct account.Account) (result report.RunResult) {
	started := o.clock.Now()

	if o.obs != nil {
		o.obs.RunsStarted.Add(ctx, 1)
		// Registered before the recover below so it observes the
		// panic-replacement result too.
		defer func() { o.obs.RecordRun(ctx, result) }()
	}

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("account run panicked", "account", acct.ID, "panic", r)
			result = report.RunResult{
				RunID:      uuid.NewString(),
				AccountID:  acct.ID,
				Status:     report.StatusFailed,
				FatalError: fmt.Sprintf("panic: %v", r),
				StartedAt:  started,
				Duration:   o.clock.Now().Sub(started),
			}
		}
	}()

	if o.cfg.AccountTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.AccountTimeout)
		defer cancel()
	}

	return o.runner.Run(ctx, acct)
}
