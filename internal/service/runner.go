package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	roostotel "github.com/birdwork/roost/internal/adapter/otel"
	"github.com/birdwork/roost/internal/config"
	"github.com/birdwork/roost/internal/domain/account"
	"github.com/birdwork/roost/internal/domain/phase"
	"github.com/birdwork/roost/internal/domain/report"
	"github.com/birdwork/roost/internal/port/authenticator"
)

// AccountRunner executes all enabled phases for one account inside one
// authenticated session: Idle → Authenticating → Running(phase_i)* →
// Completed | Failed. Phases run strictly sequentially and in fixed order;
// quota state never needs cross-phase synchronization.
type AccountRunner struct {
	auth    authenticator.Authenticator
	exec    *PhaseExecutor
	limiter *RateLimiter
	phases  config.Phases
	order   []phase.Kind
	clock   Clock
	log     *slog.Logger
}

// NewAccountRunner wires an AccountRunner. The phase order is fixed for the
// lifetime of the runner.
func NewAccountRunner(
	auth authenticator.Authenticator,
	exec *PhaseExecutor,
	limiter *RateLimiter,
	phases config.Phases,
	clock Clock,
	log *slog.Logger,
) *AccountRunner {
	return &AccountRunner{
		auth:    auth,
		exec:    exec,
		limiter: limiter,
		phases:  phases,
		order:   phase.DefaultOrder,
		clock:   clock,
		log:     log,
	}
}

// Run executes one full account run and returns its immutable result.
// All errors are absorbed into the result; nothing escapes across the
// account boundary.
func (r *AccountRunner) Run(ctx context.Context, acct account.Account) report.RunResult {
	result := report.RunResult{
		RunID:     uuid.NewString(),
		AccountID: acct.ID,
		StartedAt: r.clock.Now(),
	}
	log := r.log.With("account", acct.ID, "run", result.RunID)

	ctx, span := roostotel.StartRunSpan(ctx, result.RunID, acct.ID)
	defer span.End()

	finish := func() report.RunResult {
		result.Duration = r.clock.Now().Sub(result.StartedAt)
		log.Info("account run finished",
			"status", string(result.Status),
			"phases", len(result.Phases),
			"actions", result.Actions(),
		)
		return result
	}

	log.Info("authenticating")
	sess, err := r.auth.Authenticate(ctx, acct)
	if err != nil {
		// Terminal: no retry within this run; re-authentication requires
		// an external credential refresh.
		result.FatalError = fmt.Sprintf("authenticate: %v", err)
		result.Status = report.StatusFailed
		return finish()
	}

	for _, kind := range r.order {
		if ctx.Err() != nil {
			log.Warn("run deadline reached between phases", "next_phase", kind)
			result.Status = report.StatusPartial
			return finish()
		}

		cfg := acct.PhaseConfig(kind, r.phases.For(kind))
		r.limiter.ResetQuota(acct.ID, kind, cfg.Quota())

		outcome, err := r.exec.Run(ctx, sess, acct, kind, cfg)
		result.Phases = append(result.Phases, outcome)
		if err != nil {
			// Account-fatal: stop immediately, remaining phases never run.
			result.FatalError = err.Error()
			result.Status = report.StatusFailed
			return finish()
		}
	}

	result.Status = result.Derive()
	return finish()
}
