package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	roostotel "github.com/birdwork/roost/internal/adapter/otel"
	"github.com/birdwork/roost/internal/domain"
	"github.com/birdwork/roost/internal/domain/account"
	"github.com/birdwork/roost/internal/domain/candidate"
	"github.com/birdwork/roost/internal/domain/phase"
	"github.com/birdwork/roost/internal/domain/report"
	"github.com/birdwork/roost/internal/port/actions"
	"github.com/birdwork/roost/internal/port/authenticator"
	"github.com/birdwork/roost/internal/port/dedup"
	"github.com/birdwork/roost/internal/port/metrics"
	"github.com/birdwork/roost/internal/port/scraper"
)

// PhaseExecutor runs one engagement phase to completion: scrape, pre-filter,
// dedup, gate, act, record, delay, until quota exhaustion, stream
// exhaustion, or a terminating condition.
//
// Candidates are processed strictly in the order returned by the scraper,
// except the feed-reply phase, which pre-ranks its batch by popularity as
// part of candidate selection.
type PhaseExecutor struct {
	scraper  scraper.Scraper
	gate     *RelevanceGate
	dedup    dedup.Store
	limiter  *RateLimiter
	backend  actions.Backend
	composer actions.Composer
	sink     metrics.Sink
	clock    Clock
	log      *slog.Logger
}

// NewPhaseExecutor wires a PhaseExecutor with all dependencies.
func NewPhaseExecutor(
	sc scraper.Scraper,
	gate *RelevanceGate,
	store dedup.Store,
	limiter *RateLimiter,
	backend actions.Backend,
	composer actions.Composer,
	sink metrics.Sink,
	clock Clock,
	log *slog.Logger,
) *PhaseExecutor {
	return &PhaseExecutor{
		scraper:  sc,
		gate:     gate,
		dedup:    store,
		limiter:  limiter,
		backend:  backend,
		composer: composer,
		sink:     sink,
		clock:    clock,
		log:      log,
	}
}

// feedPacing tracks the hourly window state for the feed-reply phase.
type feedPacing struct {
	sessionEnd time.Time
	hourStart  time.Time
	thisHour   int
}

// Run executes one phase for one account. The returned error is non-nil only
// for account-fatal conditions (session invalidated, storage unavailable);
// everything else is absorbed into the outcome.
func (e *PhaseExecutor) Run(
	ctx context.Context,
	sess authenticator.Session,
	acct account.Account,
	kind phase.Kind,
	cfg phase.Config,
) (report.PhaseOutcome, error) {
	out := report.PhaseOutcome{Kind: kind, Status: report.PhaseCompleted}
	log := e.log.With("account", acct.ID, "phase", kind)

	ctx, span := roostotel.StartPhaseSpan(ctx, acct.ID, string(kind))
	defer span.End()

	targets := acct.Targets(kind)
	if !cfg.Enabled || cfg.Quota() <= 0 || len(targets) == 0 {
		out.Status = report.PhaseSkipped
		return out, nil
	}

	var pacing *feedPacing
	if kind == phase.KindFeedReply && cfg.PerHour > 0 {
		now := e.clock.Now()
		pacing = &feedPacing{
			sessionEnd: now.Add(time.Duration(cfg.MaxHours) * time.Hour),
			hourStart:  now,
		}
	}

	log.Info("phase started", "targets", len(targets), "quota", cfg.Quota())

	for _, target := range targets {
		if !e.limiter.AllowAction(acct.ID, kind) {
			log.Info("phase quota exhausted", "actions", out.Actions)
			return out, nil
		}

		batch, err := e.fetchBatch(ctx, kind, target, cfg)
		if err != nil {
			// Scrape failures never fail the account: transient ones were
			// already retried once, permanent ones (malformed target) end
			// the phase the same way.
			log.Warn("scrape failed, ending phase early", "target", target, "error", err)
			out.Status = report.PhasePartial
			out.Error = err.Error()
			return out, nil
		}

		if pacing != nil {
			sort.SliceStable(batch, func(i, j int) bool {
				return batch[i].Popularity() > batch[j].Popularity()
			})
		}

		done, err := e.processBatch(ctx, sess, acct, kind, cfg, batch, pacing, &out, log)
		if err != nil {
			return out, err
		}
		if done {
			return out, nil
		}
	}

	// Candidate streams exhausted across all targets.
	log.Info("phase finished", "actions", out.Actions, "examined", out.Examined, "skipped", out.Skipped)
	return out, nil
}

// fetchBatch requests one scrape batch, retrying a transient failure once.
func (e *PhaseExecutor) fetchBatch(ctx context.Context, kind phase.Kind, target string, cfg phase.Config) ([]candidate.Candidate, error) {
	req := scraper.Request{
		Phase:  kind,
		Target: target,
		Limit:  cfg.BatchLimit(),
	}
	if cfg.RecencyWindow > 0 {
		req.Since = e.clock.Now().Add(-cfg.RecencyWindow)
	}

	batch, err := e.scraper.Fetch(ctx, req)
	if err == nil {
		return batch, nil
	}

	var serr *scraper.Error
	if errors.As(err, &serr) && serr.Transient {
		e.log.Warn("transient scrape failure, retrying once", "target", target, "error", err)
		if batch, err = e.scraper.Fetch(ctx, req); err == nil {
			return batch, nil
		}
	}
	return nil, err
}

// processBatch walks one scrape batch. It returns done=true when the phase
// must stop (quota exhausted, rate limited, deadline), and a non-nil error
// only for account-fatal conditions.
func (e *PhaseExecutor) processBatch(
	ctx context.Context,
	sess authenticator.Session,
	acct account.Account,
	kind phase.Kind,
	cfg phase.Config,
	batch []candidate.Candidate,
	pacing *feedPacing,
	out *report.PhaseOutcome,
	log *slog.Logger,
) (done bool, err error) {
	action := kind.Action()

	for _, cand := range batch {
		if ctx.Err() != nil {
			// Global or per-account deadline: stop at the safe point,
			// after the previous candidate's action was fully recorded.
			out.Status = report.PhasePartial
			out.Error = ctx.Err().Error()
			return true, nil
		}

		out.Examined++

		if e.prefilterReject(acct, kind, cfg, cand) {
			out.Skipped++
			continue
		}

		acted, err := e.dedup.HasActed(ctx, acct.ID, cand.ID, action)
		if err != nil {
			if errors.Is(err, domain.ErrStorageUnavailable) {
				out.Status = report.PhaseFailed
				out.Error = err.Error()
				return true, fmt.Errorf("dedup lookup: %w", err)
			}
			log.Warn("dedup lookup failed, skipping candidate", "content", cand.ID, "error", err)
			out.Skipped++
			continue
		}
		if acted {
			out.Skipped++
			continue
		}

		if !e.limiter.AllowAction(acct.ID, kind) {
			return true, nil // quota exhausted: normal completion
		}

		if pacing != nil {
			if stop, perr := e.pace(ctx, cfg, pacing, log); perr != nil || stop {
				if perr != nil {
					out.Status = report.PhasePartial
					out.Error = perr.Error()
				}
				return true, nil
			}
		}

		verdict, err := e.gate.Evaluate(ctx, cand, acct.Keywords, cfg)
		if err != nil {
			log.Warn("scoring failed, dropping candidate", "content", cand.ID, "error", err)
			out.Skipped++
			continue
		}
		if !verdict.Keep {
			log.Debug("candidate below threshold", "content", cand.ID, "score", verdict.Score, "threshold", cfg.Threshold)
			out.Skipped++
			continue
		}

		if err := e.act(ctx, sess, cand, action); err != nil {
			e.sink.Record(ctx, acct.ID, kind, action, metrics.OutcomeFailure)

			switch {
			case errors.Is(err, domain.ErrSessionInvalid):
				out.Status = report.PhaseFailed
				out.Error = err.Error()
				return true, fmt.Errorf("account %s: %w", acct.ID, err)
			case errors.Is(err, domain.ErrRateLimited):
				log.Warn("platform rate limit hit, ending phase", "content", cand.ID)
				out.Status = report.PhasePartial
				out.Error = err.Error()
				// Backoff before the next phase starts.
				_ = e.clock.Sleep(ctx, cfg.MaxDelay)
				return true, nil
			default:
				log.Warn("action failed, skipping candidate", "content", cand.ID, "action", action, "error", err)
				continue
			}
		}

		if err := e.record(ctx, acct.ID, cand.ID, action); err != nil {
			out.Status = report.PhaseFailed
			out.Error = err.Error()
			return true, err
		}

		e.limiter.ConsumeAction(acct.ID, kind)
		out.Actions++
		if pacing != nil {
			pacing.thisHour++
		}
		e.sink.Record(ctx, acct.ID, kind, action, metrics.OutcomeSuccess)
		log.Info("action taken", "content", cand.ID, "action", action, "score", verdict.Score)

		if !e.limiter.AllowAction(acct.ID, kind) {
			return true, nil // that was the last permitted action
		}

		if err := e.clock.Sleep(ctx, e.limiter.NextDelay(cfg)); err != nil {
			out.Status = report.PhasePartial
			out.Error = err.Error()
			return true, nil
		}
	}

	return false, nil
}

// prefilterReject applies the cheap candidate filters that run before any
// scoring call: own posts, recency window, and repost-style engagement floors.
func (e *PhaseExecutor) prefilterReject(acct account.Account, kind phase.Kind, cfg phase.Config, cand candidate.Candidate) bool {
	if acct.IsSelf(cand.Author) {
		return true
	}
	if cfg.RecencyWindow > 0 && !cand.CreatedAt.IsZero() && cand.Age(e.clock.Now()) > cfg.RecencyWindow {
		return true
	}
	if kind.Action() == phase.ActionRepost {
		if cand.Likes < cfg.MinLikes || cand.Reposts < cfg.MinReposts {
			return true
		}
		if cfg.RequireMedia && !cand.HasMedia {
			return true
		}
	}
	return false
}

// pace enforces the feed phase's hourly window: once the per-hour cap is
// reached it cools down until the next hour boundary, and it stops the
// phase when the session length is spent.
func (e *PhaseExecutor) pace(ctx context.Context, cfg phase.Config, p *feedPacing, log *slog.Logger) (stop bool, err error) {
	now := e.clock.Now()
	if !now.Before(p.sessionEnd) {
		log.Info("feed session window spent")
		return true, nil
	}

	if now.Sub(p.hourStart) >= time.Hour {
		p.hourStart = now
		p.thisHour = 0
	}

	if p.thisHour < cfg.PerHour {
		return false, nil
	}

	wait := p.hourStart.Add(time.Hour).Sub(now)
	if remaining := p.sessionEnd.Sub(now); wait > remaining {
		log.Info("feed session window spent during cooldown")
		return true, nil
	}

	log.Info("hourly cap reached, cooling down", "wait", wait)
	if err := e.clock.Sleep(ctx, wait); err != nil {
		return true, err
	}
	p.hourStart = e.clock.Now()
	p.thisHour = 0
	return false, nil
}

// act dispatches the engagement action, drafting reply text when needed.
func (e *PhaseExecutor) act(ctx context.Context, sess authenticator.Session, cand candidate.Candidate, action phase.ActionKind) error {
	switch action {
	case phase.ActionLike:
		return e.backend.Like(ctx, sess, cand.ID)
	case phase.ActionRepost:
		return e.backend.Repost(ctx, sess, cand.ID)
	case phase.ActionReply:
		draft, err := e.composer.Compose(ctx, cand)
		if err != nil {
			return fmt.Errorf("compose reply: %w", err)
		}
		text, err := SanitizeReply(draft)
		if err != nil {
			return fmt.Errorf("sanitize reply: %w", err)
		}
		return e.backend.Reply(ctx, sess, cand.ID, text)
	}
	return fmt.Errorf("unknown action kind %q", action)
}

// record persists the dedup record for a completed action. A lost race with
// a concurrent recorder is a no-op; only whole-store unavailability is fatal.
func (e *PhaseExecutor) record(ctx context.Context, accountID, contentID string, action phase.ActionKind) error {
	err := e.dedup.RecordAction(ctx, dedup.Record{
		AccountID: accountID,
		ContentID: contentID,
		Kind:      action,
		ActedAt:   e.clock.Now(),
	})
	switch {
	case err == nil, errors.Is(err, domain.ErrDuplicateAction):
		return nil
	case errors.Is(err, domain.ErrStorageUnavailable):
		return fmt.Errorf("record action: %w", err)
	default:
		// Candidate-local storage error: the action happened, keep going.
		e.log.Warn("dedup record failed", "account", accountID, "content", contentID, "error", err)
		return nil
	}
}
