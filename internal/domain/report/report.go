// Package report defines per-account run results and the aggregate run report.
package report

import (
	"time"

	"github.com/birdwork/roost/internal/domain/phase"
)

// Status is the final state of an account run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partially-completed"
	StatusFailed    Status = "failed"
)

// PhaseStatus is the terminal state of a single phase.
type PhaseStatus string

const (
	PhaseCompleted PhaseStatus = "completed" // quota or stream exhausted
	PhasePartial   PhaseStatus = "partial"   // ended early (rate limit, scrape failure, deadline)
	PhaseFailed    PhaseStatus = "failed"    // account-fatal error surfaced here
	PhaseSkipped   PhaseStatus = "skipped"   // disabled or no targets
)

// PhaseOutcome records what one phase did.
type PhaseOutcome struct {
	Kind     phase.Kind  `json:"kind"`
	Status   PhaseStatus `json:"status"`
	Actions  int         `json:"actions"`  // successful actions recorded
	Examined int         `json:"examined"` // candidates pulled from the scraper
	Skipped  int         `json:"skipped"`  // dedup hits, filter drops, pre-filter rejects
	Error    string      `json:"error,omitempty"`
}

// RunResult is the immutable per-account outcome of one run.
type RunResult struct {
	RunID      string         `json:"run_id"`
	AccountID  string         `json:"account_id"`
	Status     Status         `json:"status"`
	Phases     []PhaseOutcome `json:"phases"`
	FatalError string         `json:"fatal_error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	Duration   time.Duration  `json:"duration"`
}

// Actions sums successful actions across all phases.
func (r RunResult) Actions() int {
	total := 0
	for _, p := range r.Phases {
		total += p.Actions
	}
	return total
}

// Derive computes the run status from its phase outcomes. A fatal error
// makes the run failed; any early-ended phase makes it partial.
func (r RunResult) Derive() Status {
	if r.FatalError != "" {
		return StatusFailed
	}
	for _, p := range r.Phases {
		if p.Status == PhasePartial || p.Status == PhaseFailed {
			return StatusPartial
		}
	}
	return StatusCompleted
}

// Aggregate is the cross-account report for one orchestrator run.
type Aggregate struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Results   []RunResult   `json:"results"`
}

// Totals returns counts of account runs by status.
func (a Aggregate) Totals() map[Status]int {
	totals := make(map[Status]int, 3)
	for _, r := range a.Results {
		totals[r.Status]++
	}
	return totals
}

// TotalActions sums successful actions across all accounts.
func (a Aggregate) TotalActions() int {
	total := 0
	for _, r := range a.Results {
		total += r.Actions()
	}
	return total
}
