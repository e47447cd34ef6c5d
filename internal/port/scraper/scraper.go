// Package scraper defines the candidate scraping port (interface).
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/birdwork/roost/internal/domain/candidate"
	"github.com/birdwork/roost/internal/domain/phase"
)

// Request describes one scrape invocation. The returned batch is finite and
// non-restartable; callers issue a fresh Request for more candidates.
type Request struct {
	Phase  phase.Kind
	Target string    // keyword, profile URL, community id, or "home"
	Since  time.Time // zero = no recency cutoff pushed to the backend
	Limit  int
}

// Scraper turns a target into a batch of candidates in backend order
// (most relevant or most recent first).
type Scraper interface {
	Fetch(ctx context.Context, req Request) ([]candidate.Candidate, error)
}

// Error classifies a failed scrape. Transient failures are retried once by
// the executor; permanent ones (malformed target, gone resource) end the
// phase early.
type Error struct {
	Target    string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	mode := "permanent"
	if e.Transient {
		mode = "transient"
	}
	return fmt.Sprintf("scrape %s (%s): %v", e.Target, mode, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
