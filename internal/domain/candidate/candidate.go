// Package candidate defines scraped content under consideration for an action.
package candidate

import (
	"time"

	"github.com/birdwork/roost/internal/domain/phase"
)

// Candidate is one unit of scraped content. Created by the scraper per phase
// invocation, consumed and discarded by the executor; only the dedup record
// outlives it.
type Candidate struct {
	ID        string // platform-unique content identifier
	Author    string // author handle
	Text      string
	Likes     int
	Reposts   int
	Replies   int
	Views     int64
	HasMedia  bool
	CreatedAt time.Time

	// Origin of the candidate: the phase that requested it and the target
	// (keyword, profile URL, community id, or "home") it was fetched for.
	Phase  phase.Kind
	Target string
}

// Age returns how old the candidate content is at the given instant.
func (c Candidate) Age(now time.Time) time.Duration {
	if c.CreatedAt.IsZero() {
		return 0
	}
	return now.Sub(c.CreatedAt)
}

// Popularity is a simple engagement score used to pre-rank feed candidates:
// likes*2.5 + reposts*3.0 + replies*1.2 + views*0.001.
func (c Candidate) Popularity() float64 {
	return float64(c.Likes)*2.5 + float64(c.Reposts)*3.0 +
		float64(c.Replies)*1.2 + float64(c.Views)*0.001
}

// Verdict is the outcome of relevance evaluation for one candidate.
// Transient: produced and consumed within a single executor iteration.
type Verdict struct {
	CandidateID string
	Score       float64 // in [0,1]
	Keep        bool    // score >= threshold, or filter disabled
}
