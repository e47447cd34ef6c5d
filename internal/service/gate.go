package service

import (
	"context"
	"fmt"

	"github.com/birdwork/roost/internal/domain/candidate"
	"github.com/birdwork/roost/internal/domain/phase"
	"github.com/birdwork/roost/internal/port/scorer"
)

// RelevanceGate wraps the scoring backend and applies the phase threshold.
type RelevanceGate struct {
	scorer scorer.Scorer
}

// NewRelevanceGate creates a gate over the given scoring backend.
func NewRelevanceGate(s scorer.Scorer) *RelevanceGate {
	return &RelevanceGate{scorer: s}
}

// Evaluate decides keep/drop for one candidate. With the filter disabled it
// short-circuits to keep without a scoring call. A candidate with score
// exactly equal to the threshold is kept.
//
// Scoring errors are candidate-local: the caller drops the candidate, logs,
// and continues.
func (g *RelevanceGate) Evaluate(ctx context.Context, cand candidate.Candidate, keywords []string, cfg phase.Config) (candidate.Verdict, error) {
	if !cfg.FilterEnabled {
		return candidate.Verdict{CandidateID: cand.ID, Score: 1, Keep: true}, nil
	}

	score, err := g.scorer.Score(ctx, cand.Text, keywords)
	if err != nil {
		return candidate.Verdict{}, fmt.Errorf("score candidate %s: %w", cand.ID, err)
	}

	return candidate.Verdict{
		CandidateID: cand.ID,
		Score:       score,
		Keep:        score >= cfg.Threshold,
	}, nil
}
