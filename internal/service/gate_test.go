package service

import (
	"context"
	"errors"
	"testing"

	"github.com/birdwork/roost/internal/domain/candidate"
	"github.com/birdwork/roost/internal/domain/phase"
)

func TestGateDisabledShortCircuits(t *testing.T) {
	sc := &fakeScorer{fn: func(string) (float64, error) {
		t.Fatal("scorer must not be called when the filter is disabled")
		return 0, nil
	}}
	g := NewRelevanceGate(sc)

	v, err := g.Evaluate(context.Background(), candidate.Candidate{ID: "c1"}, nil,
		phase.Config{FilterEnabled: false, Threshold: 0.9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Keep {
		t.Fatal("disabled filter must keep the candidate")
	}
	if sc.callCount() != 0 {
		t.Fatalf("expected 0 scorer calls, got %d", sc.callCount())
	}
}

func TestGateThreshold(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		threshold float64
		keep      bool
	}{
		{"above keeps", 0.8, 0.5, true},
		{"exactly equal keeps", 0.5, 0.5, true},
		{"below drops", 0.49, 0.5, false},
		{"zero threshold keeps zero", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewRelevanceGate(&fakeScorer{fn: func(string) (float64, error) {
				return tt.score, nil
			}})

			v, err := g.Evaluate(context.Background(), candidate.Candidate{ID: "c1"}, nil,
				phase.Config{FilterEnabled: true, Threshold: tt.threshold})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Keep != tt.keep {
				t.Fatalf("score %v threshold %v: keep = %v, want %v", tt.score, tt.threshold, v.Keep, tt.keep)
			}
			if v.Score != tt.score {
				t.Fatalf("verdict score = %v, want %v", v.Score, tt.score)
			}
		})
	}
}

func TestGateScoringErrorPropagates(t *testing.T) {
	scoreErr := errors.New("model timeout")
	g := NewRelevanceGate(&fakeScorer{fn: func(string) (float64, error) {
		return 0, scoreErr
	}})

	_, err := g.Evaluate(context.Background(), candidate.Candidate{ID: "c1"}, nil,
		phase.Config{FilterEnabled: true, Threshold: 0.5})
	if !errors.Is(err, scoreErr) {
		t.Fatalf("expected wrapped scoring error, got %v", err)
	}
}
