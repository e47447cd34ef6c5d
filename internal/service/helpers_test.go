package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/birdwork/roost/internal/domain/account"
	"github.com/birdwork/roost/internal/domain/candidate"
	"github.com/birdwork/roost/internal/domain/phase"
	"github.com/birdwork/roost/internal/port/authenticator"
	"github.com/birdwork/roost/internal/port/metrics"
	"github.com/birdwork/roost/internal/port/scraper"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock advances instantly on Sleep and records every suspension.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) sleepCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sleeps)
}

type fakeSession struct{ id string }

func (s fakeSession) AccountID() string { return s.id }

// fakeAuth fails with err when set, and panics for panicOn account IDs.
type fakeAuth struct {
	err     error
	panicOn string
	calls   int
}

func (a *fakeAuth) Authenticate(_ context.Context, acct account.Account) (authenticator.Session, error) {
	a.calls++
	if a.panicOn != "" && acct.ID == a.panicOn {
		panic("driver crashed")
	}
	if a.err != nil {
		return nil, fmt.Errorf("login %s: %w", acct.ID, a.err)
	}
	return fakeSession{id: acct.ID}, nil
}

// fakeScraper serves canned batches per target, with an optional queue of
// errors returned before the batch.
type fakeScraper struct {
	mu      sync.Mutex
	batches map[string][]candidate.Candidate
	errs    map[string][]error
	calls   []scraper.Request
}

func newFakeScraper() *fakeScraper {
	return &fakeScraper{
		batches: make(map[string][]candidate.Candidate),
		errs:    make(map[string][]error),
	}
}

func (s *fakeScraper) Fetch(_ context.Context, req scraper.Request) ([]candidate.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if q := s.errs[req.Target]; len(q) > 0 {
		err := q[0]
		s.errs[req.Target] = q[1:]
		return nil, err
	}
	return s.batches[req.Target], nil
}

func (s *fakeScraper) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// fakeScorer delegates to fn and counts calls.
type fakeScorer struct {
	mu    sync.Mutex
	fn    func(text string) (float64, error)
	calls int
}

func (s *fakeScorer) Score(_ context.Context, text string, _ []string) (float64, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fn == nil {
		return 1, nil
	}
	return s.fn(text)
}

func (s *fakeScorer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeBackend records performed actions and fails per content ID.
type fakeBackend struct {
	mu      sync.Mutex
	errs    map[string]error
	actions []string // "<kind>:<contentID>"
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{errs: make(map[string]error)}
}

func (b *fakeBackend) perform(kind phase.ActionKind, contentID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.errs[contentID]; err != nil {
		return err
	}
	b.actions = append(b.actions, string(kind)+":"+contentID)
	return nil
}

func (b *fakeBackend) Like(_ context.Context, _ authenticator.Session, contentID string) error {
	return b.perform(phase.ActionLike, contentID)
}

func (b *fakeBackend) Reply(_ context.Context, _ authenticator.Session, contentID, _ string) error {
	return b.perform(phase.ActionReply, contentID)
}

func (b *fakeBackend) Repost(_ context.Context, _ authenticator.Session, contentID string) error {
	return b.perform(phase.ActionRepost, contentID)
}

func (b *fakeBackend) actionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.actions)
}

// fakeComposer returns a fixed draft.
type fakeComposer struct {
	draft string
	err   error
}

func (c *fakeComposer) Compose(_ context.Context, _ candidate.Candidate) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if c.draft == "" {
		return "nice post, thanks for sharing", nil
	}
	return c.draft, nil
}

// countSink tallies outcomes.
type countSink struct {
	mu     sync.Mutex
	counts map[metrics.Outcome]int
}

func newCountSink() *countSink {
	return &countSink{counts: make(map[metrics.Outcome]int)}
}

func (s *countSink) Record(_ context.Context, _ string, _ phase.Kind, _ phase.ActionKind, outcome metrics.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[outcome]++
}

func (s *countSink) count(o metrics.Outcome) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[o]
}

// makeCandidates builds n candidates authored by others, created at base.
func makeCandidates(n int, prefix string, base time.Time) []candidate.Candidate {
	out := make([]candidate.Candidate, n)
	for i := range out {
		out[i] = candidate.Candidate{
			ID:        fmt.Sprintf("%s-%d", prefix, i+1),
			Author:    fmt.Sprintf("author%d", i+1),
			Text:      fmt.Sprintf("post number %d about golang", i+1),
			Likes:     10,
			Reposts:   5,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}
