// Package actions defines the engagement action backend port (interface).
package actions

import (
	"context"

	"github.com/birdwork/roost/internal/domain/candidate"
	"github.com/birdwork/roost/internal/port/authenticator"
)

// Backend performs engagement actions against the platform.
//
// Error classification is by sentinel: errors wrapping
// domain.ErrSessionInvalid are fatal for the account run, errors wrapping
// domain.ErrRateLimited terminate the current phase, anything else skips the
// candidate.
type Backend interface {
	Like(ctx context.Context, sess authenticator.Session, contentID string) error
	Reply(ctx context.Context, sess authenticator.Session, contentID, text string) error
	Repost(ctx context.Context, sess authenticator.Session, contentID string) error
}

// Composer drafts reply text for a candidate. Used by reply-style phases;
// the executor runs the guard pass over the draft before posting.
type Composer interface {
	Compose(ctx context.Context, cand candidate.Candidate) (string, error)
}
