// Package authenticator defines the session acquisition port (interface).
package authenticator

import (
	"context"

	"github.com/birdwork/roost/internal/domain/account"
)

// Session is an opaque authenticated session handle. Implementations wrap
// whatever the backend needs (browser driver, cookie jar, API token).
type Session interface {
	AccountID() string
}

// Authenticator produces an authenticated session for an account, or fails
// with an error wrapping domain.ErrAuthFailed.
type Authenticator interface {
	Authenticate(ctx context.Context, acct account.Account) (Session, error)
}
