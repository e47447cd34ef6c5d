// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrAuthFailed indicates the account session could not be established.
// Fatal for the account run; re-authentication requires a credential refresh.
var ErrAuthFailed = errors.New("authentication failed")

// ErrSessionInvalid indicates the platform rejected the session mid-run.
// Fatal for the account run.
var ErrSessionInvalid = errors.New("session invalid")

// ErrRateLimited indicates the platform throttled the account.
// Terminates the current phase; the run continues with the next phase.
var ErrRateLimited = errors.New("platform rate limited")

// ErrDuplicateAction indicates an action was already recorded for the
// same (account, content, kind) key.
var ErrDuplicateAction = errors.New("action already recorded")

// ErrStorageUnavailable indicates the dedup store is wholly unavailable
// (e.g. disk full, connection lost). Fatal for the run.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrQuotaExhausted signals normal phase termination by quota. Not a failure.
var ErrQuotaExhausted = errors.New("phase quota exhausted")

// ErrNotFound indicates a requested record does not exist.
var ErrNotFound = errors.New("not found")
