// Package dedup defines the duplicate-action store port (interface).
package dedup

import (
	"context"
	"time"

	"github.com/birdwork/roost/internal/domain/phase"
)

// Record is one acted-upon content key. Created on successful action, never
// mutated. At most one record may ever exist per (account, content, kind).
type Record struct {
	AccountID string
	ContentID string
	Kind      phase.ActionKind
	ActedAt   time.Time
}

// Store is the dedup port. RecordAction must be atomic with respect to
// concurrent calls for the same key: the second of two racing calls returns
// an error wrapping domain.ErrDuplicateAction, never a second record.
//
// Storage errors are candidate-local unless they wrap
// domain.ErrStorageUnavailable, which is fatal for the run.
type Store interface {
	HasActed(ctx context.Context, accountID, contentID string, kind phase.ActionKind) (bool, error)
	RecordAction(ctx context.Context, rec Record) error
}
