// Package memory provides an in-process dedup store for tests and
// database-free runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/birdwork/roost/internal/domain"
	"github.com/birdwork/roost/internal/domain/phase"
	"github.com/birdwork/roost/internal/port/dedup"
)

type key struct {
	accountID string
	contentID string
	kind      phase.ActionKind
}

// DedupStore implements dedup.Store with a mutex-guarded map. Records do not
// survive a restart.
type DedupStore struct {
	mu   sync.Mutex
	recs map[key]dedup.Record
}

// NewDedupStore creates an empty in-memory dedup store.
func NewDedupStore() *DedupStore {
	return &DedupStore{recs: make(map[key]dedup.Record)}
}

// HasActed implements dedup.Store.
func (s *DedupStore) HasActed(_ context.Context, accountID, contentID string, kind phase.ActionKind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.recs[key{accountID, contentID, kind}]
	return ok, nil
}

// RecordAction implements dedup.Store. The mutex makes the check-and-insert
// atomic; a racing second call observes the first record and loses.
func (s *DedupStore) RecordAction(_ context.Context, rec dedup.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{rec.AccountID, rec.ContentID, rec.Kind}
	if _, ok := s.recs[k]; ok {
		return fmt.Errorf("record action %s/%s/%s: %w", rec.AccountID, rec.ContentID, rec.Kind, domain.ErrDuplicateAction)
	}
	s.recs[k] = rec
	return nil
}

// Len returns the number of stored records.
func (s *DedupStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}
