package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/birdwork/roost/internal/domain"
	"github.com/birdwork/roost/internal/domain/phase"
	"github.com/birdwork/roost/internal/port/dedup"
)

// DedupStore implements dedup.Store on PostgreSQL. The primary key on
// (account_id, content_id, action_kind) makes RecordAction atomic: of two
// racing inserts exactly one row survives.
type DedupStore struct {
	pool *pgxpool.Pool
}

// NewDedupStore creates a DedupStore backed by the given connection pool.
func NewDedupStore(pool *pgxpool.Pool) *DedupStore {
	return &DedupStore{pool: pool}
}

// HasActed implements dedup.Store.
func (s *DedupStore) HasActed(ctx context.Context, accountID, contentID string, kind phase.ActionKind) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM acted_content
		   WHERE account_id = $1 AND content_id = $2 AND action_kind = $3
		 )`, accountID, contentID, string(kind)).Scan(&exists)
	if err != nil {
		return false, classify("dedup lookup", err)
	}
	return exists, nil
}

// RecordAction implements dedup.Store.
func (s *DedupStore) RecordAction(ctx context.Context, rec dedup.Record) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO acted_content (account_id, content_id, action_kind, acted_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (account_id, content_id, action_kind) DO NOTHING`,
		rec.AccountID, rec.ContentID, string(rec.Kind), rec.ActedAt)
	if err != nil {
		return classify("record action", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record action %s/%s/%s: %w", rec.AccountID, rec.ContentID, rec.Kind, domain.ErrDuplicateAction)
	}
	return nil
}

// classify wraps a pgx error into the run-fatal domain error when the store
// itself is unreachable. SQL-level errors pass through as candidate-local.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStorageUnavailable)
}
