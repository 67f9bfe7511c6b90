package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CompletionRepository is the durable registry of candidate emails that have
// ever completed an attempt. It is the single source of truth for the
// at-most-once participation guarantee.
type CompletionRepository struct {
	pool *pgxpool.Pool
}

// NewCompletionRepository creates a new CompletionRepository.
func NewCompletionRepository(pool *pgxpool.Pool) *CompletionRepository {
	return &CompletionRepository{pool: pool}
}

// HasCompleted reports whether the normalized email is registered.
func (r *CompletionRepository) HasCompleted(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM completions WHERE candidate_email = $1)`, email,
	).Scan(&exists)
	return exists, err
}

// MarkCompleted registers an email. Inserting an already-present key is a
// no-op, not an error: the registry is a write-once set.
func (r *CompletionRepository) MarkCompleted(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO completions (candidate_email)
		 VALUES ($1)
		 ON CONFLICT (candidate_email) DO NOTHING`, email)
	return err
}
