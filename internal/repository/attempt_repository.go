package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skilldesk/skilldesk-backend/internal/model"
)

// AttemptRepository handles per-question answer records.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Touch lazily creates the attempt row on the first visit to a question.
// Subsequent visits are no-ops, preserving first_seen_at.
func (r *AttemptRepository) Touch(ctx context.Context, sessionID uuid.UUID, questionID int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempts (session_id, question_id)
		 VALUES ($1, $2)
		 ON CONFLICT (session_id, question_id) DO NOTHING`,
		sessionID, questionID)
	return err
}

// Upsert writes an answer for a (session, question) pair. At most one row
// exists per pair; re-submitting replaces the answer in place.
func (r *AttemptRepository) Upsert(ctx context.Context, sessionID uuid.UUID, questionID int, answer string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempts (session_id, question_id, answer, last_submitted_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (session_id, question_id)
		 DO UPDATE SET answer = EXCLUDED.answer, last_submitted_at = NOW()`,
		sessionID, questionID, answer)
	return err
}

// Get retrieves a single attempt, or pgx.ErrNoRows if the question was
// never visited.
func (r *AttemptRepository) Get(ctx context.Context, sessionID uuid.UUID, questionID int) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, question_id, first_seen_at, answer, last_submitted_at
		 FROM attempts
		 WHERE session_id = $1 AND question_id = $2`,
		sessionID, questionID,
	).Scan(&a.SessionID, &a.QuestionID, &a.FirstSeenAt, &a.Answer, &a.LastSubmittedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListBySession retrieves all attempts for a session in catalog order.
func (r *AttemptRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, question_id, first_seen_at, answer, last_submitted_at
		 FROM attempts
		 WHERE session_id = $1
		 ORDER BY question_id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &a.FirstSeenAt, &a.Answer, &a.LastSubmittedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ClearAnswers blanks every answer for a session while keeping the rows, so
// first_seen_at history survives a restart.
func (r *AttemptRepository) ClearAnswers(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts SET answer = '', last_submitted_at = NULL WHERE session_id = $1`,
		sessionID)
	return err
}
