package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skilldesk/skilldesk-backend/internal/model"
)

// QuizSessionRepository handles quiz session data access.
type QuizSessionRepository struct {
	pool *pgxpool.Pool
}

// NewQuizSessionRepository creates a new QuizSessionRepository.
func NewQuizSessionRepository(pool *pgxpool.Pool) *QuizSessionRepository {
	return &QuizSessionRepository{pool: pool}
}

const sessionColumns = `id, candidate_name, candidate_email, created_at, quiz_deadline,
	 current_index, finished, finished_at, finish_reason, tab_switch_count, report_dispatched_at`

func scanSession(row interface{ Scan(dest ...any) error }) (*model.QuizSession, error) {
	s := &model.QuizSession{}
	err := row.Scan(&s.ID, &s.CandidateName, &s.CandidateEmail, &s.CreatedAt, &s.QuizDeadline,
		&s.CurrentIndex, &s.Finished, &s.FinishedAt, &s.FinishReason, &s.TabSwitchCount, &s.ReportDispatchedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new session for a candidate email. The unique index on
// candidate_email makes the insert a no-op when a session already exists;
// that case surfaces as pgx.ErrNoRows so the caller can recover the
// concurrent winner's session.
func (r *QuizSessionRepository) Create(ctx context.Context, s *model.QuizSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO quiz_sessions (id, candidate_name, candidate_email, quiz_deadline)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (candidate_email) DO NOTHING
		 RETURNING id, created_at`,
		s.ID, s.CandidateName, s.CandidateEmail, s.QuizDeadline,
	).Scan(&s.ID, &s.CreatedAt)
}

// GetByID retrieves a session by its ID.
func (r *QuizSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.QuizSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM quiz_sessions WHERE id = $1`, id))
}

// GetByEmail retrieves a session by normalized candidate email.
func (r *QuizSessionRepository) GetByEmail(ctx context.Context, email string) (*model.QuizSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM quiz_sessions WHERE candidate_email = $1`, email))
}

// UpdateCurrentIndex moves the session's question pointer.
func (r *QuizSessionRepository) UpdateCurrentIndex(ctx context.Context, id uuid.UUID, index int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quiz_sessions SET current_index = $2 WHERE id = $1 AND finished = FALSE`,
		id, index)
	return err
}

// Finish marks a session finished. The WHERE finished = FALSE guard makes the
// transition single-fire: exactly one caller observes finished=true, and only
// that caller may dispatch the report and register the completion.
func (r *QuizSessionRepository) Finish(ctx context.Context, id uuid.UUID, reason model.FinishReason) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quiz_sessions
		 SET finished = TRUE, finished_at = NOW(), finish_reason = $2
		 WHERE id = $1 AND finished = FALSE`,
		id, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// IncrementTabSwitch bumps the attention-loss counter and returns the new
// value. Finished sessions are left untouched and report a zero count.
func (r *QuizSessionRepository) IncrementTabSwitch(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`UPDATE quiz_sessions
		 SET tab_switch_count = tab_switch_count + 1
		 WHERE id = $1 AND finished = FALSE
		 RETURNING tab_switch_count`,
		id).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ResetProgress rewinds the question pointer to the first question. The
// deadline and the attention-loss counter are deliberately not touched.
func (r *QuizSessionRepository) ResetProgress(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quiz_sessions SET current_index = 0 WHERE id = $1 AND finished = FALSE`, id)
	return err
}

// MarkReportDispatched records report delivery bookkeeping on a finished session.
func (r *QuizSessionRepository) MarkReportDispatched(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quiz_sessions SET report_dispatched_at = $2 WHERE id = $1`, id, at)
	return err
}
