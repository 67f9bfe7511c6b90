package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/skilldesk/skilldesk-backend/internal/model"
)

// The store interfaces below are satisfied by the pgx repositories in
// internal/repository. Services depend on them rather than the concrete
// types so the lifecycle logic can be exercised against in-memory fakes.

// SessionStore persists quiz sessions.
type SessionStore interface {
	Create(ctx context.Context, s *model.QuizSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.QuizSession, error)
	GetByEmail(ctx context.Context, email string) (*model.QuizSession, error)
	UpdateCurrentIndex(ctx context.Context, id uuid.UUID, index int) error
	// Finish reports whether this call performed the false→true transition.
	Finish(ctx context.Context, id uuid.UUID, reason model.FinishReason) (bool, error)
	IncrementTabSwitch(ctx context.Context, id uuid.UUID) (int, error)
	ResetProgress(ctx context.Context, id uuid.UUID) error
	MarkReportDispatched(ctx context.Context, id uuid.UUID, at time.Time) error
}

// AttemptStore persists per-question answer records.
type AttemptStore interface {
	Touch(ctx context.Context, sessionID uuid.UUID, questionID int) error
	Upsert(ctx context.Context, sessionID uuid.UUID, questionID int, answer string) error
	Get(ctx context.Context, sessionID uuid.UUID, questionID int) (*model.Attempt, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Attempt, error)
	ClearAnswers(ctx context.Context, sessionID uuid.UUID) error
}

// CompletionStore is the durable at-most-once participation registry.
type CompletionStore interface {
	HasCompleted(ctx context.Context, email string) (bool, error)
	MarkCompleted(ctx context.Context, email string) error
}

// IntegrityLog is the append-only attention-loss event log.
type IntegrityLog interface {
	Append(ctx context.Context, e *model.IntegrityEvent) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.IntegrityEvent, error)
}
