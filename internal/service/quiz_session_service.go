package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/skilldesk/skilldesk-backend/internal/catalog"
	"github.com/skilldesk/skilldesk-backend/internal/config"
	"github.com/skilldesk/skilldesk-backend/internal/model"
)

// QuizSessionService is the session engine: it owns every state transition of
// a candidate's attempt. All mutations of one session are serialized through
// a per-session lock, so the lifecycle logic below never races with itself.
type QuizSessionService struct {
	sessions    SessionStore
	attempts    AttemptStore
	completions CompletionStore
	catalog     *catalog.Catalog
	deadlines   DeadlineCache
	reports     ReportQueue
	duration    time.Duration
	log         zerolog.Logger

	// now is swappable for deterministic deadline tests.
	now func() time.Time

	locks sessionLocks
}

// NewQuizSessionService creates a new QuizSessionService.
func NewQuizSessionService(
	sessions SessionStore,
	attempts AttemptStore,
	completions CompletionStore,
	cat *catalog.Catalog,
	deadlines DeadlineCache,
	reports ReportQueue,
	cfg *config.Config,
	log zerolog.Logger,
) *QuizSessionService {
	return &QuizSessionService{
		sessions:    sessions,
		attempts:    attempts,
		completions: completions,
		catalog:     cat,
		deadlines:   deadlines,
		reports:     reports,
		duration:    cfg.QuizDuration,
		log:         log.With().Str("component", "quiz_session_service").Logger(),
		now:         time.Now,
	}
}

// QuizView is what the presentation layer renders after any engine call:
// either the current question or the terminal marker.
type QuizView struct {
	Finished         bool                `json:"finished"`
	FinishReason     *model.FinishReason `json:"finish_reason,omitempty"`
	Question         *model.Question     `json:"question,omitempty"`
	Number           int                 `json:"number,omitempty"`
	Total            int                 `json:"total"`
	CurrentAnswer    string              `json:"current_answer,omitempty"`
	RemainingSeconds int64               `json:"remaining_seconds"`
}

// CreateSession starts a new attempt for an identity, unless its normalized
// email is already in the completion registry. The create is idempotent under
// races: when two requests for the same email arrive together, the unique
// index lets one insert win and the loser is handed the winner's session.
func (s *QuizSessionService) CreateSession(ctx context.Context, name, email string) (*model.QuizSession, error) {
	key := model.NormalizeEmail(email)

	done, err := s.completions.HasCompleted(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check completion registry: %w", err)
	}
	if done {
		return nil, ErrAlreadyCompleted
	}

	now := s.now()
	sess := &model.QuizSession{
		ID:             uuid.New(),
		CandidateName:  strings.TrimSpace(name),
		CandidateEmail: key,
		CreatedAt:      now,
		// Set exactly once. Resume, restart, and reconnect never touch it.
		QuizDeadline: now.Add(s.duration),
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent create or an earlier unfinished attempt.
			existing, fetchErr := s.sessions.GetByEmail(ctx, key)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent create detected, but fetch failed: %w", fetchErr)
			}
			if existing.Finished {
				return nil, ErrAlreadyCompleted
			}
			return existing, nil
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := s.deadlines.SetDeadline(ctx, sess.ID, sess.QuizDeadline); err != nil {
		// Not fatal: RemainingTime falls back to the session row and self-heals.
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Failed to cache deadline")
	}

	return sess, nil
}

// RemainingTime returns max(0, deadline - now). The deadline is read from the
// cache when possible; a miss falls back to the session row and re-caches it.
func (s *QuizSessionService) RemainingTime(ctx context.Context, sess *model.QuizSession) time.Duration {
	deadline, err := s.deadlines.GetDeadline(ctx, sess.ID)
	if err != nil {
		if !errors.Is(err, ErrDeadlineNotCached) {
			s.log.Debug().Err(err).Msg("Deadline cache read failed, using session row")
		}
		deadline = sess.QuizDeadline
		_ = s.deadlines.SetDeadline(ctx, sess.ID, deadline)
	}

	remaining := deadline.Sub(s.now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// View returns the current question for a session, the candidate's prior
// answer to it, and the remaining time. Like every entry point it first
// enforces the deadline: an expired session is force-submitted here and the
// terminal marker returned instead.
func (s *QuizSessionService) View(ctx context.Context, sessionID uuid.UUID) (*QuizView, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Finished {
		return s.terminalView(sess), nil
	}

	remaining := s.RemainingTime(ctx, sess)
	if remaining == 0 {
		if err := s.finishLocked(ctx, sess, model.FinishReasonTimeout); err != nil {
			return nil, err
		}
		return s.terminalView(sess), nil
	}

	question, ok := s.catalog.ByIndex(sess.CurrentIndex)
	if !ok {
		return nil, fmt.Errorf("current index %d outside catalog", sess.CurrentIndex)
	}

	// First visit creates the attempt row; revisits keep first_seen_at.
	if err := s.attempts.Touch(ctx, sess.ID, question.ID); err != nil {
		return nil, fmt.Errorf("touch attempt: %w", err)
	}

	answer, err := s.priorAnswer(ctx, sess.ID, question.ID)
	if err != nil {
		return nil, err
	}

	return &QuizView{
		Question:         &question,
		Number:           sess.CurrentIndex + 1,
		Total:            s.catalog.Len(),
		CurrentAnswer:    answer,
		RemainingSeconds: int64(remaining.Seconds()),
	}, nil
}

// SubmitAnswer persists the answer for the engine's current question and then
// applies the navigation action. The answer write happens regardless of the
// action, so moving away from a question never loses what was typed.
// Navigation is validated against the engine's own pointer, so a crafted
// question_id cannot skip ahead.
func (s *QuizSessionService) SubmitAnswer(ctx context.Context, sessionID uuid.UUID, questionID int, answer string, action model.NavAction) (*QuizView, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Finished {
		// Stale page on a finished session is expected, not a fault.
		return s.terminalView(sess), nil
	}

	remaining := s.RemainingTime(ctx, sess)
	if remaining == 0 {
		if err := s.finishLocked(ctx, sess, model.FinishReasonTimeout); err != nil {
			return nil, err
		}
		return s.terminalView(sess), nil
	}

	question, ok := s.catalog.ByIndex(sess.CurrentIndex)
	if !ok {
		return nil, fmt.Errorf("current index %d outside catalog", sess.CurrentIndex)
	}
	if question.ID != questionID {
		return nil, ErrInvalidNavigation
	}

	if err := s.attempts.Upsert(ctx, sess.ID, question.ID, answer); err != nil {
		return nil, fmt.Errorf("upsert attempt: %w", err)
	}

	switch action {
	case model.NavPrevious:
		if sess.CurrentIndex > 0 {
			if err := s.moveTo(ctx, sess, sess.CurrentIndex-1); err != nil {
				return nil, err
			}
		}
	case model.NavNext:
		if sess.CurrentIndex < s.catalog.Len()-1 {
			if err := s.moveTo(ctx, sess, sess.CurrentIndex+1); err != nil {
				return nil, err
			}
		}
	case model.NavSubmit:
		if err := s.finishLocked(ctx, sess, model.FinishReasonSubmit); err != nil {
			return nil, err
		}
		return s.terminalView(sess), nil
	}

	current, _ := s.catalog.ByIndex(sess.CurrentIndex)
	prior, err := s.priorAnswer(ctx, sess.ID, current.ID)
	if err != nil {
		return nil, err
	}

	return &QuizView{
		Question:         &current,
		Number:           sess.CurrentIndex + 1,
		Total:            s.catalog.Len(),
		CurrentAnswer:    prior,
		RemainingSeconds: int64(remaining.Seconds()),
	}, nil
}

// Restart rewinds an unfinished attempt to the first question and blanks all
// answers. The quiz deadline and the attention-loss counter survive restarts:
// the countdown and the integrity record cover the whole attempt, not one
// pass through the questions.
func (s *QuizSessionService) Restart(ctx context.Context, sessionID uuid.UUID) (*QuizView, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Finished {
		return s.terminalView(sess), nil
	}

	remaining := s.RemainingTime(ctx, sess)
	if remaining == 0 {
		if err := s.finishLocked(ctx, sess, model.FinishReasonTimeout); err != nil {
			return nil, err
		}
		return s.terminalView(sess), nil
	}

	if err := s.attempts.ClearAnswers(ctx, sess.ID); err != nil {
		return nil, fmt.Errorf("clear answers: %w", err)
	}
	if err := s.moveTo(ctx, sess, 0); err != nil {
		return nil, err
	}

	question, _ := s.catalog.ByIndex(0)
	return &QuizView{
		Question:         &question,
		Number:           1,
		Total:            s.catalog.Len(),
		RemainingSeconds: int64(remaining.Seconds()),
	}, nil
}

// ForceFinish drives a session onto the terminal edge from outside the
// normal navigation flow (integrity escalation). Idempotent: finishing an
// already-finished session is a no-op.
func (s *QuizSessionService) ForceFinish(ctx context.Context, sessionID uuid.UUID, reason model.FinishReason) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Finished {
		return nil
	}
	return s.finishLocked(ctx, sess, reason)
}

// GetSession loads a session by ID, mapping a missing row to ErrSessionNotFound.
func (s *QuizSessionService) GetSession(ctx context.Context, sessionID uuid.UUID) (*model.QuizSession, error) {
	return s.load(ctx, sessionID)
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

func (s *QuizSessionService) load(ctx context.Context, sessionID uuid.UUID) (*model.QuizSession, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *QuizSessionService) moveTo(ctx context.Context, sess *model.QuizSession, index int) error {
	if err := s.sessions.UpdateCurrentIndex(ctx, sess.ID, index); err != nil {
		return fmt.Errorf("update index: %w", err)
	}
	sess.CurrentIndex = index
	return nil
}

// finishLocked performs the single terminal transition. The store-level
// finished=FALSE guard ensures that even if two entry points race here,
// exactly one of them registers the completion and enqueues the report.
func (s *QuizSessionService) finishLocked(ctx context.Context, sess *model.QuizSession, reason model.FinishReason) error {
	won, err := s.sessions.Finish(ctx, sess.ID, reason)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}

	sess.Finished = true
	sess.FinishReason = &reason

	if !won {
		return nil
	}

	// Every terminal edge registers the completion: explicit submit, timeout,
	// and malpractice all consume the candidate's single attempt.
	if err := s.completions.MarkCompleted(ctx, sess.CandidateEmail); err != nil {
		s.log.Error().Err(err).
			Str("session_id", sess.ID.String()).
			Str("email", sess.CandidateEmail).
			Msg("Failed to register completion")
	}

	if err := s.reports.Enqueue(ctx, ReportJob{SessionID: sess.ID.String(), Reason: reason}); err != nil {
		// Best effort: the candidate still gets the terminal view.
		s.log.Error().Err(err).
			Str("session_id", sess.ID.String()).
			Msg("Failed to enqueue report dispatch")
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("reason", string(reason)).
		Msg("Session finished")

	return nil
}

func (s *QuizSessionService) priorAnswer(ctx context.Context, sessionID uuid.UUID, questionID int) (string, error) {
	attempt, err := s.attempts.Get(ctx, sessionID, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get attempt: %w", err)
	}
	return attempt.Answer, nil
}

func (s *QuizSessionService) terminalView(sess *model.QuizSession) *QuizView {
	return &QuizView{
		Finished:     true,
		FinishReason: sess.FinishReason,
		Total:        s.catalog.Len(),
	}
}

// sessionLocks serializes mutations per session with a striped mutex set.
// Striping keeps memory constant regardless of how many sessions exist.
type sessionLocks struct {
	shards [64]sync.Mutex
}

func (l *sessionLocks) lock(id uuid.UUID) func() {
	m := &l.shards[int(id[0])&63]
	m.Lock()
	return m.Unlock
}
