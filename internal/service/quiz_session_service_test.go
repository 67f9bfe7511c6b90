package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skilldesk/skilldesk-backend/internal/catalog"
	"github.com/skilldesk/skilldesk-backend/internal/config"
	"github.com/skilldesk/skilldesk-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	engine      *QuizSessionService
	sessions    *fakeSessionStore
	attempts    *fakeAttemptStore
	completions *fakeCompletionStore
	deadlines   *fakeDeadlineCache
	queue       *fakeReportQueue

	// now is the fixture's clock; tests advance it to cross the deadline.
	now time.Time
}

func newEngineFixture(t *testing.T, questionCount int) *engineFixture {
	t.Helper()

	questions := make([]model.Question, 0, questionCount)
	for i := 1; i <= questionCount; i++ {
		questions = append(questions, model.Question{ID: i, Text: fmt.Sprintf("Question %d", i)})
	}

	fx := &engineFixture{
		sessions:    newFakeSessionStore(),
		attempts:    newFakeAttemptStore(),
		completions: newFakeCompletionStore(),
		deadlines:   newFakeDeadlineCache(),
		queue:       &fakeReportQueue{},
		now:         time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}

	cfg := &config.Config{
		QuizDuration:       30 * time.Minute,
		MaxAttentionLosses: 3,
	}

	fx.engine = NewQuizSessionService(
		fx.sessions, fx.attempts, fx.completions,
		catalog.New(questions), fx.deadlines, fx.queue,
		cfg, zerolog.Nop(),
	)
	fx.engine.now = func() time.Time { return fx.now }

	return fx
}

func (fx *engineFixture) createSession(t *testing.T, name, email string) *model.QuizSession {
	t.Helper()
	sess, err := fx.engine.CreateSession(context.Background(), name, email)
	require.NoError(t, err)
	return sess
}

func TestCreateSessionSetsDeadlineFromDuration(t *testing.T) {
	fx := newEngineFixture(t, 3)

	sess := fx.createSession(t, "Ann", "ann@example.com")

	assert.Equal(t, "ann@example.com", sess.CandidateEmail)
	assert.Equal(t, fx.now.Add(30*time.Minute), sess.QuizDeadline)

	cached, err := fx.deadlines.GetDeadline(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.QuizDeadline, cached)
}

func TestCreateSessionNormalizesEmail(t *testing.T) {
	fx := newEngineFixture(t, 3)

	sess := fx.createSession(t, "Ann", "  Ann@Example.COM ")
	assert.Equal(t, "ann@example.com", sess.CandidateEmail)

	// A case variant resolves to the same open session instead of a new one.
	again, err := fx.engine.CreateSession(context.Background(), "Ann", "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, again.ID)
}

func TestCreateSessionResumesExistingAttempt(t *testing.T) {
	fx := newEngineFixture(t, 3)

	first := fx.createSession(t, "Ann", "ann@example.com")
	fx.now = fx.now.Add(5 * time.Minute)

	second := fx.createSession(t, "Ann", "ann@example.com")
	assert.Equal(t, first.ID, second.ID)
	// The deadline is set once; a later create does not extend it.
	assert.Equal(t, first.QuizDeadline, second.QuizDeadline)
}

func TestCreateSessionRejectsCompletedEmail(t *testing.T) {
	fx := newEngineFixture(t, 3)
	require.NoError(t, fx.completions.MarkCompleted(context.Background(), "done@example.com"))

	_, err := fx.engine.CreateSession(context.Background(), "Dan", "done@example.com")
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestViewReturnsCurrentQuestion(t *testing.T) {
	fx := newEngineFixture(t, 3)
	sess := fx.createSession(t, "Ann", "ann@example.com")

	view, err := fx.engine.View(context.Background(), sess.ID)
	require.NoError(t, err)

	assert.False(t, view.Finished)
	assert.Equal(t, 1, view.Number)
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, 1, view.Question.ID)
	assert.Empty(t, view.CurrentAnswer)
	assert.Equal(t, int64((30 * time.Minute).Seconds()), view.RemainingSeconds)
}

func TestViewUnknownSession(t *testing.T) {
	fx := newEngineFixture(t, 3)

	_, err := fx.engine.View(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestNavigationClampsAtBothEdges(t *testing.T) {
	fx := newEngineFixture(t, 3)
	sess := fx.createSession(t, "Ann", "ann@example.com")
	ctx := context.Background()

	// Previous at the first question stays on it.
	view, err := fx.engine.SubmitAnswer(ctx, sess.ID, 1, "a1", model.NavPrevious)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Number)

	// Walk to the last question.
	_, err = fx.engine.SubmitAnswer(ctx, sess.ID, 1, "a1", model.NavNext)
	require.NoError(t, err)
	_, err = fx.engine.SubmitAnswer(ctx, sess.ID, 2, "a2", model.NavNext)
	require.NoError(t, err)

	// Next at the last question stays on it.
	view, err = fx.engine.SubmitAnswer(ctx, sess.ID, 3, "a3", model.NavNext)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Number)
	assert.False(t, view.Finished)
}

func TestAnswerUpsertKeepsLastWrite(t *testing.T) {
	fx := newEngineFixture(t, 3)
	sess := fx.createSession(t, "Ann", "ann@example.com")
	ctx := context.Background()

	_, err := fx.engine.SubmitAnswer(ctx, sess.ID, 1, "draft", model.NavNext)
	require.NoError(t, err)

	view, err := fx.engine.SubmitAnswer(ctx, sess.ID, 2, "", model.NavPrevious)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Number)
	assert.Equal(t, "draft", view.CurrentAnswer)

	// Overwrite in place: the stored answer is the last write.
	_, err = fx.engine.SubmitAnswer(ctx, sess.ID, 1, "final", model.NavNext)
	require.NoError(t, err)

	view, err = fx.engine.SubmitAnswer(ctx, sess.ID, 2, "", model.NavPrevious)
	require.NoError(t, err)
	assert.Equal(t, "final", view.CurrentAnswer)
}

func TestSubmitAnswerRejectsStaleQuestionID(t *testing.T) {
	fx := newEngineFixture(t, 3)
	sess := fx.createSession(t, "Ann", "ann@example.com")

	_, err := fx.engine.SubmitAnswer(context.Background(), sess.ID, 2, "x", model.NavNext)
	assert.ErrorIs(t, err, ErrInvalidNavigation)
}

func TestSubmitFinishesExactlyOnce(t *testing.T) {
	fx := newEngineFixture(t, 3)
	sess := fx.createSession(t, "Ann", "ann@example.com")
	ctx := context.Background()

	view, err := fx.engine.SubmitAnswer(ctx, sess.ID, 1, "done", model.NavSubmit)
	require.NoError(t, err)
	require.True(t, view.Finished)
	require.NotNil(t, view.FinishReason)
	assert.Equal(t, model.FinishReasonSubmit, *view.FinishReason)

	// The completion registry now holds the identity.
	done, err := fx.completions.HasCompleted(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.True(t, done)

	// Exactly one report job was enqueued.
	jobs := fx.queue.all()
	require.Len(t, jobs, 1)
	assert.Equal(t, sess.ID.String(), jobs[0].SessionID)
	assert.Equal(t, model.FinishReasonSubmit, jobs[0].Reason)

	// A stale page posting again gets the terminal view, with no second job.
	view, err = fx.engine.SubmitAnswer(ctx, sess.ID, 1, "again", model.NavSubmit)
	require.NoError(t, err)
	assert.True(t, view.Finished)
	assert.Len(t, fx.queue.all(), 1)
}

func TestDeadlineExpiryForceSubmits(t *testing.T) {
	fx := newEngineFixture(t, 3)
	sess := fx.createSession(t, "Ann", "ann@example.com")
	ctx := context.Background()

	fx.now = fx.now.Add(31 * time.Minute)

	view, err := fx.engine.View(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, view.Finished)
	require.NotNil(t, view.FinishReason)
	assert.Equal(t, model.FinishReasonTimeout, *view.FinishReason)
	assert.Zero(t, view.RemainingSeconds)

	// Timeout consumes the single attempt like any other terminal edge.
	done, err := fx.completions.HasCompleted(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.True(t, done)

	jobs := fx.queue.all()
	require.Len(t, jobs, 1)
	assert.Equal(t, model.FinishReasonTimeout, jobs[0].Reason)

	// Further calls stay terminal and enqueue nothing new.
	_, err = fx.engine.View(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, fx.queue.all(), 1)
}

func TestAnswerAtExpiredDeadlineIsNotRecorded(t *testing.T) {
	fx := newEngineFixture(t, 3)
	sess := fx.createSession(t, "Ann", "ann@example.com")
	ctx := context.Background()

	fx.now = fx.now.Add(30 * time.Minute)

	view, err := fx.engine.SubmitAnswer(ctx, sess.ID, 1, "too late", model.NavNext)
	require.NoError(t, err)
	assert.True(t, view.Finished)

	_, err = fx.attempts.Get(ctx, sess.ID, 1)
	assert.Error(t, err, "late answer must not be persisted")
}

func TestRemainingTimeFallsBackAndHealsCache(t *testing.T) {
	fx := newEngineFixture(t, 3)
	sess := fx.createSession(t, "Ann", "ann@example.com")
	ctx := context.Background()

	fx.deadlines.forget(sess.ID)
	fx.now = fx.now.Add(10 * time.Minute)

	remaining := fx.engine.RemainingTime(ctx, sess)
	assert.Equal(t, 20*time.Minute, remaining)

	// The miss re-primed the cache from the session row.
	cached, err := fx.deadlines.GetDeadline(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.QuizDeadline, cached)
}

func TestRestartKeepsDeadlineAndCounter(t *testing.T) {
	fx := newEngineFixture(t, 3)
	sess := fx.createSession(t, "Ann", "ann@example.com")
	ctx := context.Background()

	_, err := fx.engine.SubmitAnswer(ctx, sess.ID, 1, "a1", model.NavNext)
	require.NoError(t, err)
	_, err = fx.sessions.IncrementTabSwitch(ctx, sess.ID)
	require.NoError(t, err)

	fx.now = fx.now.Add(10 * time.Minute)

	view, err := fx.engine.Restart(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Number)
	assert.Equal(t, int64((20 * time.Minute).Seconds()), view.RemainingSeconds)

	// The answer row survives blanked, not deleted.
	attempt, err := fx.attempts.Get(ctx, sess.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, attempt.Answer)

	// The attention-loss counter is attempt-scoped, not pass-scoped.
	stored, err := fx.sessions.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TabSwitchCount)
	assert.Equal(t, sess.QuizDeadline, stored.QuizDeadline)
}

func TestRestartOnExpiredSessionTimesOut(t *testing.T) {
	fx := newEngineFixture(t, 3)
	sess := fx.createSession(t, "Ann", "ann@example.com")

	fx.now = fx.now.Add(time.Hour)

	view, err := fx.engine.Restart(context.Background(), sess.ID)
	require.NoError(t, err)
	require.True(t, view.Finished)
	assert.Equal(t, model.FinishReasonTimeout, *view.FinishReason)
}

func TestForceFinishIsIdempotent(t *testing.T) {
	fx := newEngineFixture(t, 3)
	sess := fx.createSession(t, "Ann", "ann@example.com")
	ctx := context.Background()

	require.NoError(t, fx.engine.ForceFinish(ctx, sess.ID, model.FinishReasonMalpractice))
	require.NoError(t, fx.engine.ForceFinish(ctx, sess.ID, model.FinishReasonMalpractice))

	jobs := fx.queue.all()
	require.Len(t, jobs, 1)
	assert.Equal(t, model.FinishReasonMalpractice, jobs[0].Reason)

	stored, err := fx.sessions.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, stored.Finished)
	assert.Equal(t, model.FinishReasonMalpractice, *stored.FinishReason)
}
