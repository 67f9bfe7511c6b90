package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/skilldesk/skilldesk-backend/internal/model"
)

// In-memory fakes for the store interfaces. They mimic the repository
// contracts, in particular which calls surface pgx.ErrNoRows.

type fakeSessionStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*model.QuizSession
	byEmail map[string]uuid.UUID
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		byID:    make(map[uuid.UUID]*model.QuizSession),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (f *fakeSessionStore) Create(ctx context.Context, s *model.QuizSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byEmail[s.CandidateEmail]; exists {
		// Mirrors INSERT ... ON CONFLICT DO NOTHING RETURNING with no row.
		return pgx.ErrNoRows
	}
	cp := *s
	f.byID[s.ID] = &cp
	f.byEmail[s.CandidateEmail] = s.ID
	return nil
}

func (f *fakeSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*model.QuizSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) GetByEmail(ctx context.Context, email string) (*model.QuizSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *f.byID[id]
	return &cp, nil
}

func (f *fakeSessionStore) UpdateCurrentIndex(ctx context.Context, id uuid.UUID, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byID[id]; ok && !s.Finished {
		s.CurrentIndex = index
	}
	return nil
}

func (f *fakeSessionStore) Finish(ctx context.Context, id uuid.UUID, reason model.FinishReason) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok || s.Finished {
		return false, nil
	}
	now := time.Now()
	s.Finished = true
	s.FinishedAt = &now
	s.FinishReason = &reason
	return true, nil
}

func (f *fakeSessionStore) IncrementTabSwitch(ctx context.Context, id uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok || s.Finished {
		return 0, pgx.ErrNoRows
	}
	s.TabSwitchCount++
	return s.TabSwitchCount, nil
}

func (f *fakeSessionStore) ResetProgress(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byID[id]; ok && !s.Finished {
		s.CurrentIndex = 0
	}
	return nil
}

func (f *fakeSessionStore) MarkReportDispatched(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byID[id]; ok {
		s.ReportDispatchedAt = &at
	}
	return nil
}

type attemptKey struct {
	sessionID  uuid.UUID
	questionID int
}

type fakeAttemptStore struct {
	mu       sync.Mutex
	attempts map[attemptKey]*model.Attempt
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{attempts: make(map[attemptKey]*model.Attempt)}
}

func (f *fakeAttemptStore) Touch(ctx context.Context, sessionID uuid.UUID, questionID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := attemptKey{sessionID, questionID}
	if _, exists := f.attempts[key]; !exists {
		f.attempts[key] = &model.Attempt{
			SessionID:   sessionID,
			QuestionID:  questionID,
			FirstSeenAt: time.Now(),
		}
	}
	return nil
}

func (f *fakeAttemptStore) Upsert(ctx context.Context, sessionID uuid.UUID, questionID int, answer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := attemptKey{sessionID, questionID}
	now := time.Now()
	a, exists := f.attempts[key]
	if !exists {
		a = &model.Attempt{SessionID: sessionID, QuestionID: questionID, FirstSeenAt: now}
		f.attempts[key] = a
	}
	a.Answer = answer
	a.LastSubmittedAt = &now
	return nil
}

func (f *fakeAttemptStore) Get(ctx context.Context, sessionID uuid.UUID, questionID int) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[attemptKey{sessionID, questionID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Attempt
	for key, a := range f.attempts {
		if key.sessionID == sessionID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (f *fakeAttemptStore) ClearAnswers(ctx context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, a := range f.attempts {
		if key.sessionID == sessionID {
			a.Answer = ""
			a.LastSubmittedAt = nil
		}
	}
	return nil
}

type fakeCompletionStore struct {
	mu        sync.Mutex
	completed map[string]bool
}

func newFakeCompletionStore() *fakeCompletionStore {
	return &fakeCompletionStore{completed: make(map[string]bool)}
}

func (f *fakeCompletionStore) HasCompleted(ctx context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed[email], nil
}

func (f *fakeCompletionStore) MarkCompleted(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[email] = true
	return nil
}

type fakeIntegrityLog struct {
	mu     sync.Mutex
	events []model.IntegrityEvent
}

func (f *fakeIntegrityLog) Append(ctx context.Context, e *model.IntegrityEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeIntegrityLog) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.IntegrityEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.IntegrityEvent
	for _, e := range f.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeDeadlineCache struct {
	mu        sync.Mutex
	deadlines map[uuid.UUID]time.Time
}

func newFakeDeadlineCache() *fakeDeadlineCache {
	return &fakeDeadlineCache{deadlines: make(map[uuid.UUID]time.Time)}
}

func (f *fakeDeadlineCache) GetDeadline(ctx context.Context, sessionID uuid.UUID) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deadlines[sessionID]
	if !ok {
		return time.Time{}, ErrDeadlineNotCached
	}
	return d, nil
}

func (f *fakeDeadlineCache) SetDeadline(ctx context.Context, sessionID uuid.UUID, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadlines[sessionID] = deadline
	return nil
}

func (f *fakeDeadlineCache) forget(sessionID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.deadlines, sessionID)
}

type fakeReportQueue struct {
	mu   sync.Mutex
	jobs []ReportJob
}

func (f *fakeReportQueue) Enqueue(ctx context.Context, job ReportJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeReportQueue) all() []ReportJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ReportJob(nil), f.jobs...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []model.IntegrityEvent
}

func (f *fakePublisher) Publish(ctx context.Context, e *model.IntegrityEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *e)
	return nil
}
