package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skilldesk/skilldesk-backend/internal/config"
	"github.com/skilldesk/skilldesk-backend/internal/model"
)

// EventPublisher fans integrity events out to live observers (proctors).
type EventPublisher interface {
	Publish(ctx context.Context, e *model.IntegrityEvent) error
}

// AttentionLossResult is what the presentation layer shows after an
// attention-loss report.
type AttentionLossResult struct {
	Classification model.Classification `json:"classification"`
	Message        string               `json:"message"`
	Count          int                  `json:"count"`
	// SessionFinished is true when this event escalated to malpractice and
	// force-submitted the attempt.
	SessionFinished bool `json:"session_finished"`
}

// IntegrityService counts attention-loss events per session and classifies
// each occurrence. A bounded number of losses only warns the candidate; the
// event after the threshold escalates to malpractice and forces submission.
type IntegrityService struct {
	sessions  SessionStore
	events    IntegrityLog
	engine    *QuizSessionService
	publisher EventPublisher
	maxLosses int
	log       zerolog.Logger
}

// NewIntegrityService creates a new IntegrityService.
func NewIntegrityService(
	sessions SessionStore,
	events IntegrityLog,
	engine *QuizSessionService,
	publisher EventPublisher,
	cfg *config.Config,
	log zerolog.Logger,
) *IntegrityService {
	return &IntegrityService{
		sessions:  sessions,
		events:    events,
		engine:    engine,
		publisher: publisher,
		maxLosses: cfg.MaxAttentionLosses,
		log:       log.With().Str("component", "integrity_service").Logger(),
	}
}

// RecordAttentionLoss appends one event to the session's integrity log and
// classifies it. With the default threshold of 3: events 1 and 2 warn with a
// running counter, event 3 is the final warning, and event 4 onward is
// malpractice. The session is force-finished on that event, not before.
// Events on a finished session are acknowledged but ignored.
func (s *IntegrityService) RecordAttentionLoss(ctx context.Context, sessionID uuid.UUID) (*AttentionLossResult, error) {
	count, err := s.sessions.IncrementTabSwitch(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Session finished (or gone): the update matched no row.
			if _, loadErr := s.engine.GetSession(ctx, sessionID); loadErr != nil {
				return nil, loadErr
			}
			return &AttentionLossResult{Classification: model.ClassificationIgnore}, nil
		}
		return nil, fmt.Errorf("increment attention-loss counter: %w", err)
	}

	result := &AttentionLossResult{Count: count}
	if count > s.maxLosses {
		result.Classification = model.ClassificationMalpractice
		result.Message = fmt.Sprintf("Malpractice detected! You switched tabs %d times.", count)
	} else {
		result.Classification = model.ClassificationWarn
		result.Message = fmt.Sprintf("Warning: Do not switch tabs! Attempt %d/%d.", count, s.maxLosses)
	}

	event := &model.IntegrityEvent{
		SessionID:      sessionID,
		SequenceNumber: count,
		Classification: result.Classification,
	}
	if err := s.events.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("append integrity event: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.log.Warn().Err(err).Msg("Failed to publish integrity event")
		}
	}

	if result.Classification == model.ClassificationMalpractice {
		if err := s.engine.ForceFinish(ctx, sessionID, model.FinishReasonMalpractice); err != nil {
			return nil, fmt.Errorf("force finish on malpractice: %w", err)
		}
		result.SessionFinished = true

		s.log.Warn().
			Str("session_id", sessionID.String()).
			Int("count", count).
			Msg("Malpractice threshold crossed, session force-finished")
	}

	return result, nil
}

// RedisIntegrityPublisher broadcasts events on a Redis PubSub channel
// consumed by the proctor monitor stream.
type RedisIntegrityPublisher struct {
	rdb *redis.Client
}

// NewRedisIntegrityPublisher creates a new RedisIntegrityPublisher.
func NewRedisIntegrityPublisher(rdb *redis.Client) *RedisIntegrityPublisher {
	return &RedisIntegrityPublisher{rdb: rdb}
}

// Publish serializes the event and publishes it to the integrity channel.
func (p *RedisIntegrityPublisher) Publish(ctx context.Context, e *model.IntegrityEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal integrity event: %w", err)
	}
	return p.rdb.Publish(ctx, config.CacheKey.IntegrityChannel(), data).Err()
}
