package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skilldesk/skilldesk-backend/internal/config"
	"github.com/skilldesk/skilldesk-backend/internal/service"
)

const (
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
	RequeueDelay = 2 * time.Second
)

// ReportWorker drains the dispatch queue and delivers outcome reports. It
// runs as a single goroutine beside the HTTP server: report volume is one
// job per finished session, so there is nothing to parallelize.
type ReportWorker struct {
	rdb     *redis.Client
	reports *service.ReportService
	log     zerolog.Logger
}

func NewReportWorker(rdb *redis.Client, reports *service.ReportService, log zerolog.Logger) *ReportWorker {
	return &ReportWorker{
		rdb:     rdb,
		reports: reports,
		log:     log.With().Str("component", "report_worker").Logger(),
	}
}

func (w *ReportWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ReportWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ReportWorker stopping")
			return
		default:
		}

		// BLPop blocks for 1 second. Returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.DispatchReportsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var job service.ReportJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		w.process(ctx, &job, result[1])
	}
}

// process dispatches one job. Jobs that fail before any sink runs (session
// unreadable, DB down) are pushed back onto the queue; sink-level failures
// are already absorbed inside the report service.
func (w *ReportWorker) process(ctx context.Context, job *service.ReportJob, raw string) {
	sessionID, err := uuid.Parse(job.SessionID)
	if err != nil {
		w.log.Error().Str("session_id", job.SessionID).Msg("Dropping report job with invalid session ID")
		return
	}

	if err := w.reports.Dispatch(ctx, sessionID); err != nil {
		w.log.Error().Err(err).
			Str("session_id", job.SessionID).
			Msg("Report dispatch failed, requeueing")
		w.requeue(ctx, raw)
		return
	}

	w.log.Info().
		Str("session_id", job.SessionID).
		Str("reason", string(job.Reason)).
		Msg("Report job completed")
}

func (w *ReportWorker) requeue(ctx context.Context, raw string) {
	if err := w.rdb.RPush(ctx, config.WorkerKey.DispatchReportsQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue report job. Report lost.")
		return
	}
	// Back off so a dead database does not spin the loop.
	time.Sleep(RequeueDelay)
}
