package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/skilldesk/skilldesk-backend/internal/config"
	"github.com/skilldesk/skilldesk-backend/internal/model"
)

// ReportJob is the unit of work handed to the report dispatch worker.
type ReportJob struct {
	SessionID string             `json:"session_id"`
	Reason    model.FinishReason `json:"reason"`
}

// ReportQueue decouples report delivery from the candidate-facing path.
type ReportQueue interface {
	Enqueue(ctx context.Context, job ReportJob) error
}

// RedisReportQueue pushes jobs onto the dispatch list consumed by
// worker.ReportWorker.
type RedisReportQueue struct {
	rdb *redis.Client
}

// NewRedisReportQueue creates a new RedisReportQueue.
func NewRedisReportQueue(rdb *redis.Client) *RedisReportQueue {
	return &RedisReportQueue{rdb: rdb}
}

// Enqueue serializes the job and pushes it to the worker queue.
func (q *RedisReportQueue) Enqueue(ctx context.Context, job ReportJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal report job: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.DispatchReportsQueue, data).Err()
}
