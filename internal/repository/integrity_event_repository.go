package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skilldesk/skilldesk-backend/internal/model"
)

// IntegrityEventRepository handles the append-only attention-loss log.
type IntegrityEventRepository struct {
	pool *pgxpool.Pool
}

// NewIntegrityEventRepository creates a new IntegrityEventRepository.
func NewIntegrityEventRepository(pool *pgxpool.Pool) *IntegrityEventRepository {
	return &IntegrityEventRepository{pool: pool}
}

// Append inserts one event. Sequence numbers are assigned by the caller from
// the session's counter; the (session_id, sequence_number) primary key keeps
// the log gap-free per session.
func (r *IntegrityEventRepository) Append(ctx context.Context, e *model.IntegrityEvent) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO integrity_events (session_id, sequence_number, classification)
		 VALUES ($1, $2, $3)
		 RETURNING recorded_at`,
		e.SessionID, e.SequenceNumber, e.Classification,
	).Scan(&e.Timestamp)
}

// ListBySession retrieves a session's events in order.
func (r *IntegrityEventRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.IntegrityEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, recorded_at, sequence_number, classification
		 FROM integrity_events
		 WHERE session_id = $1
		 ORDER BY sequence_number ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.IntegrityEvent
	for rows.Next() {
		var e model.IntegrityEvent
		if err := rows.Scan(&e.SessionID, &e.Timestamp, &e.SequenceNumber, &e.Classification); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
