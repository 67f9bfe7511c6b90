package model

import (
	"time"

	"github.com/google/uuid"
)

// Classification is the verdict attached to a single attention-loss event.
type Classification string

const (
	ClassificationIgnore      Classification = "ignore"
	ClassificationWarn        Classification = "warn"
	ClassificationMalpractice Classification = "malpractice"
)

// IntegrityEvent is one entry in a session's append-only attention-loss log.
// SequenceNumber is the 1-based count of events for the session.
type IntegrityEvent struct {
	SessionID      uuid.UUID      `json:"session_id"`
	Timestamp      time.Time      `json:"timestamp"`
	SequenceNumber int            `json:"sequence_number"`
	Classification Classification `json:"classification"`
}
