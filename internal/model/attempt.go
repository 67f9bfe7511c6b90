package model

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is the durable record of one candidate's answer to one question
// within a session. There is at most one Attempt per (session, question)
// pair; revisits update the row in place.
type Attempt struct {
	SessionID       uuid.UUID  `json:"session_id"`
	QuestionID      int        `json:"question_id"`
	FirstSeenAt     time.Time  `json:"first_seen_at"`
	Answer          string     `json:"answer"`
	LastSubmittedAt *time.Time `json:"last_submitted_at,omitempty"`
}
