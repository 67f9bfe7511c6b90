package websocket

import (
	"time"

	"github.com/skilldesk/skilldesk-backend/internal/model"
)

// The proctor stream is server-to-client only: the monitor receives event
// frames and never sends anything but pings.

type Event string

const (
	EventIntegrity Event = "integrity"
	EventError     Event = "error"
)

// IntegrityFrame is pushed to the proctor monitor for every attention-loss
// event recorded anywhere in the system.
type IntegrityFrame struct {
	Event          Event                `json:"event"`
	SessionID      string               `json:"session_id"`
	SequenceNumber int                  `json:"sequence_number"`
	Classification model.Classification `json:"classification"`
	Timestamp      time.Time            `json:"timestamp"`
}

// NewIntegrityFrame wraps a recorded event into its wire frame.
func NewIntegrityFrame(e *model.IntegrityEvent) IntegrityFrame {
	return IntegrityFrame{
		Event:          EventIntegrity,
		SessionID:      e.SessionID.String(),
		SequenceNumber: e.SequenceNumber,
		Classification: e.Classification,
		Timestamp:      e.Timestamp,
	}
}

type ErrorFrame struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
