package report

import (
	"context"
	"time"
)

// Report is the assembled outcome of one finished session: a human-readable
// text body plus a structured payload for machine sinks.
type Report struct {
	Subject string
	Text    string
	Payload Payload
}

// Payload is the structured form pushed to webhook and document-store sinks.
type Payload struct {
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	CreatedAt    time.Time    `json:"created_at"`
	QuizDeadline time.Time    `json:"quiz_deadline"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
	FinishReason string       `json:"finish_reason"`
	Malpractice  bool         `json:"malpractice"`
	Answers      []AnswerItem `json:"answers"`
	Events       []EventItem  `json:"events,omitempty"`
}

// AnswerItem pairs a question with the candidate's final answer.
type AnswerItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// EventItem is one attention-loss event in the payload.
type EventItem struct {
	Event          string    `json:"event"`
	Timestamp      time.Time `json:"timestamp"`
	Count          int       `json:"count"`
	Classification string    `json:"classification"`
}

// Sink is one delivery channel for a finished report. Implementations must
// honor the context deadline. Failures are the sink's own; the dispatcher
// logs them and carries on with the remaining sinks.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, r *Report) error
}
