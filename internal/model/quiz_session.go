package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FinishReason records which terminal edge ended a session.
type FinishReason string

const (
	FinishReasonSubmit      FinishReason = "SUBMIT"
	FinishReasonTimeout     FinishReason = "TIMEOUT"
	FinishReasonMalpractice FinishReason = "MALPRACTICE"
)

// QuizSession represents one candidate's single attempt at the assessment.
// QuizDeadline is set exactly once at creation and never recomputed. Finished
// is monotonic: it only ever transitions false to true.
type QuizSession struct {
	ID             uuid.UUID     `json:"id"`
	CandidateName  string        `json:"candidate_name"`
	CandidateEmail string        `json:"candidate_email"`
	CreatedAt      time.Time     `json:"created_at"`
	QuizDeadline   time.Time     `json:"quiz_deadline"`
	CurrentIndex   int           `json:"current_index"`
	Finished       bool          `json:"finished"`
	FinishedAt     *time.Time    `json:"finished_at,omitempty"`
	FinishReason   *FinishReason `json:"finish_reason,omitempty"`
	TabSwitchCount int           `json:"tab_switch_count"`
	// ReportDispatchedAt is delivery bookkeeping; it is the only field that
	// may change after the session is finished.
	ReportDispatchedAt *time.Time `json:"report_dispatched_at,omitempty"`
}

// NavAction is the navigation intent attached to an answer write.
type NavAction string

const (
	NavPrevious NavAction = "previous"
	NavNext     NavAction = "next"
	NavSubmit   NavAction = "submit"
)

// CreateAttemptRequest is the payload for starting a new assessment attempt.
type CreateAttemptRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=120"`
	Email string `json:"email" binding:"required,email"`
}

// AnswerRequest is the payload for persisting an answer plus navigation.
type AnswerRequest struct {
	QuestionID int    `json:"question_id" binding:"required,min=1"`
	Answer     string `json:"answer"`
	NavAction  string `json:"nav_action" binding:"required,oneof=previous next submit"`
}

// NormalizeEmail lowercases and trims an email for use as the dedup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
