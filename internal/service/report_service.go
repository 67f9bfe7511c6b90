package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skilldesk/skilldesk-backend/internal/catalog"
	"github.com/skilldesk/skilldesk-backend/internal/config"
	"github.com/skilldesk/skilldesk-backend/internal/model"
	"github.com/skilldesk/skilldesk-backend/internal/report"
)

// ReportService assembles the outcome report for a finished session and
// pushes it to every configured sink. Dispatch is best effort per sink: one
// failing channel never blocks the others, and delivery failures never
// surface back to the candidate.
type ReportService struct {
	sessions    SessionStore
	attempts    AttemptStore
	events      IntegrityLog
	catalog     *catalog.Catalog
	sinks       []report.Sink
	sinkTimeout time.Duration
	log         zerolog.Logger

	now func() time.Time
}

// NewReportService creates a new ReportService.
func NewReportService(
	sessions SessionStore,
	attempts AttemptStore,
	events IntegrityLog,
	cat *catalog.Catalog,
	sinks []report.Sink,
	cfg *config.Config,
	log zerolog.Logger,
) *ReportService {
	return &ReportService{
		sessions:    sessions,
		attempts:    attempts,
		events:      events,
		catalog:     cat,
		sinks:       sinks,
		sinkTimeout: cfg.SinkTimeout,
		log:         log.With().Str("component", "report_service").Logger(),
		now:         time.Now,
	}
}

// Dispatch builds the report for a session and delivers it to each sink in
// turn, each under its own timeout. It returns an error only when the report
// cannot be assembled at all; the caller may requeue in that case.
func (s *ReportService) Dispatch(ctx context.Context, sessionID uuid.UUID) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session for report: %w", err)
	}

	attempts, err := s.attempts.ListBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("list attempts for report: %w", err)
	}

	events, err := s.events.ListBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("list integrity events for report: %w", err)
	}

	rep := s.build(sess, attempts, events)

	for _, sink := range s.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, s.sinkTimeout)
		err := sink.Deliver(sinkCtx, rep)
		cancel()

		if err != nil {
			s.log.Error().Err(err).
				Str("session_id", sessionID.String()).
				Str("sink", sink.Name()).
				Msg("Report delivery failed")
			continue
		}

		s.log.Info().
			Str("session_id", sessionID.String()).
			Str("sink", sink.Name()).
			Msg("Report delivered")
	}

	if err := s.sessions.MarkReportDispatched(ctx, sessionID, s.now()); err != nil {
		s.log.Warn().Err(err).
			Str("session_id", sessionID.String()).
			Msg("Failed to mark report dispatched")
	}

	return nil
}

// build renders both report forms from the session state. Unanswered
// questions are kept in the output with an explicit marker so the reviewer
// sees the full catalog, not just what the candidate touched.
func (s *ReportService) build(sess *model.QuizSession, attempts []model.Attempt, events []model.IntegrityEvent) *report.Report {
	answers := make(map[int]string, len(attempts))
	for _, a := range attempts {
		answers[a.QuestionID] = a.Answer
	}

	reason := model.FinishReasonSubmit
	if sess.FinishReason != nil {
		reason = *sess.FinishReason
	}

	payload := report.Payload{
		Name:         sess.CandidateName,
		Email:        sess.CandidateEmail,
		CreatedAt:    sess.CreatedAt,
		QuizDeadline: sess.QuizDeadline,
		FinishedAt:   sess.FinishedAt,
		FinishReason: string(reason),
		Malpractice:  reason == model.FinishReasonMalpractice,
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Assessment report for %s <%s>\n", sess.CandidateName, sess.CandidateEmail)
	fmt.Fprintf(&b, "Started:  %s\n", sess.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Deadline: %s\n", sess.QuizDeadline.UTC().Format(time.RFC3339))
	if sess.FinishedAt != nil {
		fmt.Fprintf(&b, "Finished: %s (%s)\n", sess.FinishedAt.UTC().Format(time.RFC3339), reason)
	} else {
		fmt.Fprintf(&b, "Finished: (%s)\n", reason)
	}
	b.WriteString("\n")

	for i, q := range s.catalog.All() {
		answer, ok := answers[q.ID]
		if !ok || answer == "" {
			answer = "(no answer)"
		}
		fmt.Fprintf(&b, "%2d. %s\n", i+1, q.Text)
		fmt.Fprintf(&b, "    Answer: %s\n", answer)

		payload.Answers = append(payload.Answers, report.AnswerItem{
			Question: q.Text,
			Answer:   answer,
		})
	}

	if len(events) > 0 {
		b.WriteString("\nIntegrity events:\n")
		for _, e := range events {
			fmt.Fprintf(&b, "  #%d %s %s\n",
				e.SequenceNumber,
				e.Timestamp.UTC().Format(time.RFC3339),
				e.Classification,
			)

			payload.Events = append(payload.Events, report.EventItem{
				Event:          "attention_loss",
				Timestamp:      e.Timestamp,
				Count:          e.SequenceNumber,
				Classification: string(e.Classification),
			})
		}
	}

	subject := fmt.Sprintf("Assessment report: %s (%s)", sess.CandidateName, reason)

	return &report.Report{
		Subject: subject,
		Text:    b.String(),
		Payload: payload,
	}
}
