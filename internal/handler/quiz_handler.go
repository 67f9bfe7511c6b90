package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/skilldesk/skilldesk-backend/internal/middleware"
	"github.com/skilldesk/skilldesk-backend/internal/model"
	"github.com/skilldesk/skilldesk-backend/internal/response"
	"github.com/skilldesk/skilldesk-backend/internal/service"
	"github.com/skilldesk/skilldesk-backend/internal/validator"
)

// QuizHandler exposes the candidate-facing attempt endpoints.
type QuizHandler struct {
	engine    *service.QuizSessionService
	integrity *service.IntegrityService
	tokens    *service.TokenService
	log       zerolog.Logger
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(
	engine *service.QuizSessionService,
	integrity *service.IntegrityService,
	tokens *service.TokenService,
	log zerolog.Logger,
) *QuizHandler {
	return &QuizHandler{
		engine:    engine,
		integrity: integrity,
		tokens:    tokens,
		log:       log.With().Str("component", "quiz_handler").Logger(),
	}
}

// CreateAttempt godoc
// POST /api/v1/attempts
// Starts a new attempt for an identity, or resumes the existing unfinished
// one for the same email. Identities already in the completion registry are
// rejected.
func (h *QuizHandler) CreateAttempt(c *gin.Context) {
	var req model.CreateAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.engine.CreateSession(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		h.failFromService(c, err)
		return
	}

	token, err := h.tokens.GenerateAttemptToken(sess.ID)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Failed to sign attempt token")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	// Hand back the first view too so the client renders without a second
	// round trip. A resumed session gets its current question instead.
	view, err := h.engine.View(c.Request.Context(), sess.ID)
	if err != nil {
		h.failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"token": token,
		"session": gin.H{
			"id":            sess.ID,
			"name":          sess.CandidateName,
			"email":         sess.CandidateEmail,
			"quiz_deadline": sess.QuizDeadline,
		},
		"view": view,
	})
}

// CurrentQuestion godoc
// GET /api/v1/attempts/current
// Returns the current question, the candidate's prior answer to it, and the
// remaining time. An expired attempt is force-submitted here and the terminal
// marker is returned instead.
func (h *QuizHandler) CurrentQuestion(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	view, err := h.engine.View(c.Request.Context(), sessionID)
	if err != nil {
		h.failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// SubmitAnswer godoc
// POST /api/v1/attempts/answer
// Persists the answer for the current question and applies the navigation
// action (previous, next, or submit).
func (h *QuizHandler) SubmitAnswer(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.engine.SubmitAnswer(
		c.Request.Context(),
		sessionID,
		req.QuestionID,
		req.Answer,
		model.NavAction(req.NavAction),
	)
	if err != nil {
		h.failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// ReportAttentionLoss godoc
// POST /api/v1/attempts/attention-loss
// Records one attention-loss event and returns its classification. The event
// that crosses the threshold force-submits the attempt.
func (h *QuizHandler) ReportAttentionLoss(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	result, err := h.integrity.RecordAttentionLoss(c.Request.Context(), sessionID)
	if err != nil {
		h.failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// RestartAttempt godoc
// POST /api/v1/attempts/restart
// Rewinds an unfinished attempt to the first question with all answers
// blanked. The countdown keeps running.
func (h *QuizHandler) RestartAttempt(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	view, err := h.engine.Restart(c.Request.Context(), sessionID)
	if err != nil {
		h.failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// failFromService maps service sentinels to their HTTP shape.
func (h *QuizHandler) failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadyCompleted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyCompleted)
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrInvalidNavigation):
		response.Fail(c, http.StatusConflict, response.ErrInvalidNavigation)
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled service error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
