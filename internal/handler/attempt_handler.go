package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skillup/examflow-backend/internal/middleware"
	"github.com/skillup/examflow-backend/internal/model"
	"github.com/skillup/examflow-backend/internal/response"
	"github.com/skillup/examflow-backend/internal/service"
	"github.com/skillup/examflow-backend/internal/validator"
)

// AttemptHandler handles in-flight attempt endpoints: state, answers,
// flags, submit, result, certificate.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// GetState godoc
// GET /api/v1/attempts/:attempt_id/state
// Returns the resume payload: questions (without answer keys), recorded
// answers, and the server-derived remaining time.
func (h *AttemptHandler) GetState(c *gin.Context) {
	claims, attemptID, ok := h.authAttempt(c)
	if !ok {
		return
	}

	state, err := h.attemptService.State(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// RecordAnswer godoc
// PUT /api/v1/attempts/:attempt_id/answers/:question_id
// Saves or overwrites one answer; last write wins while the attempt is open.
func (h *AttemptHandler) RecordAnswer(c *gin.Context) {
	claims, attemptID, ok := h.authAttempt(c)
	if !ok {
		return
	}

	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ack, err := h.attemptService.RecordAnswer(c.Request.Context(), attemptID, claims.UserID, questionID, &req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, ack)
}

// FlagQuestion godoc
// PUT /api/v1/attempts/:attempt_id/flags/:question_id
func (h *AttemptHandler) FlagQuestion(c *gin.Context) {
	h.setFlag(c, true)
}

// UnflagQuestion godoc
// DELETE /api/v1/attempts/:attempt_id/flags/:question_id
func (h *AttemptHandler) UnflagQuestion(c *gin.Context) {
	h.setFlag(c, false)
}

func (h *AttemptHandler) setFlag(c *gin.Context, flagged bool) {
	claims, attemptID, ok := h.authAttempt(c)
	if !ok {
		return
	}

	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if flagged {
		err = h.attemptService.FlagQuestion(c.Request.Context(), attemptID, claims.UserID, questionID)
	} else {
		err = h.attemptService.UnflagQuestion(c.Request.Context(), attemptID, claims.UserID, questionID)
	}
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"flagged": flagged})
}

// Submit godoc
// POST /api/v1/attempts/:attempt_id/submit
// Finishes and grades the attempt. Idempotent: repeats return the recorded
// result.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims, attemptID, ok := h.authAttempt(c)
	if !ok {
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetResult godoc
// GET /api/v1/attempts/:attempt_id/result
func (h *AttemptHandler) GetResult(c *gin.Context) {
	claims, attemptID, ok := h.authAttempt(c)
	if !ok {
		return
	}

	result, err := h.attemptService.Result(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetCertificate godoc
// GET /api/v1/attempts/:attempt_id/certificate
func (h *AttemptHandler) GetCertificate(c *gin.Context) {
	claims, attemptID, ok := h.authAttempt(c)
	if !ok {
		return
	}

	cert, err := h.attemptService.Certificate(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"certificate": cert})
}

func (h *AttemptHandler) authAttempt(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return claims, attemptID, true
}
