package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skillup/examflow-backend/internal/middleware"
	"github.com/skillup/examflow-backend/internal/response"
	"github.com/skillup/examflow-backend/internal/service"
)

// ExamHandler handles the exam-taker's pre-attempt endpoints: lobby,
// eligibility, registration, and starting attempts.
type ExamHandler struct {
	attemptService     *service.AttemptService
	eligibilityService *service.EligibilityService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(attemptService *service.AttemptService, eligibilityService *service.EligibilityService) *ExamHandler {
	return &ExamHandler{
		attemptService:     attemptService,
		eligibilityService: eligibilityService,
	}
}

// GetLobby godoc
// GET /api/v1/exams
// Returns open exams overlaid with the caller's attempt standing.
func (h *ExamHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	lobby, err := h.attemptService.Lobby(c.Request.Context(), claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}
	if lobby == nil {
		lobby = []service.LobbyEntry{}
	}

	response.Success(c, http.StatusOK, gin.H{"exams": lobby})
}

// GetEligibility godoc
// GET /api/v1/exams/:exam_id/eligibility
// Evaluates the start rules without side effects.
func (h *ExamHandler) GetEligibility(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	elig, err := h.eligibilityService.Check(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, elig)
}

// Register godoc
// POST /api/v1/exams/:exam_id/register
// Files a registration request for an approval-gated exam.
func (h *ExamHandler) Register(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	reg, err := h.eligibilityService.Register(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"registration": reg})
}

// StartAttempt godoc
// POST /api/v1/exams/:exam_id/attempts
// Starts a new attempt, or resumes the in-progress one: starting while an
// attempt is live returns that attempt's state instead of an error so a
// double-click or a second tab cannot strand the taker.
func (h *ExamHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.attemptService.Start(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		var inProgress *service.AlreadyInProgressError
		if errors.As(err, &inProgress) {
			resumed, err := h.attemptService.State(c.Request.Context(), inProgress.Attempt.ID, claims.UserID)
			if err != nil {
				failFromService(c, err)
				return
			}
			response.Success(c, http.StatusOK, gin.H{"state": resumed, "resumed": true})
			return
		}
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"state": state, "resumed": false})
}
