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

// ViolationHandler accepts anti-cheat reports from the exam-taker's client.
type ViolationHandler struct {
	violationService *service.ViolationService
}

// NewViolationHandler creates a new ViolationHandler.
func NewViolationHandler(violationService *service.ViolationService) *ViolationHandler {
	return &ViolationHandler{violationService: violationService}
}

// Report godoc
// POST /api/v1/attempts/:attempt_id/violations
// Accepts a violation event. Always 202 for accepted shapes: reports racing
// the attempt's end are dropped server-side, never bounced to the client.
func (h *ViolationHandler) Report(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReportViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.violationService.Record(c.Request.Context(), attemptID, claims.UserID, &req); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"accepted": true})
}
