package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skillup/examflow-backend/internal/model"
	"github.com/skillup/examflow-backend/internal/response"
	"github.com/skillup/examflow-backend/internal/service"
	"github.com/skillup/examflow-backend/internal/validator"
)

// AdminHandler handles the review surface: results, violations, manual
// grading, and registration decisions.
type AdminHandler struct {
	attemptService     *service.AttemptService
	violationService   *service.ViolationService
	eligibilityService *service.EligibilityService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	attemptService *service.AttemptService,
	violationService *service.ViolationService,
	eligibilityService *service.EligibilityService,
) *AdminHandler {
	return &AdminHandler{
		attemptService:     attemptService,
		violationService:   violationService,
		eligibilityService: eligibilityService,
	}
}

// ListResults godoc
// GET /api/v1/admin/exams/:exam_id/results
func (h *AdminHandler) ListResults(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	page, perPage := paginationParams(c)

	results, total, err := h.attemptService.ListResults(c.Request.Context(), examID, page, perPage)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, results, buildPagination(page, perPage, total))
}

// ListExamViolations godoc
// GET /api/v1/admin/exams/:exam_id/violations
func (h *AdminHandler) ListExamViolations(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	page, perPage := paginationParams(c)

	violations, total, err := h.violationService.ListByExam(c.Request.Context(), examID, page, perPage)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, violations, buildPagination(page, perPage, total))
}

// ListAttemptViolations godoc
// GET /api/v1/admin/attempts/:attempt_id/violations
func (h *AdminHandler) ListAttemptViolations(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	violations, err := h.violationService.ListByAttempt(c.Request.Context(), attemptID)
	if err != nil {
		failFromService(c, err)
		return
	}
	if violations == nil {
		violations = []model.Violation{}
	}

	response.Success(c, http.StatusOK, gin.H{"violations": violations})
}

// ApplyManualGrades godoc
// POST /api/v1/admin/attempts/:attempt_id/manual-grades
// Resolves pending short-answer scores and finalizes the pass verdict.
func (h *AdminHandler) ApplyManualGrades(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ManualGradeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.ManualGrade(c.Request.Context(), attemptID, &req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// DecideRegistrationRequest is the payload for a registration decision.
type DecideRegistrationRequest struct {
	Status model.RegistrationStatus `json:"status" binding:"required,oneof=APPROVED REJECTED"`
}

// DecideRegistration godoc
// POST /api/v1/admin/exams/:exam_id/registrations/:user_id
func (h *AdminHandler) DecideRegistration(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req DecideRegistrationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.eligibilityService.Decide(c.Request.Context(), examID, userID, req.Status); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": req.Status})
}

func paginationParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

func buildPagination(page, perPage int, total int64) *response.Pagination {
	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}
	return &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	}
}
