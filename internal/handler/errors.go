package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillup/examflow-backend/internal/response"
	"github.com/skillup/examflow-backend/internal/service"
)

// failFromService translates service-layer errors into the API's error
// envelope. Anything unrecognized is a 500.
func failFromService(c *gin.Context, err error) {
	var notEligible *service.NotEligibleError
	if errors.As(err, &notEligible) {
		response.Fail(c, http.StatusConflict, eligibilityCode(notEligible.Eligibility.Reason))
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrAttemptClosed):
		response.Fail(c, http.StatusConflict, response.ErrAttemptClosed)
	case errors.Is(err, service.ErrNotCompleted):
		response.Fail(c, http.StatusConflict, response.ErrNotCompleted)
	case errors.Is(err, service.ErrAnswerShape):
		response.Fail(c, http.StatusBadRequest, response.ErrAnswerShape)
	case errors.Is(err, service.ErrNotPendingReview):
		response.Fail(c, http.StatusConflict, response.ErrNotPendingReview)
	case errors.Is(err, service.ErrCertificateNotEarned):
		response.Fail(c, http.StatusNotFound, response.ErrCertificateNotEarned)
	case errors.Is(err, service.ErrRegistrationNotNeeded):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func eligibilityCode(reason string) response.ErrCode {
	switch reason {
	case service.ReasonExamNotPublished:
		return response.ErrExamNotPublished
	case service.ReasonRegistrationNeeded, service.ReasonRegistrationPending:
		return response.ErrRegistrationNeeded
	case service.ReasonExamNotStarted:
		return response.ErrExamNotStarted
	case service.ReasonExamEnded:
		return response.ErrExamEnded
	case service.ReasonMaxAttemptsReached:
		return response.ErrMaxAttemptsReached
	default:
		return response.ErrNotEligible
	}
}
