package service

import (
	"errors"
	"fmt"

	"github.com/skillup/examflow-backend/internal/model"
)

// Expected business-rule outcomes. These are frequent, user-facing results,
// so they travel as typed errors the handlers translate to 4xx codes rather
// than as generic failures.
var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrAttemptClosed         = errors.New("attempt is closed")
	ErrNotCompleted          = errors.New("attempt is not completed")
	ErrAnswerShape           = errors.New("answer shape does not match question type")
	ErrNotPendingReview      = errors.New("attempt is not pending manual review")
	ErrCertificateNotEarned  = errors.New("attempt did not earn a certificate")
	ErrRegistrationNotNeeded = errors.New("exam does not require registration")
)

// NotEligibleError reports an eligibility rule failure, carrying the full
// evaluation so callers can tell the user which rule blocked them.
type NotEligibleError struct {
	Eligibility *Eligibility
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("not eligible: %s", e.Eligibility.Reason)
}

// AlreadyInProgressError means the caller should resume the carried attempt
// instead of starting a new one.
type AlreadyInProgressError struct {
	Attempt *model.ExamAttempt
}

func (e *AlreadyInProgressError) Error() string {
	return "an attempt is already in progress"
}
