package model

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus enumerates approval states for exams that gate entry.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "PENDING"
	RegistrationApproved RegistrationStatus = "APPROVED"
	RegistrationRejected RegistrationStatus = "REJECTED"
)

// ExamRegistration is a user's request to take an approval-gated exam.
type ExamRegistration struct {
	ID          uuid.UUID          `json:"id"`
	ExamID      uuid.UUID          `json:"exam_id"`
	UserID      int                `json:"user_id"`
	Status      RegistrationStatus `json:"status"`
	RequestedAt time.Time          `json:"requested_at"`
	DecidedAt   *time.Time         `json:"decided_at,omitempty"`
}
