package model

import (
	"time"

	"github.com/google/uuid"
)

// CertificateMetadata is the snapshot frozen into a certificate at issuance.
type CertificateMetadata struct {
	ExamTitle    string    `json:"exam_title"`
	TotalScore   float64   `json:"total_score"`
	MaxScore     float64   `json:"max_score"`
	PassingScore float64   `json:"passing_score"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Certificate is issued at most once per attempt; the store enforces this
// with a unique constraint on attempt_id. Number is human-meaningful and
// cosmetic; lookups go by ID or attempt.
type Certificate struct {
	ID        uuid.UUID           `json:"id"`
	ExamID    uuid.UUID           `json:"exam_id"`
	UserID    int                 `json:"user_id"`
	AttemptID uuid.UUID           `json:"attempt_id"`
	Number    string              `json:"certificate_number"`
	IssuedAt  time.Time           `json:"issued_at"`
	Metadata  CertificateMetadata `json:"metadata"`
}
