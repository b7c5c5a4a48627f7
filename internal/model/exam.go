package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusOngoing   ExamStatus = "ONGOING"
	ExamStatusEnded     ExamStatus = "ENDED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
	ExamStatusCancelled ExamStatus = "CANCELLED"
)

// Exam represents an exam entity. Immutable while attempts are running,
// except for administrative fields.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	TotalQuestions  int        `json:"total_questions"`
	// PassingScore is a percentage in [0,100]. The engine compares
	// round(total/max*100) >= PassingScore; it is never compared against
	// raw point totals.
	PassingScore     float64    `json:"passing_score"`
	MaxAttempts      int        `json:"max_attempts"`
	Status           ExamStatus `json:"status"`
	IsCertified      bool       `json:"is_certified"`
	RequiresApproval bool       `json:"requires_approval"`
	StartTime        *time.Time `json:"start_time,omitempty"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// AcceptsAttempts reports whether the exam status allows new or running
// attempts at all. The exam-wide time window is checked separately.
func (e *Exam) AcceptsAttempts() bool {
	return e.Status == ExamStatusPublished || e.Status == ExamStatusOngoing
}

// Duration returns how long an attempt may run.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}
