package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates exam attempt states. An attempt moves from
// IN_PROGRESS straight to COMPLETED: the finishing operation grades
// synchronously, and FinishedVia records whether a submit or the deadline
// closed it.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// FinishReason records which path closed an attempt.
type FinishReason string

const (
	FinishedBySubmit FinishReason = "SUBMITTED"
	FinishedByExpiry FinishReason = "EXPIRED"
)

// ExamAttempt is one user's timed run through an exam. At most one attempt
// per (exam, user) may be IN_PROGRESS; the store enforces this with a partial
// unique index. Terminal attempts are never deleted, only superseded by a
// higher AttemptNumber.
type ExamAttempt struct {
	ID            uuid.UUID     `json:"id"`
	ExamID        uuid.UUID     `json:"exam_id"`
	UserID        int           `json:"user_id"`
	AttemptNumber int           `json:"attempt_number"`
	Status        AttemptStatus `json:"status"`
	StartTime     time.Time     `json:"start_time"`
	// EndTime is computed once at creation (start + exam duration) and is the
	// authoritative deadline. Remaining time is always derived from it, never
	// stored, so clock skew cannot accumulate across requests.
	EndTime              time.Time     `json:"end_time"`
	SubmitTime           *time.Time    `json:"submit_time,omitempty"`
	TimeSpentSeconds     *int64        `json:"time_spent_seconds,omitempty"`
	FinishedVia          *FinishReason `json:"finished_via,omitempty"`
	CurrentQuestionIndex int           `json:"current_question_index"`
	FlaggedQuestions     []uuid.UUID   `json:"flagged_questions,omitempty"`
	TotalScore           *float64      `json:"total_score,omitempty"`
	MaxScore             *float64      `json:"max_score,omitempty"`
	PassingScore         *float64      `json:"passing_score,omitempty"`
	IsPassed             *bool         `json:"is_passed,omitempty"`
	RequiresManualReview bool          `json:"requires_manual_review"`
}

// DeadlinePassed reports whether the attempt's deadline is behind now.
func (a *ExamAttempt) DeadlinePassed(now time.Time) bool {
	return now.After(a.EndTime)
}

// RemainingSeconds derives the seconds left before the deadline, floored at zero.
func (a *ExamAttempt) RemainingSeconds(now time.Time) int64 {
	remaining := a.EndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int64(remaining.Seconds())
}

// IsFlagged reports whether the user marked the question for review.
func (a *ExamAttempt) IsFlagged(questionID uuid.UUID) bool {
	for _, id := range a.FlaggedQuestions {
		if id == questionID {
			return true
		}
	}
	return false
}

// AttemptState is the resume payload: everything a client needs to restore an
// in-progress attempt after a reload.
type AttemptState struct {
	Attempt          *ExamAttempt             `json:"attempt"`
	Questions        []QuestionForTaker       `json:"questions"`
	Answers          map[uuid.UUID]UserAnswer `json:"answers"`
	RemainingSeconds int64                    `json:"remaining_seconds"`
}

// GradedResult is the outcome of a finished attempt.
type GradedResult struct {
	AttemptID            uuid.UUID                `json:"attempt_id"`
	ExamID               uuid.UUID                `json:"exam_id"`
	AttemptNumber        int                      `json:"attempt_number"`
	FinishedVia          FinishReason             `json:"finished_via"`
	TotalScore           float64                  `json:"total_score"`
	MaxScore             float64                  `json:"max_score"`
	PassingScore         float64                  `json:"passing_score"`
	IsPassed             bool                     `json:"is_passed"`
	RequiresManualReview bool                     `json:"requires_manual_review"`
	Answers              map[uuid.UUID]UserAnswer `json:"answers"`
	SubmitTime           time.Time                `json:"submit_time"`
	TimeSpentSeconds     int64                    `json:"time_spent_seconds"`
}

// ManualGradeRequest scores the pending short-answer questions of an attempt.
type ManualGradeRequest struct {
	Grades map[string]float64 `json:"grades" binding:"required,min=1"`
}
