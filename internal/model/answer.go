package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerValue is the tagged union of submitted answer shapes: Choices carries
// the option-ID set for multiple choice, Text carries everything else. The
// question's type decides which field is meaningful, so grading can switch
// exhaustively instead of inspecting an untyped value.
type AnswerValue struct {
	Text    string   `json:"text,omitempty"`
	Choices []string `json:"choices,omitempty"`
}

// IsEmpty reports whether no answer content was provided.
func (v AnswerValue) IsEmpty() bool {
	return v.Text == "" && len(v.Choices) == 0
}

// UserAnswer is one recorded answer within an attempt. Overwritable while the
// attempt is in progress (last write wins), frozen once the attempt is
// terminal. IsCorrect and Score stay nil until grading.
type UserAnswer struct {
	QuestionID       uuid.UUID   `json:"question_id"`
	Value            AnswerValue `json:"value"`
	IsCorrect        *bool       `json:"is_correct,omitempty"`
	Score            *float64    `json:"score,omitempty"`
	PendingManual    bool        `json:"pending_manual,omitempty"`
	TimeSpentSeconds int         `json:"time_spent_seconds"`
	SubmittedAt      time.Time   `json:"submitted_at"`
}

// RecordAnswerRequest is the payload for saving a single answer.
type RecordAnswerRequest struct {
	Text             string   `json:"text" binding:"omitempty,max=10000"`
	Choices          []string `json:"choices" binding:"omitempty,max=50,dive,max=64"`
	TimeSpentSeconds int      `json:"time_spent_seconds" binding:"min=0"`
	QuestionIndex    *int     `json:"question_index" binding:"omitempty,min=0"`
}
