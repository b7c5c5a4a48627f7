package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeTrueFalse      QuestionType = "TRUE_FALSE"
	QuestionTypeFillBlank      QuestionType = "FILL_BLANK"
	QuestionTypeShortAnswer    QuestionType = "SHORT_ANSWER"
)

// Option is a single answer choice with a stable identifier.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question represents a single exam question.
//
// CorrectText holds the expected answer for single-answer types
// (single choice, true/false, fill-in-the-blank); CorrectChoices holds the
// expected option-ID set for multiple choice. Exactly one of the two is
// populated, keyed by Type.
type Question struct {
	ID             uuid.UUID    `json:"id"`
	ExamID         uuid.UUID    `json:"exam_id"`
	Text           string       `json:"text"`
	Type           QuestionType `json:"type"`
	Options        []Option     `json:"options,omitempty"`
	CorrectText    string       `json:"-"`
	CorrectChoices []string     `json:"-"`
	Score          float64      `json:"score"`
	OrderNum       int          `json:"order_num"`
}

// IsChoiceType reports whether the question's answers reference option IDs.
func (q *Question) IsChoiceType() bool {
	return q.Type == QuestionTypeSingleChoice || q.Type == QuestionTypeMultipleChoice
}

// QuestionForTaker is a question stripped of its answer key, safe to send to
// the person taking the exam.
type QuestionForTaker struct {
	ID       uuid.UUID    `json:"id"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	Options  []Option     `json:"options,omitempty"`
	Score    float64      `json:"score"`
	OrderNum int          `json:"order_num"`
}

// ForTaker strips the answer key.
func (q *Question) ForTaker() QuestionForTaker {
	return QuestionForTaker{
		ID:       q.ID,
		Text:     q.Text,
		Type:     q.Type,
		Options:  q.Options,
		Score:    q.Score,
		OrderNum: q.OrderNum,
	}
}
