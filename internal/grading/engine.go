package grading

import (
	"strings"

	"github.com/google/uuid"
	"github.com/skillup/examflow-backend/internal/model"
)

// Result is the outcome of grading a single question.
type Result struct {
	Awarded     float64 `json:"awarded"`
	Max         float64 `json:"max"`
	Correct     bool    `json:"correct"`
	Answered    bool    `json:"answered"`
	NeedsManual bool    `json:"needs_manual"`
}

// Summary aggregates a full attempt's grading outcome.
//
// MaxScore always counts every question, answered or not. When any question
// needs manual review, IsPassed is withheld (false) and RequiresManualReview
// is set; pass/fail is finalized later by the manual grading path.
type Summary struct {
	TotalScore           float64
	MaxScore             float64
	IsPassed             bool
	RequiresManualReview bool
	PerQuestion          map[uuid.UUID]Result
}

type strategy interface {
	grade(q *model.Question, v model.AnswerValue) Result
}

// Engine maps question types to grading strategies. Grading is pure and
// deterministic: no wall clock, no randomness, so re-grading the same inputs
// on retry always yields the same Summary.
type Engine struct {
	strategies map[model.QuestionType]strategy
}

// NewEngine installs the built-in strategies.
func NewEngine() *Engine {
	return &Engine{
		strategies: map[model.QuestionType]strategy{
			model.QuestionTypeSingleChoice:   textMatchStrategy{},
			model.QuestionTypeTrueFalse:      textMatchStrategy{},
			model.QuestionTypeFillBlank:      textMatchStrategy{},
			model.QuestionTypeMultipleChoice: setMatchStrategy{},
			model.QuestionTypeShortAnswer:    manualStrategy{},
		},
	}
}

// Grade scores every question against the submitted answers and aggregates
// the result. passingScore is a percentage in [0,100].
func (e *Engine) Grade(questions []model.Question, answers map[uuid.UUID]model.AnswerValue, passingScore float64) Summary {
	sum := Summary{PerQuestion: make(map[uuid.UUID]Result, len(questions))}

	for i := range questions {
		q := &questions[i]
		sum.MaxScore += q.Score

		value, answered := answers[q.ID]
		if !answered || value.IsEmpty() {
			// Unanswered short answers still need no manual pass; they score zero.
			sum.PerQuestion[q.ID] = Result{Max: q.Score}
			continue
		}

		s, ok := e.strategies[q.Type]
		if !ok {
			// Unknown type cannot be auto-graded.
			sum.PerQuestion[q.ID] = Result{Max: q.Score, Answered: true, NeedsManual: true}
			sum.RequiresManualReview = true
			continue
		}

		res := s.grade(q, value)
		sum.PerQuestion[q.ID] = res
		sum.TotalScore += res.Awarded
		if res.NeedsManual {
			sum.RequiresManualReview = true
		}
	}

	sum.IsPassed = !sum.RequiresManualReview && Passed(sum.TotalScore, sum.MaxScore, passingScore)
	return sum
}

// Passed applies the percentage pass rule.
func Passed(total, max, passingScore float64) bool {
	if max <= 0 {
		return passingScore <= 0
	}
	return total/max*100 >= passingScore
}

// textMatchStrategy covers single-answer types: case-insensitive,
// whitespace-trimmed exact equality.
type textMatchStrategy struct{}

func (textMatchStrategy) grade(q *model.Question, v model.AnswerValue) Result {
	res := Result{Max: q.Score, Answered: true}
	if normalize(v.Text) == normalize(q.CorrectText) && q.CorrectText != "" {
		res.Awarded = q.Score
		res.Correct = true
	}
	return res
}

// setMatchStrategy covers multiple choice: exact set equality over option
// identifiers, order-independent, no partial credit.
type setMatchStrategy struct{}

func (setMatchStrategy) grade(q *model.Question, v model.AnswerValue) Result {
	res := Result{Max: q.Score, Answered: true}
	if len(q.CorrectChoices) == 0 {
		return res
	}

	correct := toSet(q.CorrectChoices)
	submitted := toSet(v.Choices)
	if len(correct) != len(submitted) {
		return res
	}
	for k := range correct {
		if _, ok := submitted[k]; !ok {
			return res
		}
	}

	res.Awarded = q.Score
	res.Correct = true
	return res
}

// manualStrategy flags short answers for human review instead of silently
// finalizing a zero.
type manualStrategy struct{}

func (manualStrategy) grade(q *model.Question, _ model.AnswerValue) Result {
	return Result{Max: q.Score, Answered: true, NeedsManual: true}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[normalize(it)] = struct{}{}
	}
	return set
}
