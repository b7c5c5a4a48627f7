package grading

import (
	"testing"

	"github.com/google/uuid"
	"github.com/skillup/examflow-backend/internal/model"
)

func question(t model.QuestionType, score float64, correctText string, correctChoices ...string) model.Question {
	return model.Question{
		ID:             uuid.New(),
		Type:           t,
		Score:          score,
		CorrectText:    correctText,
		CorrectChoices: correctChoices,
	}
}

func TestGradeAllCorrect(t *testing.T) {
	questions := []model.Question{
		question(model.QuestionTypeSingleChoice, 40, "A"),
		question(model.QuestionTypeMultipleChoice, 40, "", "A", "C"),
		question(model.QuestionTypeTrueFalse, 20, "true"),
	}
	answers := map[uuid.UUID]model.AnswerValue{
		questions[0].ID: {Text: "A"},
		questions[1].ID: {Choices: []string{"A", "C"}},
		questions[2].ID: {Text: "TRUE"}, // case-insensitive
	}

	sum := NewEngine().Grade(questions, answers, 100)

	if sum.TotalScore != sum.MaxScore {
		t.Fatalf("total = %v, want max %v", sum.TotalScore, sum.MaxScore)
	}
	if !sum.IsPassed {
		t.Fatal("expected pass at 100%")
	}
	if sum.RequiresManualReview {
		t.Fatal("no manual review expected")
	}
}

func TestGradeDeterminism(t *testing.T) {
	questions := []model.Question{
		question(model.QuestionTypeSingleChoice, 30, "B"),
		question(model.QuestionTypeFillBlank, 30, "gopher"),
		question(model.QuestionTypeMultipleChoice, 40, "", "x", "y", "z"),
	}
	answers := map[uuid.UUID]model.AnswerValue{
		questions[0].ID: {Text: "b"},
		questions[1].ID: {Text: "  Gopher "},
		questions[2].ID: {Choices: []string{"z", "x"}},
	}

	engine := NewEngine()
	first := engine.Grade(questions, answers, 60)
	for i := 0; i < 10; i++ {
		again := engine.Grade(questions, answers, 60)
		if again.TotalScore != first.TotalScore || again.IsPassed != first.IsPassed {
			t.Fatalf("run %d diverged: %+v vs %+v", i, again, first)
		}
	}
	if first.TotalScore != 60 {
		t.Fatalf("total = %v, want 60", first.TotalScore)
	}
	if !first.IsPassed {
		t.Fatal("60/100 should pass at 60%")
	}
}

func TestMultipleChoiceSetEquality(t *testing.T) {
	q := question(model.QuestionTypeMultipleChoice, 10, "", "A", "C")

	cases := []struct {
		name    string
		choices []string
		correct bool
	}{
		{"reordered", []string{"C", "A"}, true},
		{"subset gets no partial credit", []string{"A"}, false},
		{"superset", []string{"A", "B", "C"}, false},
		{"disjoint", []string{"B", "D"}, false},
		{"duplicates collapse", []string{"A", "A", "C"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sum := NewEngine().Grade([]model.Question{q}, map[uuid.UUID]model.AnswerValue{
				q.ID: {Choices: tc.choices},
			}, 100)
			res := sum.PerQuestion[q.ID]
			if res.Correct != tc.correct {
				t.Fatalf("correct = %v, want %v", res.Correct, tc.correct)
			}
			if !tc.correct && res.Awarded != 0 {
				t.Fatalf("awarded = %v, want 0", res.Awarded)
			}
		})
	}
}

func TestUnansweredQuestionsScoreZeroButCountTowardMax(t *testing.T) {
	questions := []model.Question{
		question(model.QuestionTypeSingleChoice, 25, "A"),
		question(model.QuestionTypeSingleChoice, 25, "B"),
		question(model.QuestionTypeTrueFalse, 25, "false"),
		question(model.QuestionTypeFillBlank, 25, "answer"),
	}
	answers := map[uuid.UUID]model.AnswerValue{
		questions[0].ID: {Text: "A"},
	}

	sum := NewEngine().Grade(questions, answers, 50)

	if sum.MaxScore != 100 {
		t.Fatalf("max = %v, want 100", sum.MaxScore)
	}
	if sum.TotalScore != 25 {
		t.Fatalf("total = %v, want 25", sum.TotalScore)
	}
	if sum.IsPassed {
		t.Fatal("25% should not pass at 50%")
	}
	for _, q := range questions[1:] {
		res := sum.PerQuestion[q.ID]
		if res.Answered || res.Awarded != 0 {
			t.Fatalf("unanswered question got %+v", res)
		}
	}
}

func TestShortAnswerRequiresManualReview(t *testing.T) {
	auto := question(model.QuestionTypeSingleChoice, 50, "A")
	manual := question(model.QuestionTypeShortAnswer, 50, "")
	answers := map[uuid.UUID]model.AnswerValue{
		auto.ID:   {Text: "A"},
		manual.ID: {Text: "free form response"},
	}

	sum := NewEngine().Grade([]model.Question{auto, manual}, answers, 50)

	if !sum.RequiresManualReview {
		t.Fatal("expected manual review flag")
	}
	if sum.IsPassed {
		t.Fatal("pass/fail must be withheld while manual grading is pending")
	}
	if !sum.PerQuestion[manual.ID].NeedsManual {
		t.Fatal("short answer result should need manual grading")
	}
	// An unanswered short answer needs no review at all.
	sum2 := NewEngine().Grade([]model.Question{auto, manual}, map[uuid.UUID]model.AnswerValue{
		auto.ID: {Text: "A"},
	}, 50)
	if sum2.RequiresManualReview {
		t.Fatal("unanswered short answer should not block finalization")
	}
	if !sum2.IsPassed {
		t.Fatal("50/100 should pass at 50%")
	}
}

func TestPassedBoundary(t *testing.T) {
	if !Passed(60, 100, 60) {
		t.Fatal("exact boundary should pass")
	}
	if Passed(59.9, 100, 60) {
		t.Fatal("below boundary should fail")
	}
	if !Passed(0, 0, 0) {
		t.Fatal("empty exam with zero passing score should pass")
	}
	if Passed(0, 0, 1) {
		t.Fatal("empty exam with positive passing score should fail")
	}
}
