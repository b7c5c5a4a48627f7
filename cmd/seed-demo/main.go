package main

import (
	"context"
	"fmt"
	"time"

	"github.com/skillup/examflow-backend/internal/config"
	"github.com/skillup/examflow-backend/internal/database"
	"github.com/skillup/examflow-backend/internal/logger"
	"github.com/skillup/examflow-backend/internal/model"
	"github.com/skillup/examflow-backend/internal/repository"
	"github.com/skillup/examflow-backend/internal/service"
)

// Seeds a demo exam with one question of every type and prints dev tokens,
// so the API can be exercised end to end right after migrate up.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding demo exam ===")

	exam := &model.Exam{
		Title:           "Go Fundamentals Certification",
		DurationMinutes: 30,
		TotalQuestions:  5,
		PassingScore:    60,
		MaxAttempts:     3,
		Status:          model.ExamStatusPublished,
		IsCertified:     true,
	}
	if err := examRepo.Create(ctx, exam); err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}
	fmt.Printf("Created exam %s (%s)\n", exam.Title, exam.ID)

	questions := []*model.Question{
		{
			ExamID: exam.ID,
			Text:   "Which keyword declares a new variable with inferred type?",
			Type:   model.QuestionTypeSingleChoice,
			Options: []model.Option{
				{ID: "a", Text: "var x = 1"},
				{ID: "b", Text: "x := 1"},
				{ID: "c", Text: "let x = 1"},
			},
			CorrectText: "b",
			Score:       10,
			OrderNum:    1,
		},
		{
			ExamID: exam.ID,
			Text:   "Which of these are built-in Go types?",
			Type:   model.QuestionTypeMultipleChoice,
			Options: []model.Option{
				{ID: "a", Text: "rune"},
				{ID: "b", Text: "decimal"},
				{ID: "c", Text: "complex128"},
				{ID: "d", Text: "char"},
			},
			CorrectChoices: []string{"a", "c"},
			Score:          10,
			OrderNum:       2,
		},
		{
			ExamID:      exam.ID,
			Text:        "A nil map can be read from without panicking.",
			Type:        model.QuestionTypeTrueFalse,
			CorrectText: "true",
			Score:       10,
			OrderNum:    3,
		},
		{
			ExamID:      exam.ID,
			Text:        "The builtin that returns a slice's length is ____.",
			Type:        model.QuestionTypeFillBlank,
			CorrectText: "len",
			Score:       10,
			OrderNum:    4,
		},
		{
			ExamID:   exam.ID,
			Text:     "Explain when you would choose a buffered channel over an unbuffered one.",
			Type:     model.QuestionTypeShortAnswer,
			Score:    10,
			OrderNum: 5,
		},
	}
	for _, q := range questions {
		if err := questionRepo.Create(ctx, q); err != nil {
			log.Fatal().Err(err).Str("text", q.Text).Msg("Failed to create question")
		}
	}
	fmt.Printf("Created %d questions\n", len(questions))

	gated := &model.Exam{
		Title:            "Advanced Concurrency (invite only)",
		DurationMinutes:  45,
		TotalQuestions:   0,
		PassingScore:     70,
		MaxAttempts:      1,
		Status:           model.ExamStatusPublished,
		RequiresApproval: true,
	}
	if err := examRepo.Create(ctx, gated); err != nil {
		log.Fatal().Err(err).Msg("Failed to create gated exam")
	}
	fmt.Printf("Created approval-gated exam %s (%s)\n", gated.Title, gated.ID)

	// Dev tokens so the API can be driven with curl immediately.
	auth := service.NewAuthService(cfg)
	userToken, err := auth.GenerateToken(1, service.TokenTypeUser, 24*time.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate user token")
	}
	adminToken, err := auth.GenerateToken(1, service.TokenTypeAdmin, 24*time.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate admin token")
	}

	fmt.Println("\nUser token (user_id=1):")
	fmt.Println(userToken)
	fmt.Println("\nAdmin token (user_id=1):")
	fmt.Println(adminToken)
}
