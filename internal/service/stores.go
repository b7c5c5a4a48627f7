package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/skillup/examflow-backend/internal/model"
	"github.com/skillup/examflow-backend/internal/repository"
)

// The store interfaces below are the persistence boundary the services
// program against. internal/repository provides the PostgreSQL
// implementations; tests substitute in-memory fakes. Not-found is signaled
// with pgx.ErrNoRows by both.

// ExamStore reads exam records.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListOpen(ctx context.Context) ([]model.Exam, error)
}

// QuestionStore reads an exam's question set.
type QuestionStore interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
}

// AttemptStore persists attempts, their answers, and the conditional status
// transitions the lifecycle depends on.
type AttemptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error)
	GetInProgress(ctx context.Context, examID uuid.UUID, userID int) (*model.ExamAttempt, error)
	CountCompleted(ctx context.Context, examID uuid.UUID, userID int) (int, error)
	ListByUser(ctx context.Context, userID int) ([]model.ExamAttempt, error)
	Create(ctx context.Context, a *model.ExamAttempt) error
	UpsertAnswer(ctx context.Context, attemptID uuid.UUID, ans *model.UserAnswer, questionIndex *int) error
	ListAnswers(ctx context.Context, attemptID uuid.UUID) (map[uuid.UUID]model.UserAnswer, error)
	SetFlags(ctx context.Context, attemptID uuid.UUID, flags []uuid.UUID) error
	FinishGraded(
		ctx context.Context,
		attemptID uuid.UUID,
		via model.FinishReason,
		submitTime time.Time,
		timeSpentSeconds int64,
		totalScore, maxScore, passingScore float64,
		isPassed, requiresManualReview bool,
		graded []repository.GradedAnswer,
	) (bool, error)
	ApplyManualGrades(ctx context.Context, attemptID uuid.UUID, grades map[uuid.UUID]float64, totalScore float64, isPassed bool) (bool, error)
	ListOverdueInProgress(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	ListResultsByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]model.ExamAttempt, int64, error)
}

// CertificateStore persists certificates with issue-once semantics.
type CertificateStore interface {
	Create(ctx context.Context, c *model.Certificate) (*model.Certificate, error)
	GetByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Certificate, error)
}

// ViolationStore reads persisted anti-cheat events. Writes go through the
// Redis queue and its worker, never through the services directly.
type ViolationStore interface {
	ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]model.Violation, int64, error)
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Violation, error)
}

// RegistrationStore persists exam registrations.
type RegistrationStore interface {
	Get(ctx context.Context, examID uuid.UUID, userID int) (*model.ExamRegistration, error)
	Request(ctx context.Context, examID uuid.UUID, userID int, now time.Time) (*model.ExamRegistration, error)
	Decide(ctx context.Context, examID uuid.UUID, userID int, status model.RegistrationStatus, now time.Time) error
}
