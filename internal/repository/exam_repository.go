package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skillup/examflow-backend/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, title, duration_minutes, total_questions, passing_score,
	max_attempts, status, is_certified, requires_approval, start_time, end_time,
	created_at, updated_at`

// GetByID retrieves an exam by its ID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id,
	).Scan(
		&e.ID, &e.Title, &e.DurationMinutes, &e.TotalQuestions, &e.PassingScore,
		&e.MaxAttempts, &e.Status, &e.IsCertified, &e.RequiresApproval,
		&e.StartTime, &e.EndTime, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListOpen retrieves exams whose status admits attempts, ordered by start time.
func (r *ExamRepository) ListOpen(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams
		 WHERE status IN ($1, $2)
		 ORDER BY start_time NULLS LAST, created_at DESC`,
		model.ExamStatusPublished, model.ExamStatusOngoing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(
			&e.ID, &e.Title, &e.DurationMinutes, &e.TotalQuestions, &e.PassingScore,
			&e.MaxAttempts, &e.Status, &e.IsCertified, &e.RequiresApproval,
			&e.StartTime, &e.EndTime, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Create inserts a new exam. Used by seeding; exam authoring itself lives in
// a different subsystem.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, duration_minutes, total_questions, passing_score,
		   max_attempts, status, is_certified, requires_approval, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.DurationMinutes, e.TotalQuestions, e.PassingScore,
		e.MaxAttempts, e.Status, e.IsCertified, e.RequiresApproval, e.StartTime, e.EndTime,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}
