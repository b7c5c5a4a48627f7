package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skillup/examflow-backend/internal/model"
)

// RegistrationRepository handles exam registration data access.
type RegistrationRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrationRepository creates a new RegistrationRepository.
func NewRegistrationRepository(pool *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{pool: pool}
}

// Get retrieves a user's registration for an exam.
func (r *RegistrationRepository) Get(ctx context.Context, examID uuid.UUID, userID int) (*model.ExamRegistration, error) {
	reg := &model.ExamRegistration{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, user_id, status, requested_at, decided_at
		 FROM exam_registrations
		 WHERE exam_id = $1 AND user_id = $2`, examID, userID,
	).Scan(&reg.ID, &reg.ExamID, &reg.UserID, &reg.Status, &reg.RequestedAt, &reg.DecidedAt)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Request creates a pending registration, or resets a rejected one back to
// pending. A pending or approved registration is left untouched.
func (r *RegistrationRepository) Request(ctx context.Context, examID uuid.UUID, userID int, now time.Time) (*model.ExamRegistration, error) {
	reg := &model.ExamRegistration{ExamID: examID, UserID: userID}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_registrations (exam_id, user_id, status, requested_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (exam_id, user_id) DO UPDATE
		 SET status = $3, requested_at = $4, decided_at = NULL
		 WHERE exam_registrations.status = $5
		 RETURNING id, status, requested_at, decided_at`,
		examID, userID, model.RegistrationPending, now, model.RegistrationRejected,
	).Scan(&reg.ID, &reg.Status, &reg.RequestedAt, &reg.DecidedAt)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Decide records an approval or rejection. Returns pgx.ErrNoRows when no
// registration exists to decide.
func (r *RegistrationRepository) Decide(ctx context.Context, examID uuid.UUID, userID int, status model.RegistrationStatus, now time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_registrations
		 SET status = $1, decided_at = $2
		 WHERE exam_id = $3 AND user_id = $4`,
		status, now, examID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
