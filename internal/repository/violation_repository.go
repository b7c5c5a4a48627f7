package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skillup/examflow-backend/internal/model"
)

// ViolationRepository handles anti-cheat event data access. Records are
// append-only; nothing ever updates or deletes them.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// BulkInsert copies a batch of violations in one round trip.
func (r *ViolationRepository) BulkInsert(ctx context.Context, violations []*model.Violation) error {
	rows := make([][]interface{}, 0, len(violations))
	for _, v := range violations {
		rows = append(rows, []interface{}{
			v.AttemptID, v.ExamID, v.UserID, v.Type, v.Severity, []byte(v.Evidence), v.OccurredAt,
		})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"violations"},
		[]string{"attempt_id", "exam_id", "user_id", "type", "severity", "evidence", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// Insert persists a single violation. Fallback path when a bulk copy fails.
func (r *ViolationRepository) Insert(ctx context.Context, v *model.Violation) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO violations (attempt_id, exam_id, user_id, type, severity, evidence, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		v.AttemptID, v.ExamID, v.UserID, v.Type, v.Severity, []byte(v.Evidence), v.OccurredAt,
	)
	return err
}

// ListByExam retrieves an exam's violations with pagination, newest first.
func (r *ViolationRepository) ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]model.Violation, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM violations WHERE exam_id = $1`, examID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, exam_id, user_id, type, severity, evidence, occurred_at
		 FROM violations
		 WHERE exam_id = $1
		 ORDER BY occurred_at DESC
		 LIMIT $2 OFFSET $3`,
		examID, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var violations []model.Violation
	for rows.Next() {
		var v model.Violation
		if err := rows.Scan(&v.ID, &v.AttemptID, &v.ExamID, &v.UserID,
			&v.Type, &v.Severity, &v.Evidence, &v.OccurredAt); err != nil {
			return nil, 0, err
		}
		violations = append(violations, v)
	}
	return violations, total, rows.Err()
}

// ListByAttempt retrieves all violations of one attempt in time order.
func (r *ViolationRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Violation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, exam_id, user_id, type, severity, evidence, occurred_at
		 FROM violations
		 WHERE attempt_id = $1
		 ORDER BY occurred_at ASC`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var violations []model.Violation
	for rows.Next() {
		var v model.Violation
		if err := rows.Scan(&v.ID, &v.AttemptID, &v.ExamID, &v.UserID,
			&v.Type, &v.Severity, &v.Evidence, &v.OccurredAt); err != nil {
			return nil, err
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}
