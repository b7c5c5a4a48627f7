package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skillup/examflow-backend/internal/model"
)

// CertificateRepository handles certificate data access.
type CertificateRepository struct {
	pool *pgxpool.Pool
}

// NewCertificateRepository creates a new CertificateRepository.
func NewCertificateRepository(pool *pgxpool.Pool) *CertificateRepository {
	return &CertificateRepository{pool: pool}
}

// Create inserts a certificate for an attempt. The unique constraint on
// attempt_id makes issuance idempotent under concurrent retries: the loser's
// insert is a no-op and the existing row is returned instead.
func (r *CertificateRepository) Create(ctx context.Context, c *model.Certificate) (*model.Certificate, error) {
	metadata, err := json.Marshal(c.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO certificates (exam_id, user_id, attempt_id, certificate_number, issued_at, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (attempt_id) DO NOTHING
		 RETURNING id`,
		c.ExamID, c.UserID, c.AttemptID, c.Number, c.IssuedAt, metadata,
	).Scan(&c.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Already issued; hand back the original.
		return r.GetByAttempt(ctx, c.AttemptID)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetByAttempt retrieves the certificate issued for an attempt, if any.
func (r *CertificateRepository) GetByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Certificate, error) {
	c := &model.Certificate{}
	var metadata []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, user_id, attempt_id, certificate_number, issued_at, metadata
		 FROM certificates
		 WHERE attempt_id = $1`, attemptID,
	).Scan(&c.ID, &c.ExamID, &c.UserID, &c.AttemptID, &c.Number, &c.IssuedAt, &metadata)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return c, nil
}
