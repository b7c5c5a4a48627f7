package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/skillup/examflow-backend/internal/clock"
	"github.com/skillup/examflow-backend/internal/logger"
	"github.com/skillup/examflow-backend/internal/model"
)

// CertificateService issues certificates for passed, certified attempts.
// Issuance is idempotent: the store's unique constraint on attempt_id
// guarantees at most one certificate per attempt even under concurrent
// retries.
type CertificateService struct {
	certs    CertificateStore
	notifier Notifier
	clk      clock.Clock
	log      zerolog.Logger
}

// NewCertificateService creates a new CertificateService.
func NewCertificateService(certs CertificateStore, notifier Notifier, clk clock.Clock, log zerolog.Logger) *CertificateService {
	return &CertificateService{
		certs:    certs,
		notifier: notifier,
		clk:      clk,
		log:      logger.Component(log, "certificate_service"),
	}
}

// IssueIfEligible creates the attempt's certificate, or returns the existing
// one. Returns ErrCertificateNotEarned when the attempt does not qualify.
func (s *CertificateService) IssueIfEligible(ctx context.Context, attempt *model.ExamAttempt, exam *model.Exam) (*model.Certificate, error) {
	if !qualifies(attempt, exam) {
		return nil, ErrCertificateNotEarned
	}

	issuedAt := s.clk.Now()
	cert := &model.Certificate{
		ExamID:    exam.ID,
		UserID:    attempt.UserID,
		AttemptID: attempt.ID,
		Number:    certificateNumber(issuedAt),
		IssuedAt:  issuedAt,
		Metadata: model.CertificateMetadata{
			ExamTitle:    exam.Title,
			TotalScore:   *attempt.TotalScore,
			MaxScore:     *attempt.MaxScore,
			PassingScore: *attempt.PassingScore,
			CompletedAt:  *attempt.SubmitTime,
		},
	}

	created, err := s.certs.Create(ctx, cert)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}

	if created.Number == cert.Number {
		// This call actually inserted the row; tell the notification
		// collaborator. A notification failure never unwinds issuance.
		if err := s.notifier.CertificateIssued(ctx, created); err != nil {
			s.log.Error().Err(err).
				Str("attempt_id", attempt.ID.String()).
				Msg("certificate notification failed")
		}
		s.log.Info().
			Str("attempt_id", attempt.ID.String()).
			Str("number", created.Number).
			Msg("certificate issued")
	}

	return created, nil
}

// GetOrIssue returns the attempt's certificate, lazily issuing it when a
// qualifying attempt has none yet (an earlier issuance may have failed after
// grading committed).
func (s *CertificateService) GetOrIssue(ctx context.Context, attempt *model.ExamAttempt, exam *model.Exam) (*model.Certificate, error) {
	cert, err := s.certs.GetByAttempt(ctx, attempt.ID)
	if err == nil {
		return cert, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return s.IssueIfEligible(ctx, attempt, exam)
}

func qualifies(attempt *model.ExamAttempt, exam *model.Exam) bool {
	return attempt.Status == model.AttemptStatusCompleted &&
		!attempt.RequiresManualReview &&
		attempt.IsPassed != nil && *attempt.IsPassed &&
		attempt.TotalScore != nil && attempt.MaxScore != nil &&
		attempt.PassingScore != nil && attempt.SubmitTime != nil &&
		exam.IsCertified
}

// certificateNumber builds a human-meaningful, collision-resistant number:
// issue date plus a random suffix. Cosmetic only, never used as a lookup key.
func certificateNumber(t time.Time) string {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("CERT-%s-%s", t.UTC().Format("20060102"), strings.ToUpper(hex.EncodeToString(suffix)))
}
