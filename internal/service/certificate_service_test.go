package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skillup/examflow-backend/internal/clock"
	"github.com/skillup/examflow-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func certFixture(t *testing.T) (*CertificateService, *fakeCertificateStore, *fakeNotifier, *clock.Fixed) {
	t.Helper()
	certs := newFakeCertificateStore()
	notifier := &fakeNotifier{}
	clk := &clock.Fixed{T: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	return NewCertificateService(certs, notifier, clk, zerolog.Nop()), certs, notifier, clk
}

func passedAttempt(clk *clock.Fixed) (*model.ExamAttempt, *model.Exam) {
	total, max, passing := 90.0, 100.0, 60.0
	passed := true
	submit := clk.T.Add(-time.Hour)
	via := model.FinishedBySubmit
	exam := &model.Exam{ID: uuid.New(), Title: "Go Basics", PassingScore: passing, IsCertified: true}
	return &model.ExamAttempt{
		ID: uuid.New(), ExamID: exam.ID, UserID: 7,
		Status: model.AttemptStatusCompleted, FinishedVia: &via,
		SubmitTime: &submit, TotalScore: &total, MaxScore: &max,
		PassingScore: &passing, IsPassed: &passed,
	}, exam
}

func TestIssueIfEligibleCreatesCertificate(t *testing.T) {
	svc, _, notifier, clk := certFixture(t)
	attempt, exam := passedAttempt(clk)

	cert, err := svc.IssueIfEligible(context.Background(), attempt, exam)
	require.NoError(t, err)
	assert.Equal(t, attempt.ID, cert.AttemptID)
	assert.Equal(t, exam.Title, cert.Metadata.ExamTitle)
	assert.Equal(t, 90.0, cert.Metadata.TotalScore)
	assert.Equal(t, 1, notifier.count())

	assert.Regexp(t, regexp.MustCompile(`^CERT-20260310-[0-9A-F]{8}$`), cert.Number)
}

func TestIssueIfEligibleIsIdempotent(t *testing.T) {
	svc, _, notifier, clk := certFixture(t)
	attempt, exam := passedAttempt(clk)

	first, err := svc.IssueIfEligible(context.Background(), attempt, exam)
	require.NoError(t, err)
	second, err := svc.IssueIfEligible(context.Background(), attempt, exam)
	require.NoError(t, err)

	assert.Equal(t, first.Number, second.Number)
	assert.Equal(t, first.ID, second.ID)
	// Only the inserting call notifies.
	assert.Equal(t, 1, notifier.count())
}

func TestIssueIfEligibleGating(t *testing.T) {
	svc, _, _, clk := certFixture(t)

	// Failed attempt.
	attempt, exam := passedAttempt(clk)
	failed := false
	attempt.IsPassed = &failed
	_, err := svc.IssueIfEligible(context.Background(), attempt, exam)
	assert.ErrorIs(t, err, ErrCertificateNotEarned)

	// Pending manual review withholds issuance even when marks look passing.
	attempt, exam = passedAttempt(clk)
	attempt.RequiresManualReview = true
	_, err = svc.IssueIfEligible(context.Background(), attempt, exam)
	assert.ErrorIs(t, err, ErrCertificateNotEarned)

	// Exam without certification.
	attempt, exam = passedAttempt(clk)
	exam.IsCertified = false
	_, err = svc.IssueIfEligible(context.Background(), attempt, exam)
	assert.ErrorIs(t, err, ErrCertificateNotEarned)
}

func TestGetOrIssueRecoversLostIssuance(t *testing.T) {
	svc, certs, _, clk := certFixture(t)
	attempt, exam := passedAttempt(clk)

	// Nothing stored yet: GetOrIssue issues lazily.
	cert, err := svc.GetOrIssue(context.Background(), attempt, exam)
	require.NoError(t, err)

	stored, err := certs.GetByAttempt(context.Background(), attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.Number, stored.Number)

	// Subsequent calls read the stored row.
	again, err := svc.GetOrIssue(context.Background(), attempt, exam)
	require.NoError(t, err)
	assert.Equal(t, cert.Number, again.Number)
}
