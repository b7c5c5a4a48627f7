package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/skillup/examflow-backend/internal/clock"
	"github.com/skillup/examflow-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eligibilityFixture(t *testing.T) (*EligibilityService, *fakeExamStore, *fakeAttemptStore, *fakeRegistrationStore, *clock.Fixed) {
	t.Helper()
	exams := newFakeExamStore()
	attempts := newFakeAttemptStore()
	regs := newFakeRegistrationStore()
	clk := &clock.Fixed{T: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	return NewEligibilityService(exams, attempts, regs, clk), exams, attempts, regs, clk
}

func publishedExam() model.Exam {
	return model.Exam{
		ID:              uuid.New(),
		Title:           "Basics",
		DurationMinutes: 30,
		PassingScore:    60,
		MaxAttempts:     2,
		Status:          model.ExamStatusPublished,
	}
}

func TestCheckUnknownExam(t *testing.T) {
	svc, _, _, _, _ := eligibilityFixture(t)

	_, err := svc.Check(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckExamNotPublished(t *testing.T) {
	svc, exams, _, _, _ := eligibilityFixture(t)
	exam := publishedExam()
	exam.Status = model.ExamStatusDraft
	exams.put(exam)

	elig, err := svc.Check(context.Background(), exam.ID, 1)
	require.NoError(t, err)
	assert.False(t, elig.Eligible)
	assert.Equal(t, ReasonExamNotPublished, elig.Reason)
}

func TestCheckRegistrationGate(t *testing.T) {
	svc, exams, _, regs, _ := eligibilityFixture(t)
	exam := publishedExam()
	exam.RequiresApproval = true
	exams.put(exam)

	// No registration yet: user may register, not start.
	elig, err := svc.Check(context.Background(), exam.ID, 1)
	require.NoError(t, err)
	assert.False(t, elig.Eligible)
	assert.Equal(t, ReasonRegistrationNeeded, elig.Reason)
	assert.True(t, elig.CanRegister)

	// Pending: waiting, cannot re-register.
	regs.put(exam.ID, 1, model.RegistrationPending)
	elig, err = svc.Check(context.Background(), exam.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, ReasonRegistrationPending, elig.Reason)
	assert.False(t, elig.CanRegister)

	// Rejected: may try again.
	regs.put(exam.ID, 1, model.RegistrationRejected)
	elig, err = svc.Check(context.Background(), exam.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, ReasonRegistrationNeeded, elig.Reason)
	assert.True(t, elig.CanRegister)

	// Approved: gate passes.
	regs.put(exam.ID, 1, model.RegistrationApproved)
	elig, err = svc.Check(context.Background(), exam.ID, 1)
	require.NoError(t, err)
	assert.True(t, elig.CanStart)
}

func TestCheckWindowBoundaries(t *testing.T) {
	svc, exams, _, _, clk := eligibilityFixture(t)
	start := clk.T.Add(time.Hour)
	end := clk.T.Add(2 * time.Hour)
	exam := publishedExam()
	exam.StartTime = &start
	exam.EndTime = &end
	exams.put(exam)

	// Before the window: eligible but cannot start yet.
	elig, err := svc.Check(context.Background(), exam.ID, 1)
	require.NoError(t, err)
	assert.True(t, elig.Eligible)
	assert.False(t, elig.CanStart)
	assert.Equal(t, ReasonExamNotStarted, elig.Reason)
	require.NotNil(t, elig.NextAvailableTime)
	assert.Equal(t, start, *elig.NextAvailableTime)

	// Exactly at the boundary the window is open.
	clk.Advance(time.Hour)
	elig, err = svc.Check(context.Background(), exam.ID, 1)
	require.NoError(t, err)
	assert.True(t, elig.CanStart)

	// Past the end: closed.
	clk.Advance(time.Hour + time.Second)
	elig, err = svc.Check(context.Background(), exam.ID, 1)
	require.NoError(t, err)
	assert.False(t, elig.Eligible)
	assert.Equal(t, ReasonExamEnded, elig.Reason)
}

func TestCheckMaxAttempts(t *testing.T) {
	svc, exams, attempts, _, clk := eligibilityFixture(t)
	exam := publishedExam()
	exam.MaxAttempts = 1
	exams.put(exam)

	completed := model.ExamAttempt{
		ID: uuid.New(), ExamID: exam.ID, UserID: 1,
		AttemptNumber: 1, Status: model.AttemptStatusCompleted,
		StartTime: clk.T.Add(-2 * time.Hour), EndTime: clk.T.Add(-time.Hour),
	}
	attempts.attempts[completed.ID] = completed

	elig, err := svc.Check(context.Background(), exam.ID, 1)
	require.NoError(t, err)
	assert.False(t, elig.Eligible)
	assert.Equal(t, ReasonMaxAttemptsReached, elig.Reason)
	assert.Equal(t, 1, elig.CompletedAttempts)

	// Another user is unaffected.
	elig, err = svc.Check(context.Background(), exam.ID, 2)
	require.NoError(t, err)
	assert.True(t, elig.CanStart)
}

func TestCheckResumesInProgress(t *testing.T) {
	svc, exams, attempts, _, clk := eligibilityFixture(t)
	exam := publishedExam()
	exams.put(exam)

	active := model.ExamAttempt{
		ID: uuid.New(), ExamID: exam.ID, UserID: 1,
		AttemptNumber: 1, Status: model.AttemptStatusInProgress,
		StartTime: clk.T.Add(-time.Minute), EndTime: clk.T.Add(29 * time.Minute),
	}
	attempts.attempts[active.ID] = active

	elig, err := svc.Check(context.Background(), exam.ID, 1)
	require.NoError(t, err)
	assert.True(t, elig.Eligible)
	assert.False(t, elig.CanStart)
	assert.Equal(t, ReasonAttemptInProgress, elig.Reason)
	require.NotNil(t, elig.ActiveAttemptID)
	assert.Equal(t, active.ID, *elig.ActiveAttemptID)
}

func TestRegisterLifecycle(t *testing.T) {
	svc, exams, _, _, _ := eligibilityFixture(t)
	exam := publishedExam()
	exam.RequiresApproval = true
	exams.put(exam)

	reg, err := svc.Register(context.Background(), exam.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationPending, reg.Status)

	// Re-registering while pending returns the same registration.
	again, err := svc.Register(context.Background(), exam.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, again.ID)

	// After a rejection the user may file anew; the row is reset in place
	// and keeps its id.
	require.NoError(t, svc.Decide(context.Background(), exam.ID, 1, model.RegistrationRejected))
	refiled, err := svc.Register(context.Background(), exam.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationPending, refiled.Status)
	assert.Equal(t, reg.ID, refiled.ID)
	assert.Nil(t, refiled.DecidedAt)
}

func TestRegisterNotNeeded(t *testing.T) {
	svc, exams, _, _, _ := eligibilityFixture(t)
	exam := publishedExam()
	exams.put(exam)

	_, err := svc.Register(context.Background(), exam.ID, 1)
	assert.ErrorIs(t, err, ErrRegistrationNotNeeded)
}
