package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skillup/examflow-backend/internal/clock"
	"github.com/skillup/examflow-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func violationFixture(t *testing.T) (*ViolationService, *fakeAttemptStore, *fakeViolationSink, *clock.Fixed) {
	t.Helper()
	attempts := newFakeAttemptStore()
	sink := &fakeViolationSink{}
	clk := &clock.Fixed{T: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := NewViolationService(attempts, nil, NoopAttemptCache{}, sink, clk, zerolog.Nop())
	return svc, attempts, sink, clk
}

func liveAttempt(attempts *fakeAttemptStore, userID int, end time.Time) model.ExamAttempt {
	a := model.ExamAttempt{
		ID: uuid.New(), ExamID: uuid.New(), UserID: userID,
		AttemptNumber: 1, Status: model.AttemptStatusInProgress,
		StartTime: end.Add(-30 * time.Minute), EndTime: end,
	}
	attempts.attempts[a.ID] = a
	return a
}

func TestRecordViolationEnqueuesAndPublishes(t *testing.T) {
	svc, attempts, sink, clk := violationFixture(t)
	a := liveAttempt(attempts, 1, clk.T.Add(10*time.Minute))

	err := svc.Record(context.Background(), a.ID, 1, &model.ReportViolationRequest{
		Type:     model.ViolationTabSwitch,
		Severity: model.SeverityMedium,
	})
	require.NoError(t, err)

	require.Len(t, sink.enqueued, 1)
	require.Len(t, sink.published, 1)
	ev := sink.enqueued[0]
	assert.Equal(t, a.ID, ev.AttemptID)
	assert.Equal(t, a.ExamID, ev.ExamID)
	assert.Equal(t, model.ViolationTabSwitch, ev.Type)
	assert.Equal(t, clk.T.Unix(), ev.Timestamp)
}

func TestRecordViolationDroppedAfterTerminal(t *testing.T) {
	svc, attempts, sink, clk := violationFixture(t)
	a := liveAttempt(attempts, 1, clk.T.Add(10*time.Minute))
	done := attempts.attempts[a.ID]
	done.Status = model.AttemptStatusCompleted
	attempts.attempts[a.ID] = done

	// Silently dropped: the taker's submit already won.
	err := svc.Record(context.Background(), a.ID, 1, &model.ReportViolationRequest{
		Type:     model.ViolationWindowBlur,
		Severity: model.SeverityLow,
	})
	require.NoError(t, err)
	assert.Empty(t, sink.enqueued)
	assert.Empty(t, sink.published)
}

func TestRecordViolationDroppedPastDeadline(t *testing.T) {
	svc, attempts, sink, clk := violationFixture(t)
	a := liveAttempt(attempts, 1, clk.T.Add(10*time.Minute))

	clk.Advance(11 * time.Minute)
	err := svc.Record(context.Background(), a.ID, 1, &model.ReportViolationRequest{
		Type:     model.ViolationCopyPaste,
		Severity: model.SeverityHigh,
	})
	require.NoError(t, err)
	assert.Empty(t, sink.enqueued)
}

func TestRecordViolationOwnershipAndExistence(t *testing.T) {
	svc, attempts, _, clk := violationFixture(t)
	a := liveAttempt(attempts, 1, clk.T.Add(10*time.Minute))

	err := svc.Record(context.Background(), a.ID, 2, &model.ReportViolationRequest{
		Type:     model.ViolationTabSwitch,
		Severity: model.SeverityLow,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.Record(context.Background(), uuid.New(), 1, &model.ReportViolationRequest{
		Type:     model.ViolationTabSwitch,
		Severity: model.SeverityLow,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}
