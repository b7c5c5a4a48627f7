package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/skillup/examflow-backend/internal/clock"
	"github.com/skillup/examflow-backend/internal/model"
)

// Eligibility reasons, in rule order. The first failing rule wins.
const (
	ReasonExamNotPublished    = "exam not published"
	ReasonRegistrationNeeded  = "registration required"
	ReasonRegistrationPending = "registration pending approval"
	ReasonExamNotStarted      = "exam not yet open"
	ReasonExamEnded           = "exam ended"
	ReasonMaxAttemptsReached  = "max attempts reached"
	ReasonAttemptInProgress   = "attempt already in progress"
)

// Eligibility is the outcome of the pre-start rule evaluation.
type Eligibility struct {
	Eligible          bool       `json:"eligible"`
	Reason            string     `json:"reason,omitempty"`
	CanRegister       bool       `json:"can_register"`
	CanStart          bool       `json:"can_start"`
	RemainingAttempts int        `json:"remaining_attempts"`
	CompletedAttempts int        `json:"completed_attempts"`
	NextAvailableTime *time.Time `json:"next_available_time,omitempty"`
	ActiveAttemptID   *uuid.UUID `json:"active_attempt_id,omitempty"`
}

// EligibilityService decides whether a user may start or resume an exam
// attempt. Pure read-then-decide: no side effects, safe to call repeatedly.
type EligibilityService struct {
	exams         ExamStore
	attempts      AttemptStore
	registrations RegistrationStore
	clk           clock.Clock
}

// NewEligibilityService creates a new EligibilityService.
func NewEligibilityService(exams ExamStore, attempts AttemptStore, registrations RegistrationStore, clk clock.Clock) *EligibilityService {
	return &EligibilityService{
		exams:         exams,
		attempts:      attempts,
		registrations: registrations,
		clk:           clk,
	}
}

// Check evaluates the eligibility rules in order; the first failing rule
// decides the outcome.
func (s *EligibilityService) Check(ctx context.Context, examID uuid.UUID, userID int) (*Eligibility, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	now := s.clk.Now()

	// Rule 1: exam status must admit attempts.
	if !exam.AcceptsAttempts() {
		return &Eligibility{Reason: ReasonExamNotPublished}, nil
	}

	// Rule 2: approval-gated exams need an approved registration.
	if exam.RequiresApproval {
		reg, err := s.registrations.Get(ctx, examID, userID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return &Eligibility{Reason: ReasonRegistrationNeeded, CanRegister: true}, nil
		case err != nil:
			return nil, fmt.Errorf("get registration: %w", err)
		}

		switch reg.Status {
		case model.RegistrationRejected:
			return &Eligibility{Reason: ReasonRegistrationNeeded, CanRegister: true}, nil
		case model.RegistrationPending:
			return &Eligibility{Reason: ReasonRegistrationPending}, nil
		}
	}

	completed, err := s.attempts.CountCompleted(ctx, examID, userID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	remaining := exam.MaxAttempts - completed

	// Rule 3: before the exam-wide window opens the user is eligible but
	// cannot start yet.
	if exam.StartTime != nil && now.Before(*exam.StartTime) {
		return &Eligibility{
			Eligible:          true,
			Reason:            ReasonExamNotStarted,
			RemainingAttempts: remaining,
			CompletedAttempts: completed,
			NextAvailableTime: exam.StartTime,
		}, nil
	}

	// Rule 4: past the exam-wide window.
	if exam.EndTime != nil && now.After(*exam.EndTime) {
		return &Eligibility{Reason: ReasonExamEnded, CompletedAttempts: completed}, nil
	}

	// Rule 5: attempt quota.
	if remaining <= 0 {
		return &Eligibility{Reason: ReasonMaxAttemptsReached, CompletedAttempts: completed}, nil
	}

	// Rule 6: an in-progress attempt must be resumed, not restarted.
	active, err := s.attempts.GetInProgress(ctx, examID, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get in-progress attempt: %w", err)
	}
	if active != nil {
		return &Eligibility{
			Eligible:          true,
			Reason:            ReasonAttemptInProgress,
			RemainingAttempts: remaining,
			CompletedAttempts: completed,
			ActiveAttemptID:   &active.ID,
		}, nil
	}

	return &Eligibility{
		Eligible:          true,
		CanStart:          true,
		RemainingAttempts: remaining,
		CompletedAttempts: completed,
	}, nil
}

// Register files (or re-files, after a rejection) a registration request for
// an approval-gated exam. Pending and approved registrations are returned
// unchanged.
func (s *EligibilityService) Register(ctx context.Context, examID uuid.UUID, userID int) (*model.ExamRegistration, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if !exam.RequiresApproval {
		return nil, ErrRegistrationNotNeeded
	}
	if !exam.AcceptsAttempts() {
		return nil, &NotEligibleError{Eligibility: &Eligibility{Reason: ReasonExamNotPublished}}
	}

	reg, err := s.registrations.Request(ctx, examID, userID, s.clk.Now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conditional upsert declined: a pending or approved
			// registration already exists.
			return s.registrations.Get(ctx, examID, userID)
		}
		return nil, fmt.Errorf("request registration: %w", err)
	}
	return reg, nil
}

// Decide records an admin's approval or rejection of a registration.
func (s *EligibilityService) Decide(ctx context.Context, examID uuid.UUID, userID int, status model.RegistrationStatus) error {
	if status != model.RegistrationApproved && status != model.RegistrationRejected {
		return fmt.Errorf("invalid registration decision: %s", status)
	}
	if err := s.registrations.Decide(ctx, examID, userID, status, s.clk.Now()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("decide registration: %w", err)
	}
	return nil
}
