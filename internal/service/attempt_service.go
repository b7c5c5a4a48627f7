package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/skillup/examflow-backend/internal/clock"
	"github.com/skillup/examflow-backend/internal/grading"
	"github.com/skillup/examflow-backend/internal/logger"
	"github.com/skillup/examflow-backend/internal/model"
	"github.com/skillup/examflow-backend/internal/repository"
)

// AttemptService drives the attempt lifecycle: start, answer recording,
// finishing (by submit or expiry), grading, and result retrieval. All
// transitions race-safe: the store's conditional writes decide every
// contested transition, the service only reacts to the verdict.
type AttemptService struct {
	attempts    AttemptStore
	exams       ExamStore
	questions   QuestionStore
	eligibility *EligibilityService
	certs       *CertificateService
	grader      *grading.Engine
	cache       AttemptCache
	clk         clock.Clock
	log         zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	exams ExamStore,
	questions QuestionStore,
	eligibility *EligibilityService,
	certs *CertificateService,
	grader *grading.Engine,
	cache AttemptCache,
	clk clock.Clock,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:    attempts,
		exams:       exams,
		questions:   questions,
		eligibility: eligibility,
		certs:       certs,
		grader:      grader,
		cache:       cache,
		clk:         clk,
		log:         logger.Component(log, "attempt_service"),
	}
}

// Start begins a new attempt after the eligibility gate passes. When the user
// already has an in-progress attempt (including one created by a concurrent
// Start that won the insert race), it returns AlreadyInProgressError carrying
// that attempt so the client can resume instead.
func (s *AttemptService) Start(ctx context.Context, examID uuid.UUID, userID int) (*model.AttemptState, error) {
	elig, err := s.eligibility.Check(ctx, examID, userID)
	if err != nil {
		return nil, err
	}
	if elig.ActiveAttemptID != nil {
		active, err := s.attempts.GetByID(ctx, *elig.ActiveAttemptID)
		if err != nil {
			return nil, fmt.Errorf("get active attempt: %w", err)
		}
		return nil, &AlreadyInProgressError{Attempt: active}
	}
	if !elig.CanStart {
		return nil, &NotEligibleError{Eligibility: elig}
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	now := s.clk.Now()
	end := now.Add(exam.Duration())
	// The attempt never outlives the exam-wide window.
	if exam.EndTime != nil && end.After(*exam.EndTime) {
		end = *exam.EndTime
	}

	attempt := &model.ExamAttempt{
		ID:            uuid.New(),
		ExamID:        examID,
		UserID:        userID,
		AttemptNumber: elig.CompletedAttempts + 1,
		Status:        model.AttemptStatusInProgress,
		StartTime:     now,
		EndTime:       end,
	}

	if err := s.attempts.Create(ctx, attempt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// A concurrent Start won the partial-unique-index race.
			active, err := s.attempts.GetInProgress(ctx, examID, userID)
			if err != nil {
				return nil, fmt.Errorf("get racing attempt: %w", err)
			}
			return nil, &AlreadyInProgressError{Attempt: active}
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.cache.Prime(ctx, attempt)
	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("exam_id", examID.String()).
		Int("user_id", userID).
		Int("attempt_number", attempt.AttemptNumber).
		Msg("attempt started")

	return s.stateFor(ctx, attempt)
}

// State returns the resume payload for an attempt. Touching an overdue
// attempt finalizes it first (lazy expiry), so the client always sees the
// attempt's true state.
func (s *AttemptService) State(ctx context.Context, attemptID uuid.UUID, userID int) (*model.AttemptState, error) {
	attempt, err := s.getOwned(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt, err = s.expireIfOverdue(ctx, attempt); err != nil {
		return nil, err
	}
	return s.stateFor(ctx, attempt)
}

// AnswerAck is returned for a saved answer so the client can correct its
// local countdown against the server clock.
type AnswerAck struct {
	RemainingSeconds     int64 `json:"remaining_seconds"`
	CurrentQuestionIndex int   `json:"current_question_index"`
}

// RecordAnswer saves (or overwrites) the answer to one question. The write is
// rejected once the attempt is terminal or its deadline has passed; an
// overdue attempt is finalized on the spot.
func (s *AttemptService) RecordAnswer(ctx context.Context, attemptID uuid.UUID, userID int, questionID uuid.UUID, req *model.RecordAnswerRequest) (*AnswerAck, error) {
	attempt, err := s.getOwned(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOpen(ctx, attempt); err != nil {
		return nil, err
	}

	question, err := s.findQuestion(ctx, attempt.ExamID, questionID)
	if err != nil {
		return nil, err
	}
	value := model.AnswerValue{Text: req.Text, Choices: req.Choices}
	if err := validateAnswerShape(question, value); err != nil {
		return nil, err
	}

	ans := &model.UserAnswer{
		QuestionID:       questionID,
		Value:            value,
		TimeSpentSeconds: req.TimeSpentSeconds,
		SubmittedAt:      s.clk.Now(),
	}
	if err := s.attempts.UpsertAnswer(ctx, attemptID, ans, req.QuestionIndex); err != nil {
		return nil, fmt.Errorf("upsert answer: %w", err)
	}
	if req.QuestionIndex != nil {
		attempt.CurrentQuestionIndex = *req.QuestionIndex
	}
	return &AnswerAck{
		RemainingSeconds:     attempt.RemainingSeconds(s.clk.Now()),
		CurrentQuestionIndex: attempt.CurrentQuestionIndex,
	}, nil
}

// FlagQuestion marks a question for later review within the attempt.
func (s *AttemptService) FlagQuestion(ctx context.Context, attemptID uuid.UUID, userID int, questionID uuid.UUID) error {
	return s.setFlag(ctx, attemptID, userID, questionID, true)
}

// UnflagQuestion removes a review mark.
func (s *AttemptService) UnflagQuestion(ctx context.Context, attemptID uuid.UUID, userID int, questionID uuid.UUID) error {
	return s.setFlag(ctx, attemptID, userID, questionID, false)
}

func (s *AttemptService) setFlag(ctx context.Context, attemptID uuid.UUID, userID int, questionID uuid.UUID, flagged bool) error {
	attempt, err := s.getOwned(ctx, attemptID, userID)
	if err != nil {
		return err
	}
	if err := s.requireOpen(ctx, attempt); err != nil {
		return err
	}

	if flagged {
		if attempt.IsFlagged(questionID) {
			return nil
		}
		if _, err := s.findQuestion(ctx, attempt.ExamID, questionID); err != nil {
			return err
		}
		attempt.FlaggedQuestions = append(attempt.FlaggedQuestions, questionID)
	} else {
		kept := attempt.FlaggedQuestions[:0]
		for _, id := range attempt.FlaggedQuestions {
			if id != questionID {
				kept = append(kept, id)
			}
		}
		attempt.FlaggedQuestions = kept
	}

	if err := s.attempts.SetFlags(ctx, attemptID, attempt.FlaggedQuestions); err != nil {
		return fmt.Errorf("set flags: %w", err)
	}
	return nil
}

// Submit finishes the attempt on the user's request. Idempotent: submitting
// an already-finished attempt returns its recorded result unchanged.
func (s *AttemptService) Submit(ctx context.Context, attemptID uuid.UUID, userID int) (*model.GradedResult, error) {
	attempt, err := s.getOwned(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return s.resultFor(ctx, attempt)
	}
	via := model.FinishedBySubmit
	if attempt.DeadlinePassed(s.clk.Now()) {
		// The submit raced the deadline; the expiry outcome stands.
		via = model.FinishedByExpiry
	}
	return s.finish(ctx, attempt, via)
}

// ExpireAttempt finalizes an overdue attempt on behalf of the sweeper. A
// no-op when the attempt is already terminal or not actually overdue.
func (s *AttemptService) ExpireAttempt(ctx context.Context, attemptID uuid.UUID) error {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status != model.AttemptStatusInProgress || !attempt.DeadlinePassed(s.clk.Now()) {
		return nil
	}
	_, err = s.finish(ctx, attempt, model.FinishedByExpiry)
	return err
}

// Result returns the graded outcome of a finished attempt. An overdue
// in-progress attempt is finalized first; a live one yields ErrNotCompleted.
func (s *AttemptService) Result(ctx context.Context, attemptID uuid.UUID, userID int) (*model.GradedResult, error) {
	attempt, err := s.getOwned(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == model.AttemptStatusInProgress {
		if !attempt.DeadlinePassed(s.clk.Now()) {
			return nil, ErrNotCompleted
		}
		return s.finish(ctx, attempt, model.FinishedByExpiry)
	}
	return s.resultFor(ctx, attempt)
}

// Certificate returns the attempt's certificate, lazily issuing it when the
// attempt qualifies but an earlier issuance was lost.
func (s *AttemptService) Certificate(ctx context.Context, attemptID uuid.UUID, userID int) (*model.Certificate, error) {
	attempt, err := s.getOwned(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptStatusCompleted {
		return nil, ErrNotCompleted
	}
	exam, err := s.exams.GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return s.certs.GetOrIssue(ctx, attempt, exam)
}

// LobbyEntry pairs an open exam with the user's standing on it.
type LobbyEntry struct {
	Exam              model.Exam `json:"exam"`
	CompletedAttempts int        `json:"completed_attempts"`
	ActiveAttemptID   *uuid.UUID `json:"active_attempt_id,omitempty"`
	BestScore         *float64   `json:"best_score,omitempty"`
}

// Lobby lists the open exams overlaid with the user's attempt history.
func (s *AttemptService) Lobby(ctx context.Context, userID int) ([]LobbyEntry, error) {
	exams, err := s.exams.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	attempts, err := s.attempts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	byExam := make(map[uuid.UUID][]model.ExamAttempt)
	for _, a := range attempts {
		byExam[a.ExamID] = append(byExam[a.ExamID], a)
	}

	entries := make([]LobbyEntry, 0, len(exams))
	for _, exam := range exams {
		entry := LobbyEntry{Exam: exam}
		for i := range byExam[exam.ID] {
			a := &byExam[exam.ID][i]
			switch a.Status {
			case model.AttemptStatusInProgress:
				id := a.ID
				entry.ActiveAttemptID = &id
			case model.AttemptStatusCompleted:
				entry.CompletedAttempts++
				if a.TotalScore != nil && a.MaxScore != nil && *a.MaxScore > 0 {
					pct := *a.TotalScore / *a.MaxScore * 100
					if entry.BestScore == nil || pct > *entry.BestScore {
						entry.BestScore = &pct
					}
				}
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ManualGrade resolves the pending short-answer scores of a reviewed attempt
// and finalizes its pass verdict. Grades are clamped to each question's
// score; pending answers the reviewer omitted score zero.
func (s *AttemptService) ManualGrade(ctx context.Context, attemptID uuid.UUID, req *model.ManualGradeRequest) (*model.GradedResult, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status != model.AttemptStatusCompleted || !attempt.RequiresManualReview {
		return nil, ErrNotPendingReview
	}

	questions, err := s.questions.ListByExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	maxByID := make(map[uuid.UUID]float64, len(questions))
	for _, q := range questions {
		maxByID[q.ID] = q.Score
	}

	answers, err := s.attempts.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	grades := make(map[uuid.UUID]float64, len(req.Grades))
	for raw, score := range req.Grades {
		qid, err := uuid.Parse(raw)
		if err != nil {
			return nil, ErrNotFound
		}
		ans, ok := answers[qid]
		if !ok || !ans.PendingManual {
			return nil, ErrNotPendingReview
		}
		if score < 0 {
			score = 0
		}
		if max := maxByID[qid]; score > max {
			score = max
		}
		grades[qid] = score
	}

	// The new total is the auto-graded part plus the reviewed scores.
	// Pending answers left ungraded contribute zero.
	var total float64
	for qid, ans := range answers {
		if ans.PendingManual {
			total += grades[qid]
		} else if ans.Score != nil {
			total += *ans.Score
		}
	}

	isPassed := grading.Passed(total, deref(attempt.MaxScore), deref(attempt.PassingScore))
	ok, err := s.attempts.ApplyManualGrades(ctx, attemptID, grades, total, isPassed)
	if err != nil {
		return nil, fmt.Errorf("apply manual grades: %w", err)
	}
	if !ok {
		// A concurrent review already finalized it.
		return nil, ErrNotPendingReview
	}

	attempt, err = s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("reload attempt: %w", err)
	}
	s.issueCertificate(ctx, attempt)

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Float64("total_score", total).
		Bool("is_passed", isPassed).
		Msg("manual grades applied")

	return s.resultFor(ctx, attempt)
}

// ListResults returns an exam's completed attempts for the admin view.
func (s *AttemptService) ListResults(ctx context.Context, examID uuid.UUID, page, perPage int) ([]model.ExamAttempt, int64, error) {
	return s.attempts.ListResultsByExam(ctx, examID, page, perPage)
}

// finish grades and closes an in-progress attempt. The conditional store
// update arbitrates concurrent finishers: the loser rereads and returns the
// winner's recorded result, so every caller sees the same outcome.
func (s *AttemptService) finish(ctx context.Context, attempt *model.ExamAttempt, via model.FinishReason) (*model.GradedResult, error) {
	exam, err := s.exams.GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	questions, err := s.questions.ListByExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	answers, err := s.attempts.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	values := make(map[uuid.UUID]model.AnswerValue, len(answers))
	for qid, ans := range answers {
		values[qid] = ans.Value
	}
	summary := s.grader.Grade(questions, values, exam.PassingScore)

	submitTime := s.clk.Now()
	if via == model.FinishedByExpiry || submitTime.After(attempt.EndTime) {
		// The recorded finish never postdates the deadline.
		submitTime = attempt.EndTime
	}
	timeSpent := int64(submitTime.Sub(attempt.StartTime).Seconds())

	graded := make([]repository.GradedAnswer, 0, len(answers))
	for qid := range answers {
		res := summary.PerQuestion[qid]
		graded = append(graded, repository.GradedAnswer{
			QuestionID:    qid,
			IsCorrect:     res.Correct,
			Score:         res.Awarded,
			PendingManual: res.NeedsManual,
		})
	}

	won, err := s.attempts.FinishGraded(
		ctx, attempt.ID, via, submitTime, timeSpent,
		summary.TotalScore, summary.MaxScore, exam.PassingScore,
		summary.IsPassed, summary.RequiresManualReview,
		graded,
	)
	if err != nil {
		return nil, fmt.Errorf("finish attempt: %w", err)
	}
	if !won {
		current, err := s.attempts.GetByID(ctx, attempt.ID)
		if err != nil {
			return nil, fmt.Errorf("reload attempt: %w", err)
		}
		return s.resultFor(ctx, current)
	}

	s.cache.Clear(ctx, attempt.ID)

	attempt.Status = model.AttemptStatusCompleted
	attempt.FinishedVia = &via
	attempt.SubmitTime = &submitTime
	attempt.TimeSpentSeconds = &timeSpent
	attempt.TotalScore = &summary.TotalScore
	attempt.MaxScore = &summary.MaxScore
	attempt.PassingScore = &exam.PassingScore
	attempt.IsPassed = &summary.IsPassed
	attempt.RequiresManualReview = summary.RequiresManualReview

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("finished_via", string(via)).
		Float64("total_score", summary.TotalScore).
		Bool("is_passed", summary.IsPassed).
		Bool("requires_manual_review", summary.RequiresManualReview).
		Msg("attempt finished")

	s.issueCertificate(ctx, attempt)
	return s.resultFor(ctx, attempt)
}

// issueCertificate triggers idempotent certificate issuance after a grading
// commit. Failures are logged, never surfaced: the Certificate endpoint's
// lazy path recovers them later.
func (s *AttemptService) issueCertificate(ctx context.Context, attempt *model.ExamAttempt) {
	exam, err := s.exams.GetByID(ctx, attempt.ExamID)
	if err != nil {
		s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("certificate exam lookup failed")
		return
	}
	if _, err := s.certs.IssueIfEligible(ctx, attempt, exam); err != nil && !errors.Is(err, ErrCertificateNotEarned) {
		s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("certificate issuance failed")
	}
}

func (s *AttemptService) getOwned(ctx context.Context, attemptID uuid.UUID, userID int) (*model.ExamAttempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.UserID != userID {
		return nil, ErrForbidden
	}
	return attempt, nil
}

// requireOpen gates write operations. An overdue attempt is finalized on the
// spot (lazy expiry) and the write is rejected.
func (s *AttemptService) requireOpen(ctx context.Context, attempt *model.ExamAttempt) error {
	if attempt.Status != model.AttemptStatusInProgress {
		return ErrAttemptClosed
	}
	if attempt.DeadlinePassed(s.clk.Now()) {
		if _, err := s.finish(ctx, attempt, model.FinishedByExpiry); err != nil {
			s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("lazy expiry failed")
		}
		return ErrAttemptClosed
	}
	return nil
}

// expireIfOverdue applies lazy expiry on read paths, returning the attempt's
// current (possibly just-finalized) row.
func (s *AttemptService) expireIfOverdue(ctx context.Context, attempt *model.ExamAttempt) (*model.ExamAttempt, error) {
	if attempt.Status != model.AttemptStatusInProgress || !attempt.DeadlinePassed(s.clk.Now()) {
		return attempt, nil
	}
	if _, err := s.finish(ctx, attempt, model.FinishedByExpiry); err != nil {
		return nil, err
	}
	current, err := s.attempts.GetByID(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("reload attempt: %w", err)
	}
	return current, nil
}

func (s *AttemptService) stateFor(ctx context.Context, attempt *model.ExamAttempt) (*model.AttemptState, error) {
	questions, err := s.questions.ListByExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	forTaker := make([]model.QuestionForTaker, len(questions))
	for i := range questions {
		forTaker[i] = questions[i].ForTaker()
	}

	answers, err := s.attempts.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	// Grading details stay hidden until the attempt is terminal.
	if attempt.Status == model.AttemptStatusInProgress {
		for qid, ans := range answers {
			ans.IsCorrect = nil
			ans.Score = nil
			ans.PendingManual = false
			answers[qid] = ans
		}
	}

	return &model.AttemptState{
		Attempt:          attempt,
		Questions:        forTaker,
		Answers:          answers,
		RemainingSeconds: attempt.RemainingSeconds(s.clk.Now()),
	}, nil
}

func (s *AttemptService) resultFor(ctx context.Context, attempt *model.ExamAttempt) (*model.GradedResult, error) {
	if attempt.Status != model.AttemptStatusCompleted {
		return nil, ErrNotCompleted
	}
	answers, err := s.attempts.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	res := &model.GradedResult{
		AttemptID:            attempt.ID,
		ExamID:               attempt.ExamID,
		AttemptNumber:        attempt.AttemptNumber,
		TotalScore:           deref(attempt.TotalScore),
		MaxScore:             deref(attempt.MaxScore),
		PassingScore:         deref(attempt.PassingScore),
		RequiresManualReview: attempt.RequiresManualReview,
		Answers:              answers,
	}
	if attempt.FinishedVia != nil {
		res.FinishedVia = *attempt.FinishedVia
	}
	if attempt.IsPassed != nil {
		res.IsPassed = *attempt.IsPassed
	}
	if attempt.SubmitTime != nil {
		res.SubmitTime = *attempt.SubmitTime
	}
	if attempt.TimeSpentSeconds != nil {
		res.TimeSpentSeconds = *attempt.TimeSpentSeconds
	}
	return res, nil
}

func (s *AttemptService) findQuestion(ctx context.Context, examID, questionID uuid.UUID) (*model.Question, error) {
	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	for i := range questions {
		if questions[i].ID == questionID {
			return &questions[i], nil
		}
	}
	return nil, ErrNotFound
}

// validateAnswerShape rejects payloads whose shape contradicts the question
// type: multiple choice carries option IDs, everything else carries text.
func validateAnswerShape(q *model.Question, v model.AnswerValue) error {
	if q.Type == model.QuestionTypeMultipleChoice {
		if v.Text != "" {
			return ErrAnswerShape
		}
		for _, id := range v.Choices {
			if !hasOption(q, id) {
				return ErrAnswerShape
			}
		}
		return nil
	}

	if len(v.Choices) > 0 {
		return ErrAnswerShape
	}
	if q.Type == model.QuestionTypeSingleChoice && v.Text != "" && !hasOption(q, v.Text) {
		return ErrAnswerShape
	}
	return nil
}

func hasOption(q *model.Question, id string) bool {
	for _, opt := range q.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
