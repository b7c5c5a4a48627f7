package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/skillup/examflow-backend/internal/model"
	"github.com/skillup/examflow-backend/internal/repository"
)

// In-memory stores mirroring the repositories' conditional-write semantics,
// so the services' race arbitration paths are exercised without PostgreSQL.

type fakeExamStore struct {
	mu    sync.Mutex
	exams map[uuid.UUID]model.Exam
}

func newFakeExamStore() *fakeExamStore {
	return &fakeExamStore{exams: make(map[uuid.UUID]model.Exam)}
}

func (s *fakeExamStore) put(e model.Exam) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exams[e.ID] = e
}

func (s *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}

func (s *fakeExamStore) ListOpen(_ context.Context) ([]model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Exam
	for _, e := range s.exams {
		if e.AcceptsAttempts() {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeQuestionStore struct {
	byExam map[uuid.UUID][]model.Question
}

func newFakeQuestionStore() *fakeQuestionStore {
	return &fakeQuestionStore{byExam: make(map[uuid.UUID][]model.Question)}
}

func (s *fakeQuestionStore) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	return s.byExam[examID], nil
}

type fakeAttemptStore struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]model.ExamAttempt
	answers  map[uuid.UUID]map[uuid.UUID]model.UserAnswer
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{
		attempts: make(map[uuid.UUID]model.ExamAttempt),
		answers:  make(map[uuid.UUID]map[uuid.UUID]model.UserAnswer),
	}
}

func (s *fakeAttemptStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

func (s *fakeAttemptStore) GetInProgress(_ context.Context, examID uuid.UUID, userID int) (*model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.ExamID == examID && a.UserID == userID && a.Status == model.AttemptStatusInProgress {
			found := a
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeAttemptStore) CountCompleted(_ context.Context, examID uuid.UUID, userID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.attempts {
		if a.ExamID == examID && a.UserID == userID && a.Status == model.AttemptStatusCompleted {
			n++
		}
	}
	return n, nil
}

func (s *fakeAttemptStore) ListByUser(_ context.Context, userID int) ([]model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ExamAttempt
	for _, a := range s.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

// Create mimics the partial unique index: a second in-progress attempt for
// the same (exam, user) is rejected with pgx.ErrNoRows.
func (s *fakeAttemptStore) Create(_ context.Context, a *model.ExamAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.attempts {
		if existing.ExamID == a.ExamID && existing.UserID == a.UserID && existing.Status == model.AttemptStatusInProgress {
			return pgx.ErrNoRows
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.attempts[a.ID] = *a
	return nil
}

func (s *fakeAttemptStore) UpsertAnswer(_ context.Context, attemptID uuid.UUID, ans *model.UserAnswer, questionIndex *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answers[attemptID] == nil {
		s.answers[attemptID] = make(map[uuid.UUID]model.UserAnswer)
	}
	stored := *ans
	stored.IsCorrect = nil
	stored.Score = nil
	stored.PendingManual = false
	s.answers[attemptID][ans.QuestionID] = stored
	if questionIndex != nil {
		a := s.attempts[attemptID]
		a.CurrentQuestionIndex = *questionIndex
		s.attempts[attemptID] = a
	}
	return nil
}

func (s *fakeAttemptStore) ListAnswers(_ context.Context, attemptID uuid.UUID) (map[uuid.UUID]model.UserAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]model.UserAnswer, len(s.answers[attemptID]))
	for k, v := range s.answers[attemptID] {
		out[k] = v
	}
	return out, nil
}

func (s *fakeAttemptStore) SetFlags(_ context.Context, attemptID uuid.UUID, flags []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok || a.Status != model.AttemptStatusInProgress {
		return nil
	}
	a.FlaggedQuestions = append([]uuid.UUID(nil), flags...)
	s.attempts[attemptID] = a
	return nil
}

// FinishGraded mimics the conditional UPDATE: only an in-progress row
// transitions, and exactly one caller wins.
func (s *fakeAttemptStore) FinishGraded(
	_ context.Context,
	attemptID uuid.UUID,
	via model.FinishReason,
	submitTime time.Time,
	timeSpentSeconds int64,
	totalScore, maxScore, passingScore float64,
	isPassed, requiresManualReview bool,
	graded []repository.GradedAnswer,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok || a.Status != model.AttemptStatusInProgress {
		return false, nil
	}
	a.Status = model.AttemptStatusCompleted
	a.FinishedVia = &via
	a.SubmitTime = &submitTime
	a.TimeSpentSeconds = &timeSpentSeconds
	a.TotalScore = &totalScore
	a.MaxScore = &maxScore
	a.PassingScore = &passingScore
	a.IsPassed = &isPassed
	a.RequiresManualReview = requiresManualReview
	s.attempts[attemptID] = a

	for _, g := range graded {
		ans, ok := s.answers[attemptID][g.QuestionID]
		if !ok {
			continue
		}
		correct := g.IsCorrect
		score := g.Score
		ans.IsCorrect = &correct
		ans.Score = &score
		ans.PendingManual = g.PendingManual
		s.answers[attemptID][g.QuestionID] = ans
	}
	return true, nil
}

func (s *fakeAttemptStore) ApplyManualGrades(_ context.Context, attemptID uuid.UUID, grades map[uuid.UUID]float64, totalScore float64, isPassed bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok || a.Status != model.AttemptStatusCompleted || !a.RequiresManualReview {
		return false, nil
	}
	a.TotalScore = &totalScore
	a.IsPassed = &isPassed
	a.RequiresManualReview = false
	s.attempts[attemptID] = a

	for qid, score := range grades {
		ans, ok := s.answers[attemptID][qid]
		if !ok || !ans.PendingManual {
			continue
		}
		correct := score > 0
		sc := score
		ans.Score = &sc
		ans.IsCorrect = &correct
		ans.PendingManual = false
		s.answers[attemptID][qid] = ans
	}
	return true, nil
}

func (s *fakeAttemptStore) ListOverdueInProgress(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, a := range s.attempts {
		if a.Status == model.AttemptStatusInProgress && a.EndTime.Before(now) {
			ids = append(ids, id)
			if len(ids) >= limit {
				break
			}
		}
	}
	return ids, nil
}

func (s *fakeAttemptStore) ListResultsByExam(_ context.Context, examID uuid.UUID, page, perPage int) ([]model.ExamAttempt, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ExamAttempt
	for _, a := range s.attempts {
		if a.ExamID == examID && a.Status == model.AttemptStatusCompleted {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

type fakeCertificateStore struct {
	mu        sync.Mutex
	byAttempt map[uuid.UUID]model.Certificate
}

func newFakeCertificateStore() *fakeCertificateStore {
	return &fakeCertificateStore{byAttempt: make(map[uuid.UUID]model.Certificate)}
}

// Create mimics ON CONFLICT (attempt_id) DO NOTHING plus read-back.
func (s *fakeCertificateStore) Create(_ context.Context, c *model.Certificate) (*model.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byAttempt[c.AttemptID]; ok {
		return &existing, nil
	}
	c.ID = uuid.New()
	s.byAttempt[c.AttemptID] = *c
	return c, nil
}

func (s *fakeCertificateStore) GetByAttempt(_ context.Context, attemptID uuid.UUID) (*model.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byAttempt[attemptID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

type regKey struct {
	examID uuid.UUID
	userID int
}

type fakeRegistrationStore struct {
	mu   sync.Mutex
	regs map[regKey]model.ExamRegistration
}

func newFakeRegistrationStore() *fakeRegistrationStore {
	return &fakeRegistrationStore{regs: make(map[regKey]model.ExamRegistration)}
}

func (s *fakeRegistrationStore) put(examID uuid.UUID, userID int, status model.RegistrationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[regKey{examID, userID}] = model.ExamRegistration{
		ID: uuid.New(), ExamID: examID, UserID: userID, Status: status,
	}
}

func (s *fakeRegistrationStore) Get(_ context.Context, examID uuid.UUID, userID int) (*model.ExamRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[regKey{examID, userID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &r, nil
}

// Request mimics the conditional upsert: pending and approved rows decline
// the write with pgx.ErrNoRows, and a rejected row is reset in place so it
// keeps its id.
func (s *fakeRegistrationStore) Request(_ context.Context, examID uuid.UUID, userID int, now time.Time) (*model.ExamRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := regKey{examID, userID}
	r := model.ExamRegistration{
		ID: uuid.New(), ExamID: examID, UserID: userID,
		Status: model.RegistrationPending, RequestedAt: now,
	}
	if existing, ok := s.regs[key]; ok {
		if existing.Status != model.RegistrationRejected {
			return nil, pgx.ErrNoRows
		}
		r.ID = existing.ID
	}
	s.regs[key] = r
	return &r, nil
}

func (s *fakeRegistrationStore) Decide(_ context.Context, examID uuid.UUID, userID int, status model.RegistrationStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := regKey{examID, userID}
	r, ok := s.regs[key]
	if !ok {
		return pgx.ErrNoRows
	}
	r.Status = status
	r.DecidedAt = &now
	s.regs[key] = r
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	issued []*model.Certificate
}

func (n *fakeNotifier) CertificateIssued(_ context.Context, cert *model.Certificate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.issued = append(n.issued, cert)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.issued)
}

type fakeViolationSink struct {
	mu        sync.Mutex
	enqueued  []*ViolationEvent
	published []*ViolationEvent
}

func (s *fakeViolationSink) Enqueue(_ context.Context, ev *ViolationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueued = append(s.enqueued, ev)
	return nil
}

func (s *fakeViolationSink) Publish(_ context.Context, ev *ViolationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, ev)
	return nil
}
