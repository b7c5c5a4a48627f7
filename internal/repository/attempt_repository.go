package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skillup/examflow-backend/internal/model"
)

// AttemptRepository handles exam attempt data access. All status transitions
// are conditional writes ("... WHERE status = 'IN_PROGRESS'") so concurrent
// finishers race safely: exactly one caller wins, the rest read back the
// already-graded row.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, exam_id, user_id, attempt_number, status, start_time,
	end_time, submit_time, time_spent_seconds, finished_via, current_question_index,
	flagged_questions, total_score, max_score, passing_score, is_passed,
	requires_manual_review`

func scanAttempt(row pgx.Row) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	var flagged []byte
	err := row.Scan(
		&a.ID, &a.ExamID, &a.UserID, &a.AttemptNumber, &a.Status, &a.StartTime,
		&a.EndTime, &a.SubmitTime, &a.TimeSpentSeconds, &a.FinishedVia,
		&a.CurrentQuestionIndex, &flagged, &a.TotalScore, &a.MaxScore,
		&a.PassingScore, &a.IsPassed, &a.RequiresManualReview,
	)
	if err != nil {
		return nil, err
	}
	if len(flagged) > 0 {
		if err := json.Unmarshal(flagged, &a.FlaggedQuestions); err != nil {
			return nil, fmt.Errorf("decode flagged questions: %w", err)
		}
	}
	return a, nil
}

// GetByID retrieves an attempt by its ID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts WHERE id = $1`, id))
}

// GetInProgress retrieves the single in-progress attempt for an exam-user
// pair, if any.
func (r *AttemptRepository) GetInProgress(ctx context.Context, examID uuid.UUID, userID int) (*model.ExamAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts
		 WHERE exam_id = $1 AND user_id = $2 AND status = $3`,
		examID, userID, model.AttemptStatusInProgress))
}

// CountCompleted counts an exam-user pair's terminal attempts. Feeds the
// remaining-attempts eligibility rule.
func (r *AttemptRepository) CountCompleted(ctx context.Context, examID uuid.UUID, userID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts
		 WHERE exam_id = $1 AND user_id = $2 AND status = $3`,
		examID, userID, model.AttemptStatusCompleted,
	).Scan(&n)
	return n, err
}

// ListByUser retrieves all of a user's attempts, newest first. Used for the
// lobby overlay.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID int) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts
		 WHERE user_id = $1
		 ORDER BY start_time DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// Create inserts a new in-progress attempt. The partial unique index on
// (exam_id, user_id) WHERE status = 'IN_PROGRESS' closes the double-start
// race; a losing concurrent insert gets pgx.ErrNoRows from the empty
// RETURNING set.
func (r *AttemptRepository) Create(ctx context.Context, a *model.ExamAttempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (exam_id, user_id, attempt_number, status, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (exam_id, user_id) WHERE status = 'IN_PROGRESS' DO NOTHING
		 RETURNING id`,
		a.ExamID, a.UserID, a.AttemptNumber, model.AttemptStatusInProgress, a.StartTime, a.EndTime,
	).Scan(&a.ID)
}

// UpsertAnswer records or overwrites the answer for one question (last write
// wins, no history) and optionally bumps the attempt's current question index.
func (r *AttemptRepository) UpsertAnswer(ctx context.Context, attemptID uuid.UUID, ans *model.UserAnswer, questionIndex *int) error {
	value, err := json.Marshal(ans.Value)
	if err != nil {
		return fmt.Errorf("encode answer value: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, value, time_spent_seconds, submitted_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET value = EXCLUDED.value,
		     time_spent_seconds = EXCLUDED.time_spent_seconds,
		     submitted_at = EXCLUDED.submitted_at,
		     is_correct = NULL,
		     score = NULL,
		     pending_manual = FALSE`,
		attemptID, ans.QuestionID, value, ans.TimeSpentSeconds, ans.SubmittedAt,
	)
	if err != nil {
		return err
	}

	if questionIndex != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE exam_attempts SET current_question_index = $1 WHERE id = $2`,
			*questionIndex, attemptID,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListAnswers retrieves all recorded answers of an attempt keyed by question.
func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID uuid.UUID) (map[uuid.UUID]model.UserAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, value, is_correct, score, pending_manual, time_spent_seconds, submitted_at
		 FROM attempt_answers
		 WHERE attempt_id = $1`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := make(map[uuid.UUID]model.UserAnswer)
	for rows.Next() {
		var a model.UserAnswer
		var value []byte
		if err := rows.Scan(&a.QuestionID, &value, &a.IsCorrect, &a.Score,
			&a.PendingManual, &a.TimeSpentSeconds, &a.SubmittedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(value, &a.Value); err != nil {
			return nil, fmt.Errorf("decode answer value: %w", err)
		}
		answers[a.QuestionID] = a
	}
	return answers, rows.Err()
}

// SetFlags replaces the attempt's flagged-question set.
func (r *AttemptRepository) SetFlags(ctx context.Context, attemptID uuid.UUID, flags []uuid.UUID) error {
	if flags == nil {
		flags = []uuid.UUID{}
	}
	encoded, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("encode flags: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE exam_attempts SET flagged_questions = $1
		 WHERE id = $2 AND status = $3`,
		encoded, attemptID, model.AttemptStatusInProgress)
	return err
}

// GradedAnswer carries one question's grading outcome for persistence.
type GradedAnswer struct {
	QuestionID    uuid.UUID
	IsCorrect     bool
	Score         float64
	PendingManual bool
}

// FinishGraded atomically closes an in-progress attempt and persists the
// grading outcome. Returns false without mutating anything when another
// caller already closed the attempt.
func (r *AttemptRepository) FinishGraded(
	ctx context.Context,
	attemptID uuid.UUID,
	via model.FinishReason,
	submitTime time.Time,
	timeSpentSeconds int64,
	totalScore, maxScore, passingScore float64,
	isPassed, requiresManualReview bool,
	graded []GradedAnswer,
) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE exam_attempts
		 SET status = $1, finished_via = $2, submit_time = $3, time_spent_seconds = $4,
		     total_score = $5, max_score = $6, passing_score = $7, is_passed = $8,
		     requires_manual_review = $9
		 WHERE id = $10 AND status = $11`,
		model.AttemptStatusCompleted, via, submitTime, timeSpentSeconds,
		totalScore, maxScore, passingScore, isPassed, requiresManualReview,
		attemptID, model.AttemptStatusInProgress,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		// Lost the race; the winner already graded it.
		return false, nil
	}

	if len(graded) > 0 {
		qids := make([]uuid.UUID, len(graded))
		corrects := make([]bool, len(graded))
		scores := make([]float64, len(graded))
		pendings := make([]bool, len(graded))
		for i, g := range graded {
			qids[i] = g.QuestionID
			corrects[i] = g.IsCorrect
			scores[i] = g.Score
			pendings[i] = g.PendingManual
		}

		_, err = tx.Exec(ctx,
			`UPDATE attempt_answers AS a
			 SET is_correct = t.is_correct,
			     score = t.score,
			     pending_manual = t.pending_manual
			 FROM (
				 SELECT u.question_id, u.is_correct, u.score, u.pending_manual
				 FROM UNNEST($2::uuid[], $3::bool[], $4::float8[], $5::bool[])
				      AS u (question_id, is_correct, score, pending_manual)
			 ) AS t
			 WHERE a.attempt_id = $1 AND a.question_id = t.question_id`,
			attemptID, qids, corrects, scores, pendings,
		)
		if err != nil {
			return false, err
		}
	}

	return true, tx.Commit(ctx)
}

// ApplyManualGrades resolves pending short-answer scores and finalizes the
// attempt's pass verdict. Conditional on the attempt still awaiting review so
// a repeated call cannot double-apply.
func (r *AttemptRepository) ApplyManualGrades(
	ctx context.Context,
	attemptID uuid.UUID,
	grades map[uuid.UUID]float64,
	totalScore float64,
	isPassed bool,
) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE exam_attempts
		 SET total_score = $1, is_passed = $2, requires_manual_review = FALSE
		 WHERE id = $3 AND status = $4 AND requires_manual_review = TRUE`,
		totalScore, isPassed, attemptID, model.AttemptStatusCompleted,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	for qid, score := range grades {
		if _, err := tx.Exec(ctx,
			`UPDATE attempt_answers
			 SET score = $1, is_correct = $2, pending_manual = FALSE
			 WHERE attempt_id = $3 AND question_id = $4 AND pending_manual = TRUE`,
			score, score > 0, attemptID, qid,
		); err != nil {
			return false, err
		}
	}

	return true, tx.Commit(ctx)
}

// ListOverdueInProgress retrieves attempts whose deadline passed but that
// nobody has touched since. Feeds the expiry sweeper.
func (r *AttemptRepository) ListOverdueInProgress(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM exam_attempts
		 WHERE status = $1 AND end_time < $2
		 ORDER BY end_time ASC
		 LIMIT $3`,
		model.AttemptStatusInProgress, now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListResultsByExam retrieves completed attempts of an exam with pagination.
func (r *AttemptRepository) ListResultsByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]model.ExamAttempt, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts WHERE exam_id = $1 AND status = $2`,
		examID, model.AttemptStatusCompleted,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts
		 WHERE exam_id = $1 AND status = $2
		 ORDER BY submit_time DESC
		 LIMIT $3 OFFSET $4`,
		examID, model.AttemptStatusCompleted, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []model.ExamAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, *a)
	}
	return results, total, rows.Err()
}
