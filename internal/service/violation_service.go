package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skillup/examflow-backend/internal/clock"
	"github.com/skillup/examflow-backend/internal/config"
	"github.com/skillup/examflow-backend/internal/logger"
	"github.com/skillup/examflow-backend/internal/model"
)

// ViolationEvent is the wire form of an anti-cheat signal: queued for the
// persistence worker and published to the exam's live monitor channel.
type ViolationEvent struct {
	AttemptID uuid.UUID               `json:"attempt_id"`
	ExamID    uuid.UUID               `json:"exam_id"`
	UserID    int                     `json:"user_id"`
	Type      model.ViolationType     `json:"type"`
	Severity  model.ViolationSeverity `json:"severity"`
	Evidence  json.RawMessage         `json:"evidence,omitempty"`
	Timestamp int64                   `json:"timestamp"`
}

// ViolationSink carries events to the persistence queue and the monitor feed.
type ViolationSink interface {
	Enqueue(ctx context.Context, ev *ViolationEvent) error
	Publish(ctx context.Context, ev *ViolationEvent) error
}

type redisViolationSink struct {
	rdb *redis.Client
}

// NewRedisViolationSink creates a ViolationSink backed by Redis.
func NewRedisViolationSink(rdb *redis.Client) ViolationSink {
	return &redisViolationSink{rdb: rdb}
}

func (s *redisViolationSink) Enqueue(ctx context.Context, ev *ViolationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err()
}

func (s *redisViolationSink) Publish(ctx context.Context, ev *ViolationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(ev.ExamID), payload).Err()
}

// ViolationService appends anti-cheat events to in-progress attempts.
// Recording never alters scores and never aborts the caller's primary
// operation: reports racing a submission are dropped with a log line, not an
// error.
type ViolationService struct {
	attempts   AttemptStore
	violations ViolationStore
	cache      AttemptCache
	sink       ViolationSink
	clk        clock.Clock
	log        zerolog.Logger
}

// NewViolationService creates a new ViolationService.
func NewViolationService(
	attempts AttemptStore,
	violations ViolationStore,
	cache AttemptCache,
	sink ViolationSink,
	clk clock.Clock,
	log zerolog.Logger,
) *ViolationService {
	return &ViolationService{
		attempts:   attempts,
		violations: violations,
		cache:      cache,
		sink:       sink,
		clk:        clk,
		log:        logger.Component(log, "violation_service"),
	}
}

// Record accepts an anti-cheat event for an in-progress attempt. The hot
// path answers from the attempt cache; a miss falls back to the store and
// re-primes the cache.
func (s *ViolationService) Record(ctx context.Context, attemptID uuid.UUID, userID int, req *model.ReportViolationRequest) error {
	live, ok := s.cache.Lookup(ctx, attemptID)
	if !ok {
		a, err := s.attempts.GetByID(ctx, attemptID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("get attempt: %w", err)
		}
		if a.UserID != userID {
			return ErrForbidden
		}
		if a.Status != model.AttemptStatusInProgress {
			s.log.Debug().
				Str("attempt_id", attemptID.String()).
				Str("type", string(req.Type)).
				Msg("violation for terminal attempt dropped")
			return nil
		}
		s.cache.Prime(ctx, a)
		live = &LiveAttempt{ExamID: a.ExamID, UserID: a.UserID, EndTime: a.EndTime}
	}

	if live.UserID != userID {
		return ErrForbidden
	}

	now := s.clk.Now()
	if now.After(live.EndTime) {
		// Racing the deadline; the attempt is closed for all purposes.
		s.log.Debug().
			Str("attempt_id", attemptID.String()).
			Str("type", string(req.Type)).
			Msg("violation past deadline dropped")
		return nil
	}

	ev := &ViolationEvent{
		AttemptID: attemptID,
		ExamID:    live.ExamID,
		UserID:    userID,
		Type:      req.Type,
		Severity:  req.Severity,
		Evidence:  req.Evidence,
		Timestamp: now.Unix(),
	}

	if err := s.sink.Enqueue(ctx, ev); err != nil {
		// Violation reporting must not abort the taker's session.
		s.log.Error().Err(err).
			Str("attempt_id", attemptID.String()).
			Msg("enqueue violation failed, event lost")
		return nil
	}

	if err := s.sink.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Msg("monitor publish failed")
	}

	return nil
}

// ListByExam retrieves an exam's violations for admin review.
func (s *ViolationService) ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]model.Violation, int64, error) {
	return s.violations.ListByExam(ctx, examID, page, perPage)
}

// ListByAttempt retrieves one attempt's violations in time order.
func (s *ViolationService) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Violation, error) {
	return s.violations.ListByAttempt(ctx, attemptID)
}
