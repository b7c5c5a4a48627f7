package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skillup/examflow-backend/internal/config"
	"github.com/skillup/examflow-backend/internal/logger"
	"github.com/skillup/examflow-backend/internal/model"
)

// LiveAttempt is the cached hot view of an in-progress attempt: just enough
// to gate high-frequency operations (violation reports, deadline checks)
// without a database read. The database row stays authoritative; a cache
// miss always falls back to the store.
type LiveAttempt struct {
	ExamID  uuid.UUID
	UserID  int
	EndTime time.Time
}

// AttemptCache caches in-progress attempts in Redis. All operations are best
// effort.
type AttemptCache interface {
	Prime(ctx context.Context, a *model.ExamAttempt)
	Lookup(ctx context.Context, attemptID uuid.UUID) (*LiveAttempt, bool)
	Clear(ctx context.Context, attemptID uuid.UUID)
}

// cacheGrace keeps entries alive a little past the deadline so the terminal
// transition can still be answered from cache.
const cacheGrace = time.Hour

type redisAttemptCache struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisAttemptCache creates an AttemptCache backed by Redis.
func NewRedisAttemptCache(rdb *redis.Client, log zerolog.Logger) AttemptCache {
	return &redisAttemptCache{
		rdb: rdb,
		log: logger.Component(log, "attempt_cache"),
	}
}

func (c *redisAttemptCache) Prime(ctx context.Context, a *model.ExamAttempt) {
	key := config.CacheKey.AttemptDeadlineKey(a.ID)
	fields := map[string]interface{}{
		"exam_id":  a.ExamID.String(),
		"user_id":  a.UserID,
		"end_unix": a.EndTime.Unix(),
	}
	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.ExpireAt(ctx, key, a.EndTime.Add(cacheGrace))
	if _, err := pipe.Exec(ctx); err != nil {
		// Cache priming failures never fail the request.
		c.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("prime failed")
	}
}

func (c *redisAttemptCache) Lookup(ctx context.Context, attemptID uuid.UUID) (*LiveAttempt, bool) {
	fields, err := c.rdb.HGetAll(ctx, config.CacheKey.AttemptDeadlineKey(attemptID)).Result()
	if err != nil || len(fields) == 0 {
		return nil, false
	}

	examID, err := uuid.Parse(fields["exam_id"])
	if err != nil {
		return nil, false
	}
	userID, err := strconv.Atoi(fields["user_id"])
	if err != nil {
		return nil, false
	}
	endUnix, err := strconv.ParseInt(fields["end_unix"], 10, 64)
	if err != nil {
		return nil, false
	}

	return &LiveAttempt{
		ExamID:  examID,
		UserID:  userID,
		EndTime: time.Unix(endUnix, 0),
	}, true
}

func (c *redisAttemptCache) Clear(ctx context.Context, attemptID uuid.UUID) {
	if err := c.rdb.Del(ctx, config.CacheKey.AttemptDeadlineKey(attemptID)).Err(); err != nil {
		c.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("clear failed")
	}
}

// NoopAttemptCache disables caching; every lookup falls through to the store.
type NoopAttemptCache struct{}

func (NoopAttemptCache) Prime(context.Context, *model.ExamAttempt) {}

func (NoopAttemptCache) Lookup(context.Context, uuid.UUID) (*LiveAttempt, bool) {
	return nil, false
}

func (NoopAttemptCache) Clear(context.Context, uuid.UUID) {}
