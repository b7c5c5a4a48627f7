package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AttemptDeadlineKey returns the cache key holding an attempt's end time (unix).
func (r *CacheKeyStruct) AttemptDeadlineKey(attemptID uuid.UUID) string {
	return fmt.Sprintf("attempt:%s:deadline", attemptID)
}

// AttemptStatusKey returns the cache key holding an attempt's last-known status.
func (r *CacheKeyStruct) AttemptStatusKey(attemptID uuid.UUID) string {
	return fmt.Sprintf("attempt:%s:status", attemptID)
}

// UserActiveAttemptKey returns the cache key for a user's in-progress attempt
// on an exam.
func (r *CacheKeyStruct) UserActiveAttemptKey(examID uuid.UUID, userID int) string {
	return fmt.Sprintf("user:%d:exam:%s:active_attempt", userID, examID)
}

// ExamMonitorChannel returns the Redis PubSub channel for an exam's live
// violation feed.
func (r *CacheKeyStruct) ExamMonitorChannel(examID uuid.UUID) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

var CacheKey = NewCacheKeyStruct()
