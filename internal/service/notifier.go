package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skillup/examflow-backend/internal/logger"
	"github.com/skillup/examflow-backend/internal/model"
)

// Notifier informs the notification collaborator about certificate issuance.
// Failures are reported but must never roll back grading or issuance.
type Notifier interface {
	CertificateIssued(ctx context.Context, cert *model.Certificate) error
}

// NotificationChannel is the Redis PubSub channel the notification service
// subscribes to.
const NotificationChannel = "notifications:certificates"

type redisNotifier struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisNotifier creates a Notifier publishing over Redis PubSub.
func NewRedisNotifier(rdb *redis.Client, log zerolog.Logger) Notifier {
	return &redisNotifier{
		rdb: rdb,
		log: logger.Component(log, "notifier"),
	}
}

func (n *redisNotifier) CertificateIssued(ctx context.Context, cert *model.Certificate) error {
	payload, err := json.Marshal(cert)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, NotificationChannel, payload).Err()
}

// NoopNotifier discards notifications.
type NoopNotifier struct{}

func (NoopNotifier) CertificateIssued(context.Context, *model.Certificate) error { return nil }
