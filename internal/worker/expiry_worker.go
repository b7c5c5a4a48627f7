package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skillup/examflow-backend/internal/clock"
	"github.com/skillup/examflow-backend/internal/logger"
	"github.com/skillup/examflow-backend/internal/service"
)

// ExpiryWorker is the safety net behind lazy expiry: it periodically sweeps
// for in-progress attempts whose deadline passed without any client touch
// and finalizes them. Each attempt goes through the same race-safe finish
// path as a live request, so running alongside concurrent submits is safe.
type ExpiryWorker struct {
	attempts *service.AttemptService
	sweep    ExpirySweeper
	interval time.Duration
	batch    int
	clk      clock.Clock
	log      zerolog.Logger
}

// ExpirySweeper lists overdue attempt IDs. Satisfied by AttemptStore.
type ExpirySweeper interface {
	ListOverdueInProgress(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(
	attempts *service.AttemptService,
	sweep ExpirySweeper,
	interval time.Duration,
	batch int,
	clk clock.Clock,
	log zerolog.Logger,
) *ExpiryWorker {
	return &ExpiryWorker{
		attempts: attempts,
		sweep:    sweep,
		interval: interval,
		batch:    batch,
		clk:      clk,
		log:      logger.Component(log, "expiry_worker"),
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("ExpiryWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopping")
			return
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *ExpiryWorker) sweepOnce(ctx context.Context) {
	ids, err := w.sweep.ListOverdueInProgress(ctx, w.clk.Now(), w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("overdue listing failed")
		return
	}
	if len(ids) == 0 {
		return
	}

	expired := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if err := w.attempts.ExpireAttempt(ctx, id); err != nil {
			w.log.Error().Err(err).Str("attempt_id", id.String()).Msg("expiry failed")
			continue
		}
		expired++
	}

	w.log.Info().Int("expired", expired).Int("found", len(ids)).Msg("expiry sweep complete")
}
