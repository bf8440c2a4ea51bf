package sched

import (
	"context"
	"time"

	"telegram-bot-platform/internal/usecase"

	"github.com/rs/zerolog"
)

// CleanupWorker enforces the interaction retention window.
type CleanupWorker struct {
	interval  time.Duration
	retention time.Duration
	records   usecase.InteractionUseCase
	log       *zerolog.Logger
}

func NewCleanupWorker(interval, retention time.Duration, records usecase.InteractionUseCase, logger *zerolog.Logger) *CleanupWorker {
	compLog := logger.With().Str("component", "CleanupWorker").Logger()
	return &CleanupWorker{
		interval:  interval,
		retention: retention,
		records:   records,
		log:       &compLog,
	}
}

func (w *CleanupWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("retention", w.retention).Msg("Starting cleanup worker")
	// Run once on startup, then on every tick
	w.runCleanup(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping cleanup worker")
			return ctx.Err()
		case <-ticker.C:
			w.runCleanup(ctx)
		}
	}
}

func (w *CleanupWorker) runCleanup(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	deleted, err := w.records.PurgeOlderThan(runCtx, w.retention)
	if err != nil {
		w.log.Error().Err(err).Msg("interaction cleanup failed")
		return
	}
	if deleted > 0 {
		w.log.Info().Int64("count", deleted).Msg("old interactions removed")
	}
}
