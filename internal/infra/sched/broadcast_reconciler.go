package sched

import (
	"context"
	"time"

	"telegram-bot-platform/internal/usecase"

	"github.com/rs/zerolog"
)

// BroadcastReconciler detects broadcast jobs left in flight by a crashed
// execution and resets them so an administrator can re-trigger. Without this
// pass a job that died between tallying and persisting would stay stuck
// forever.
type BroadcastReconciler struct {
	interval     time.Duration
	staleTimeout time.Duration
	broadcastUC  usecase.BroadcastUseCase
	log          *zerolog.Logger
}

func NewBroadcastReconciler(interval, staleTimeout time.Duration, broadcastUC usecase.BroadcastUseCase, logger *zerolog.Logger) *BroadcastReconciler {
	compLog := logger.With().Str("component", "BroadcastReconciler").Logger()
	return &BroadcastReconciler{
		interval:     interval,
		staleTimeout: staleTimeout,
		broadcastUC:  broadcastUC,
		log:          &compLog,
	}
}

func (w *BroadcastReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("stale_timeout", w.staleTimeout).Msg("Starting broadcast reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping broadcast reconciler")
			return ctx.Err()
		case <-ticker.C:
			w.runReconcile(ctx)
		}
	}
}

func (w *BroadcastReconciler) runReconcile(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := w.broadcastUC.ReconcileStale(runCtx, w.staleTimeout)
	if err != nil {
		w.log.Error().Err(err).Msg("broadcast reconciliation failed")
		return
	}
	if n > 0 {
		w.log.Warn().Int("count", n).Msg("stale broadcasts reset to pending")
	}
}
