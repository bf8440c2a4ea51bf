package sched

import (
	"context"
	"time"

	"telegram-bot-platform/internal/usecase"

	"github.com/rs/zerolog"
)

// ReportWorker periodically generates the daily analytics report.
type ReportWorker struct {
	interval time.Duration
	statsUC  usecase.StatsUseCase
	log      *zerolog.Logger
}

func NewReportWorker(interval time.Duration, statsUC usecase.StatsUseCase, logger *zerolog.Logger) *ReportWorker {
	compLog := logger.With().Str("component", "ReportWorker").Logger()
	return &ReportWorker{
		interval: interval,
		statsUC:  statsUC,
		log:      &compLog,
	}
}

func (w *ReportWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting report worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping report worker")
			return ctx.Err()
		case <-ticker.C:
			w.runReport(ctx)
		}
	}
}

func (w *ReportWorker) runReport(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	report, err := w.statsUC.DailyReport(runCtx)
	if err != nil {
		w.log.Error().Err(err).Msg("daily report failed")
		return
	}
	w.log.Info().
		Int("new_entries", report.NewEntriesToday).
		Int("total_entries", report.TotalEntries).
		Int("active_today", report.ActiveToday).
		Int("interactions_today", report.InteractionsToday).
		Float64("growth_rate_pct", report.GrowthRatePct).
		Msg("daily report")
}
