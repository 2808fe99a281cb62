package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"prizewheel/internal/infra/metrics"
	"prizewheel/internal/usecase"
)

// StatsWorker periodically refreshes the per-state code gauges from the
// store. Read-only: retention of long-expired codes stays with external
// maintenance jobs.
type StatsWorker struct {
	interval time.Duration
	uc       *usecase.RedemptionUseCase
	log      *zerolog.Logger
}

func NewStatsWorker(interval time.Duration, uc *usecase.RedemptionUseCase, logger *zerolog.Logger) *StatsWorker {
	wLog := logger.With().Str("component", "StatsWorker").Logger()
	return &StatsWorker{
		interval: interval,
		uc:       uc,
		log:      &wLog,
	}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting stats worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stats worker")
			return ctx.Err()
		case <-ticker.C:
			counts, err := w.uc.Stats(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("stats worker error")
				continue
			}
			metrics.SetCodesState(counts.Active, counts.Redeemed, counts.Expired)
		}
	}
}
