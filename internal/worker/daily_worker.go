// Package worker holds the in-process daily trigger. Production deployments
// usually fire the run through the admin endpoint from an external scheduler;
// this worker covers standalone installs.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/propertyops/rentledger/internal/application/services"
	"github.com/propertyops/rentledger/internal/config"
)

type DailyWorker struct {
	orchestrator *services.Orchestrator
	runHourUTC   int
	tickInterval time.Duration
	logger       *slog.Logger
	now          func() time.Time

	lastRunDay string
}

func NewDailyWorker(
	orchestrator *services.Orchestrator,
	cfg config.SchedulerConfig,
	logger *slog.Logger,
) *DailyWorker {
	return &DailyWorker{
		orchestrator: orchestrator,
		runHourUTC:   cfg.RunHourUTC,
		tickInterval: cfg.TickInterval,
		logger:       logger,
		now:          time.Now,
	}
}

// Start blocks until ctx is cancelled, firing the daily run once per UTC day
// at or after the configured hour. A missed tick (process down at the run
// hour) is caught up on the next tick of the same day.
func (w *DailyWorker) Start(ctx context.Context) {
	w.logger.Info("daily worker started",
		"run_hour_utc", w.runHourUTC,
		"tick_interval", w.tickInterval)
	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("daily worker stopping")
			return
		case <-ticker.C:
			w.maybeRun(ctx)
		}
	}
}

func (w *DailyWorker) maybeRun(ctx context.Context) {
	now := w.now().UTC()
	if now.Hour() < w.runHourUTC {
		return
	}

	day := now.Format("2006-01-02")
	if day == w.lastRunDay {
		return
	}
	w.lastRunDay = day

	w.logger.Info("daily processing triggered", "day", day)
	result := w.orchestrator.RunDailyProcessing(ctx)
	w.logger.Info("daily processing finished",
		"day", day,
		"overall_success", result.OverallSuccess,
		"duration", result.Duration,
		"critical_errors", len(result.CriticalErrors))
}
