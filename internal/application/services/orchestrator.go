package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/propertyops/rentledger/internal/application"
	"github.com/propertyops/rentledger/internal/latefee"
)

// Orchestrator runs the daily processing sequence: status pass, late fee
// pass, communication pass, summary. Stages are deliberately best-effort
// sequential, not a transactional pipeline: a late fee failure must not
// block reminder delivery, and vice versa.
type Orchestrator struct {
	status *StatusService
	fees   *LateFeeService
	comms  *NotificationService
	rules  []latefee.Rule
	logger *slog.Logger
	now    func() time.Time
}

func NewOrchestrator(
	status *StatusService,
	fees *LateFeeService,
	comms *NotificationService,
	rules []latefee.Rule,
	logger *slog.Logger,
	now func() time.Time,
) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		status: status,
		fees:   fees,
		comms:  comms,
		rules:  rules,
		logger: logger,
		now:    now,
	}
}

// RunDailyProcessing executes all stages and always returns a result, never
// an error: callers inspect OverallSuccess and CriticalErrors. A stage that
// panics or fails wholesale is recorded as a critical error and the next
// stage still runs.
func (o *Orchestrator) RunDailyProcessing(ctx context.Context) *application.DailyProcessingResult {
	started := o.now()
	result := &application.DailyProcessingResult{
		StartedAt:      started.UTC(),
		CriticalErrors: []string{},
	}

	o.logger.Info("daily processing started")

	o.runStage(result, "status", func() error {
		result.Status = o.status.Run(ctx)
		return nil
	})

	o.runStage(result, "late-fees", func() error {
		feeResult, err := o.fees.ProcessLateFees(ctx, o.rules, false)
		if err != nil {
			return err
		}
		result.LateFees = feeResult
		return nil
	})

	o.runStage(result, "communications", func() error {
		result.Communications = o.comms.Run(ctx)
		return nil
	})

	result.Duration = o.now().Sub(started)
	result.OverallSuccess = len(result.CriticalErrors) == 0

	o.logger.Info("daily processing finished",
		"duration", result.Duration,
		"overall_success", result.OverallSuccess,
		"critical_errors", len(result.CriticalErrors))
	return result
}

func (o *Orchestrator) runStage(result *application.DailyProcessingResult, name string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			stageErr := application.NewCriticalStageError(name, rec)
			result.CriticalErrors = append(result.CriticalErrors, stageErr.Error())
			o.logger.Error("stage panicked", "stage", name, "panic", rec)
		}
	}()

	if err := fn(); err != nil {
		stageErr := application.NewCriticalStageError(name, err)
		result.CriticalErrors = append(result.CriticalErrors, stageErr.Error())
		o.logger.Error("stage failed", "stage", name, "error", err)
	}
}
