package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propertyops/rentledger/internal/application/services"
	"github.com/propertyops/rentledger/internal/config"
	"github.com/propertyops/rentledger/internal/domain"
	"github.com/propertyops/rentledger/internal/infrastructure/notify"
	"github.com/propertyops/rentledger/internal/infrastructure/persistence/postgres"
	"github.com/propertyops/rentledger/internal/interfaces/rest"
	"github.com/propertyops/rentledger/internal/interfaces/rest/middleware"
	"github.com/propertyops/rentledger/internal/latefee"
	"github.com/propertyops/rentledger/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting rentledger service",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	paymentRepo := postgres.NewPaymentRepository(db)

	statusCalc, err := domain.NewStatusCalculator(domain.StatusThresholds{
		GracePeriodDays:              cfg.Thresholds.GracePeriodDays,
		LateFeeThresholdDays:         cfg.Thresholds.LateFeeThresholdDays,
		SeverelyOverdueThresholdDays: cfg.Thresholds.SeverelyOverdueThresholdDays,
		DueSoonThresholdDays:         cfg.Thresholds.DueSoonThresholdDays,
		UpcomingThresholdDays:        cfg.Thresholds.UpcomingThresholdDays,
	}, nil)
	if err != nil {
		logger.Error("invalid status thresholds", "error", err)
		os.Exit(1)
	}

	defaultRules, err := defaultFeeRules(cfg.LateFee)
	if err != nil {
		logger.Error("invalid default late fee rule", "error", err)
		os.Exit(1)
	}

	notifyClient := notify.NewHTTPClient(cfg.Notify)
	sender := notify.NewRetrySender(notifyClient, cfg.Retry)

	table := domain.DefaultTransitionTable(nil)
	mutator := services.NewPaymentMutator(logger, nil)
	batch := services.NewBatchProcessor(paymentRepo, cfg.Batch.ChunkSize, logger)

	statusService := services.NewStatusService(statusCalc, table, mutator, notifyClient, batch, logger)
	feeService := services.NewLateFeeService(
		latefee.NewCalculator(),
		statusCalc,
		table,
		mutator,
		paymentRepo,
		batch,
		logger,
		nil,
	)
	commsService := services.NewNotificationService(
		statusCalc,
		mutator,
		sender,
		batch,
		services.ReminderSchedule{
			UpcomingDays: cfg.Reminders.UpcomingDays,
			OverdueDays:  cfg.Reminders.OverdueDays,
			Channels:     cfg.Reminders.Channels,
		},
		logger,
		nil,
	)

	orchestrator := services.NewOrchestrator(statusService, feeService, commsService, defaultRules, logger, nil)

	h := rest.NewHandlers(orchestrator, feeService, paymentRepo, defaultRules, logger)

	mux := http.NewServeMux()
	h.Register(mux)

	handler := middleware.Recovery(logger)(http.Handler(mux))
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.WriteTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if cfg.Scheduler.Enabled {
		dailyWorker := worker.NewDailyWorker(orchestrator, cfg.Scheduler, logger)
		go dailyWorker.Start(workerCtx)
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

// defaultFeeRules builds the fallback rule set used when a request carries
// no inline rules and a payment has no embedded fee policy.
func defaultFeeRules(cfg config.LateFeeConfig) ([]latefee.Rule, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	amount, err := decimal.NewFromString(cfg.FixedAmount)
	if err != nil {
		return nil, err
	}

	rule := latefee.Rule{
		ID:              "default-fixed",
		Name:            "default fixed late fee",
		Enabled:         true,
		GracePeriodDays: cfg.GracePeriodDays,
		Structure:       latefee.FixedFee{Amount: amount},
		ApplyOnce:       true,
	}
	if cfg.MaxAmount != "" {
		maxAmount, err := decimal.NewFromString(cfg.MaxAmount)
		if err != nil {
			return nil, err
		}
		rule.MaxAmount = &maxAmount
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return []latefee.Rule{rule}, nil
}
