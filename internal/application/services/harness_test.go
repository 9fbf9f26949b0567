package services_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/propertyops/rentledger/internal/application/services"
	"github.com/propertyops/rentledger/internal/application/services/testhelpers"
	"github.com/propertyops/rentledger/internal/domain"
	"github.com/propertyops/rentledger/internal/infrastructure/persistence/memory"
	"github.com/propertyops/rentledger/internal/latefee"
)

// env wires the full service stack onto the in-memory store with a pinned
// clock so calendar math is deterministic.
type env struct {
	store    *memory.Store
	calc     *domain.StatusCalculator
	table    *domain.TransitionRuleTable
	mutator  *services.PaymentMutator
	batch    *services.BatchProcessor
	invoices *testhelpers.FakeInvoiceGenerator
	sender   *testhelpers.FakeSender
	logger   *slog.Logger
	now      time.Time
}

func newEnv(t *testing.T, now time.Time) *env {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testhelpers.FixedClock(now)

	calc, err := domain.NewStatusCalculator(domain.StatusThresholds{
		GracePeriodDays:              5,
		LateFeeThresholdDays:         5,
		SeverelyOverdueThresholdDays: 30,
		DueSoonThresholdDays:         3,
		UpcomingThresholdDays:        14,
	}, clock)
	require.NoError(t, err)

	store := memory.NewStore()
	return &env{
		store:    store,
		calc:     calc,
		table:    domain.DefaultTransitionTable(clock),
		mutator:  services.NewPaymentMutator(logger, clock),
		batch:    services.NewBatchProcessor(store, 50, logger),
		invoices: &testhelpers.FakeInvoiceGenerator{},
		sender:   &testhelpers.FakeSender{},
		logger:   logger,
		now:      now,
	}
}

func (e *env) statusService() *services.StatusService {
	return services.NewStatusService(e.calc, e.table, e.mutator, e.invoices, e.batch, e.logger)
}

func (e *env) feeService() *services.LateFeeService {
	return services.NewLateFeeService(
		latefee.NewCalculator(), e.calc, e.table, e.mutator,
		e.store, e.batch, e.logger, testhelpers.FixedClock(e.now),
	)
}

func (e *env) notificationService(schedule services.ReminderSchedule) *services.NotificationService {
	return services.NewNotificationService(
		e.calc, e.mutator, e.sender, e.batch, schedule,
		e.logger, testhelpers.FixedClock(e.now),
	)
}
