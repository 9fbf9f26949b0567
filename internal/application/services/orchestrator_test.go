package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyops/rentledger/internal/application/services"
	"github.com/propertyops/rentledger/internal/application/services/testhelpers"
	"github.com/propertyops/rentledger/internal/domain"
	"github.com/propertyops/rentledger/internal/latefee"
)

func newOrchestrator(e *env, rules []latefee.Rule) *services.Orchestrator {
	return services.NewOrchestrator(
		e.statusService(),
		e.feeService(),
		e.notificationService(defaultSchedule()),
		rules,
		e.logger,
		testhelpers.FixedClock(e.now),
	)
}

func TestOrchestrator_RunDailyProcessing_FullRun(t *testing.T) {
	now := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)
	rules := []latefee.Rule{testhelpers.FixedRule("standard", 50, 5)}

	// 10 days overdue: should go LATE, get a fee, and (3rd run day offset
	// not matching) no overdue notice; 3 days overdue: notice only.
	feeCandidate := testhelpers.NewOverduePayment(t, now, 10)
	noticeCandidate := testhelpers.NewOverduePayment(t, now, 3)
	e.store.Seed(feeCandidate, noticeCandidate)

	result := newOrchestrator(e, rules).RunDailyProcessing(context.Background())

	assert.True(t, result.OverallSuccess)
	assert.Empty(t, result.CriticalErrors)
	assert.Equal(t, now.UTC(), result.StartedAt)

	require.NotNil(t, result.Status)
	assert.Equal(t, 2, result.Status.Processed)
	assert.Equal(t, 2, result.Status.Changed)
	assert.Equal(t, 1, result.Status.ByStatus[domain.StatusLate])
	assert.Equal(t, 1, result.Status.ByStatus[domain.StatusGracePeriod])

	require.NotNil(t, result.LateFees)
	assert.Equal(t, 1, result.LateFees.Applied)
	assert.True(t, result.LateFees.TotalFees.Equal(decimal.NewFromInt(50)))

	require.NotNil(t, result.Communications)
	assert.Equal(t, 1, result.Communications.Sent)

	// State reflects all three passes.
	assert.Equal(t, domain.StatusLate, e.store.Snapshot(feeCandidate.ID).Status)
	assert.True(t, e.store.Snapshot(feeCandidate.ID).LateFeeApplied.Equal(decimal.NewFromInt(50)))
	assert.NotEmpty(t, e.store.Snapshot(noticeCandidate.ID).Reminders)
}

func TestOrchestrator_RunDailyProcessing_StageFailureIsIsolated(t *testing.T) {
	now := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	p := testhelpers.NewOverduePayment(t, now, 3)
	e.store.Seed(p)

	// A malformed rule set fails the whole fee stage, but the passes
	// around it still run.
	badRules := []latefee.Rule{{ID: "broken", Enabled: true}}
	result := newOrchestrator(e, badRules).RunDailyProcessing(context.Background())

	assert.False(t, result.OverallSuccess)
	require.Len(t, result.CriticalErrors, 1)
	assert.Contains(t, result.CriticalErrors[0], "late-fees")

	require.NotNil(t, result.Status, "status pass ran before the failure")
	assert.Nil(t, result.LateFees)
	require.NotNil(t, result.Communications, "communication pass ran after the failure")
	assert.Equal(t, 1, result.Communications.Sent)
}

func TestOrchestrator_RunDailyProcessing_EmptySet(t *testing.T) {
	now := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	result := newOrchestrator(e, []latefee.Rule{testhelpers.FixedRule("standard", 50, 5)}).RunDailyProcessing(context.Background())

	assert.True(t, result.OverallSuccess)
	assert.Zero(t, result.Status.Processed)
	assert.Zero(t, result.LateFees.Processed)
	assert.Zero(t, result.Communications.Processed)
}
