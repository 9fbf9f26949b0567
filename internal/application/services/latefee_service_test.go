package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyops/rentledger/internal/application"
	"github.com/propertyops/rentledger/internal/application/services"
	"github.com/propertyops/rentledger/internal/application/services/testhelpers"
	"github.com/propertyops/rentledger/internal/domain"
	"github.com/propertyops/rentledger/internal/infrastructure/persistence/memory"
	"github.com/propertyops/rentledger/internal/latefee"
)

func TestLateFeeService_ProcessLateFees_AppliesFeeAndCreatesChild(t *testing.T) {
	now := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)
	ctx := context.Background()

	p := testhelpers.NewOverduePayment(t, now, 10)
	e.store.Seed(p)

	rules := []latefee.Rule{testhelpers.FixedRule("standard", 50, 5)}
	res, err := e.feeService().ProcessLateFees(ctx, rules, false)
	require.NoError(t, err)

	assert.False(t, res.DryRun)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 1, res.Applied)
	assert.True(t, res.TotalFees.Equal(decimal.NewFromInt(50)))
	require.Len(t, res.Applications, 1)
	app := res.Applications[0]
	assert.Equal(t, p.ID, app.PaymentID)
	assert.Equal(t, "standard", app.RuleID)
	assert.Equal(t, 10, app.DaysOverdue)
	assert.NotEmpty(t, app.FeePaymentID)
	assert.True(t, app.Breakdown.FinalAmount.Equal(decimal.NewFromInt(50)))

	origin := e.store.Snapshot(p.ID)
	assert.True(t, origin.LateFeeApplied.Equal(decimal.NewFromInt(50)))
	require.NotNil(t, origin.LateFeeDate)

	child, err := e.store.FindFeeChild(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, app.FeePaymentID, child.ID)
	assert.Equal(t, domain.TypeLateFee, child.Type)
	assert.True(t, child.Amount.Equal(decimal.NewFromInt(50)))
	require.NotNil(t, child.OriginPaymentID)
	assert.Equal(t, p.ID, *child.OriginPaymentID)
	assert.Equal(t, p.LeaseID, child.LeaseID)
	assert.Equal(t, p.TenantID, child.TenantID)
}

func TestLateFeeService_ProcessLateFees_RerunIsIdempotent(t *testing.T) {
	now := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)
	ctx := context.Background()

	p := testhelpers.NewOverduePayment(t, now, 10)
	e.store.Seed(p)

	rules := []latefee.Rule{testhelpers.FixedRule("standard", 50, 5)}
	svc := e.feeService()

	_, err := svc.ProcessLateFees(ctx, rules, false)
	require.NoError(t, err)

	res, err := svc.ProcessLateFees(ctx, rules, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)
	assert.Zero(t, res.Applied, "apply-once rule must not double charge")
	assert.True(t, e.store.Snapshot(p.ID).LateFeeApplied.Equal(decimal.NewFromInt(50)))
}

func TestLateFeeService_ProcessLateFees_DryRunWritesNothing(t *testing.T) {
	now := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)
	ctx := context.Background()

	p := testhelpers.NewOverduePayment(t, now, 10)
	e.store.Seed(p)
	before := e.store.Snapshot(p.ID)

	rules := []latefee.Rule{testhelpers.FixedRule("standard", 50, 5)}
	res, err := e.feeService().ProcessLateFees(ctx, rules, true)
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Applied)
	assert.True(t, res.TotalFees.Equal(decimal.NewFromInt(50)))
	require.Len(t, res.Applications, 1)
	assert.Empty(t, res.Applications[0].FeePaymentID, "dry run creates no child payment")
	assert.True(t, res.Applications[0].Breakdown.FinalAmount.Equal(decimal.NewFromInt(50)))

	after := e.store.Snapshot(p.ID)
	assert.Equal(t, before, after, "dry run must not modify the payment")
	_, err = e.store.FindFeeChild(ctx, p.ID)
	require.Error(t, err)
}

func TestLateFeeService_ProcessLateFees_SkipsInsideThreshold(t *testing.T) {
	now := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	// 3 days overdue is under the 5 day fee threshold even with a
	// zero-grace rule.
	p := testhelpers.NewOverduePayment(t, now, 3)
	e.store.Seed(p)

	res, err := e.feeService().ProcessLateFees(context.Background(), []latefee.Rule{testhelpers.FixedRule("eager", 50, 0)}, false)
	require.NoError(t, err)
	assert.Zero(t, res.Matched)
	assert.Zero(t, res.Applied)
}

func TestLateFeeService_ProcessLateFees_SkipsFeeChildren(t *testing.T) {
	now := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	p := testhelpers.NewOverduePayment(t, now, 10)
	p.Type = domain.TypeLateFee
	e.store.Seed(p)

	res, err := e.feeService().ProcessLateFees(context.Background(), []latefee.Rule{testhelpers.FixedRule("standard", 50, 5)}, false)
	require.NoError(t, err)
	assert.Zero(t, res.Matched)
	assert.True(t, e.store.Snapshot(p.ID).LateFeeApplied.IsZero())
}

func TestLateFeeService_ProcessLateFees_EmbeddedConfigOutranksRules(t *testing.T) {
	now := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	p := testhelpers.NewOverduePayment(t, now, 10)
	p.LateFeeConfig = &domain.LateFeeConfig{
		Enabled:         true,
		GracePeriodDays: 5,
		FeeType:         "FIXED",
		Amount:          decimal.NewFromInt(75),
	}
	e.store.Seed(p)

	res, err := e.feeService().ProcessLateFees(context.Background(), []latefee.Rule{testhelpers.FixedRule("global", 50, 5)}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.True(t, e.store.Snapshot(p.ID).LateFeeApplied.Equal(decimal.NewFromInt(75)),
		"embedded policy amount wins over the global rule")
}

func TestLateFeeService_ProcessLateFees_DisabledConfigSuppresses(t *testing.T) {
	now := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	p := testhelpers.NewOverduePayment(t, now, 10)
	p.LateFeeConfig = &domain.LateFeeConfig{Enabled: false}
	e.store.Seed(p)

	res, err := e.feeService().ProcessLateFees(context.Background(), []latefee.Rule{testhelpers.FixedRule("global", 50, 5)}, false)
	require.NoError(t, err)
	assert.Zero(t, res.Matched)
	assert.True(t, e.store.Snapshot(p.ID).LateFeeApplied.IsZero())
}

func TestLateFeeService_ProcessLateFees_InvalidRulesFailFast(t *testing.T) {
	now := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	p := testhelpers.NewOverduePayment(t, now, 10)
	e.store.Seed(p)

	bad := latefee.Rule{ID: "bad", Enabled: true}
	_, err := e.feeService().ProcessLateFees(context.Background(), []latefee.Rule{bad}, false)
	require.Error(t, err)
	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeValidation, svcErr.Code)

	assert.True(t, e.store.Snapshot(p.ID).LateFeeApplied.IsZero(), "no payment touched")
}

func TestLateFeeService_ReverseLateFee(t *testing.T) {
	now := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)
	ctx := context.Background()

	p := testhelpers.NewOverduePayment(t, now, 10)
	e.store.Seed(p)

	svc := e.feeService()
	_, err := svc.ProcessLateFees(ctx, []latefee.Rule{testhelpers.FixedRule("standard", 50, 5)}, false)
	require.NoError(t, err)

	child, err := e.store.FindFeeChild(ctx, p.ID)
	require.NoError(t, err)

	res, err := svc.ReverseLateFee(ctx, p.ID, "charged in error")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, p.ID, res.PaymentID)
	assert.Equal(t, child.ID, res.FeePaymentID)
	assert.True(t, res.Reversed.Equal(decimal.NewFromInt(50)))

	origin := e.store.Snapshot(p.ID)
	assert.True(t, origin.LateFeeApplied.IsZero())
	assert.Nil(t, origin.LateFeeDate)

	assert.Equal(t, domain.StatusCancelled, e.store.Snapshot(child.ID).Status)

	// The cancelled child no longer counts as an open fee.
	_, err = e.store.FindFeeChild(ctx, p.ID)
	require.Error(t, err)
}

func TestLateFeeService_ReverseLateFee_NoFeeApplied(t *testing.T) {
	now := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	p := testhelpers.NewOverduePayment(t, now, 10)
	e.store.Seed(p)

	res, err := e.feeService().ReverseLateFee(context.Background(), p.ID, "nothing there")
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeNoFeeApplied))
	assert.False(t, res.Success)
}

func TestLateFeeService_ReverseLateFee_UnknownPayment(t *testing.T) {
	now := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	res, err := e.feeService().ReverseLateFee(context.Background(), "missing", "whoops")
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodePaymentNotFound))
	assert.False(t, res.Success)
}

// failingUpdateStore fails conditional updates for one payment ID while
// delegating everything else, keeping transactional rollback behavior.
type failingUpdateStore struct {
	*memory.Store
	failID string
}

func (f *failingUpdateStore) ConditionalUpdate(ctx context.Context, p *domain.Payment, expectedVersion int64) error {
	if p.ID == f.failID {
		return errors.New("storage failure")
	}
	return f.Store.ConditionalUpdate(ctx, p, expectedVersion)
}

func (f *failingUpdateStore) WithTx(ctx context.Context, fn func(store application.PaymentStore) error) error {
	return f.Store.WithTx(ctx, func(application.PaymentStore) error {
		return fn(f)
	})
}

func TestLateFeeService_ReverseLateFee_IsAtomic(t *testing.T) {
	now := time.Date(2024, time.March, 25, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)
	ctx := context.Background()

	p := testhelpers.NewOverduePayment(t, now, 10)
	e.store.Seed(p)

	svc := e.feeService()
	_, err := svc.ProcessLateFees(ctx, []latefee.Rule{testhelpers.FixedRule("standard", 50, 5)}, false)
	require.NoError(t, err)

	child, err := e.store.FindFeeChild(ctx, p.ID)
	require.NoError(t, err)

	// The origin update fails after the child was already cancelled inside
	// the transaction; the cancellation must roll back with it.
	failing := &failingUpdateStore{Store: e.store, failID: p.ID}
	brokenSvc := services.NewLateFeeService(
		latefee.NewCalculator(), e.calc, e.table, e.mutator,
		failing, e.batch, e.logger, testhelpers.FixedClock(now),
	)

	res, err := brokenSvc.ReverseLateFee(ctx, p.ID, "should roll back")
	require.Error(t, err)
	assert.False(t, res.Success)

	origin := e.store.Snapshot(p.ID)
	assert.True(t, origin.LateFeeApplied.Equal(decimal.NewFromInt(50)), "origin fee untouched")
	assert.Equal(t, domain.StatusPending, e.store.Snapshot(child.ID).Status, "child cancellation rolled back")

	stillOpen, err := e.store.FindFeeChild(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, child.ID, stillOpen.ID)
}
