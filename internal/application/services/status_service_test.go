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
	"github.com/propertyops/rentledger/internal/application/services/testhelpers"
	"github.com/propertyops/rentledger/internal/domain"
)

func TestStatusService_Run_DerivesCalendarStatus(t *testing.T) {
	now := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	// Due 2024-01-01, 9 days overdue with a 5 day grace period: LATE.
	p := testhelpers.NewRentPayment(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	e.store.Seed(p)

	res := e.statusService().Run(context.Background())

	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Changed)
	assert.Equal(t, 1, res.ByStatus[domain.StatusLate])
	assert.Empty(t, res.Errors)
	assert.Equal(t, domain.StatusLate, e.store.Snapshot(p.ID).Status)
}

func TestStatusService_Run_FullyPaidSettles(t *testing.T) {
	now := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	p := testhelpers.NewRentPayment(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	p.AmountPaid = p.Amount
	p.Status = domain.StatusLate
	e.store.Seed(p)

	res := e.statusService().Run(context.Background())

	assert.Equal(t, 1, res.Changed)
	stored := e.store.Snapshot(p.ID)
	assert.Equal(t, domain.StatusPaid, stored.Status)
	require.NotNil(t, stored.PaidDate)

	// Settlement triggers the receipt hook.
	assert.Equal(t, []string{p.ID}, e.invoices.Generated)
}

func TestStatusService_Run_ProcessingCompletesWhenPaid(t *testing.T) {
	now := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	p := testhelpers.NewRentPayment(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	p.AmountPaid = p.Amount
	p.Status = domain.StatusProcessing
	e.store.Seed(p)

	e.statusService().Run(context.Background())

	assert.Equal(t, domain.StatusCompleted, e.store.Snapshot(p.ID).Status)
}

func TestStatusService_Run_PartialAtDueDate(t *testing.T) {
	now := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	p := testhelpers.NewRentPayment(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	p.AmountPaid = decimal.NewFromInt(400)
	e.store.Seed(p)

	e.statusService().Run(context.Background())

	assert.Equal(t, domain.StatusPartial, e.store.Snapshot(p.ID).Status)
}

func TestStatusService_Run_UpcomingNotPartial(t *testing.T) {
	now := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	// Partially paid but not yet due: calendar status wins.
	p := testhelpers.NewRentPayment(t, time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC))
	p.AmountPaid = decimal.NewFromInt(400)
	e.store.Seed(p)

	e.statusService().Run(context.Background())

	assert.Equal(t, domain.StatusUpcoming, e.store.Snapshot(p.ID).Status)
}

func TestStatusService_Run_NormalizesLegacyOverdue(t *testing.T) {
	now := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	p := testhelpers.NewRentPayment(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	p.Status = domain.StatusOverdue
	e.store.Seed(p)

	res := e.statusService().Run(context.Background())

	assert.Equal(t, 1, res.Changed)
	assert.Equal(t, domain.StatusLate, e.store.Snapshot(p.ID).Status)
}

func TestStatusService_Run_SkipsTerminalAndUndated(t *testing.T) {
	now := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)

	paid := testhelpers.NewRentPayment(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	paid.Status = domain.StatusPaid
	e.store.Seed(paid)

	res := e.statusService().Run(context.Background())

	assert.Zero(t, res.Changed)
	assert.Empty(t, e.invoices.Generated)
	assert.Equal(t, domain.StatusPaid, e.store.Snapshot(paid.ID).Status)
}

func TestStatusService_Run_InvoiceFailureDoesNotFailPass(t *testing.T) {
	now := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)
	e := newEnv(t, now)
	e.invoices.GenerateFn = func(ctx context.Context, paymentID string) (application.InvoiceResult, error) {
		return application.InvoiceResult{}, errors.New("document service down")
	}

	p := testhelpers.NewRentPayment(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	p.AmountPaid = p.Amount
	e.store.Seed(p)

	res := e.statusService().Run(context.Background())

	// The receipt is best-effort; the status change itself stands.
	assert.Equal(t, 1, res.Changed)
	assert.Empty(t, res.Errors)
	assert.Equal(t, domain.StatusPaid, e.store.Snapshot(p.ID).Status)
}
