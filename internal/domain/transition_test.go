package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyops/rentledger/internal/domain"
)

func newTestPayment(t *testing.T, status domain.PaymentStatus) *domain.Payment {
	t.Helper()
	p, err := domain.NewPayment("pay-1", "lease-1", "tenant-1", domain.TypeRent,
		decimal.NewFromInt(1000), "USD", utcDate(2024, time.March, 15))
	require.NoError(t, err)
	p.Status = status
	return p
}

func TestTransitionTable_Apply_SameStatusIsNoOp(t *testing.T) {
	table := domain.DefaultTransitionTable(nil)
	p := newTestPayment(t, domain.StatusLate)

	res, err := table.Apply(p, domain.StatusLate)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Zero(t, res.SideEffectsRun)
	assert.Equal(t, domain.StatusLate, p.Status)
}

func TestTransitionTable_Apply_CalendarTransitions(t *testing.T) {
	table := domain.DefaultTransitionTable(nil)

	tests := []struct {
		from domain.PaymentStatus
		to   domain.PaymentStatus
	}{
		{domain.StatusPending, domain.StatusUpcoming},
		{domain.StatusUpcoming, domain.StatusDueSoon},
		{domain.StatusDueSoon, domain.StatusDueToday},
		{domain.StatusDueToday, domain.StatusGracePeriod},
		{domain.StatusGracePeriod, domain.StatusLate},
		{domain.StatusLate, domain.StatusSeverelyOverdue},
		// Overdue statuses can move backwards when the due date changes.
		{domain.StatusSeverelyOverdue, domain.StatusLate},
		{domain.StatusLate, domain.StatusPending},
	}

	for _, tt := range tests {
		p := newTestPayment(t, tt.from)
		res, err := table.Apply(p, tt.to)
		require.NoError(t, err, "%s -> %s", tt.from, tt.to)
		assert.True(t, res.Changed)
		assert.Equal(t, tt.to, p.Status)
	}
}

func TestTransitionTable_Apply_LegacyOverdueNormalizes(t *testing.T) {
	table := domain.DefaultTransitionTable(nil)

	p := newTestPayment(t, domain.StatusOverdue)
	res, err := table.Apply(p, domain.StatusLate)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, domain.StatusLate, p.Status)

	// The engine never writes OVERDUE back.
	p = newTestPayment(t, domain.StatusLate)
	_, err = table.Apply(p, domain.StatusOverdue)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidTransition))
}

func TestTransitionTable_Apply_PaidRequiresFullPayment(t *testing.T) {
	table := domain.DefaultTransitionTable(nil)

	p := newTestPayment(t, domain.StatusLate)
	_, err := table.Apply(p, domain.StatusPaid)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidTransition))
	assert.Equal(t, domain.StatusLate, p.Status)

	p.AmountPaid = p.Amount
	res, err := table.Apply(p, domain.StatusPaid)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.SideEffectsRun)
	assert.Equal(t, domain.StatusPaid, p.Status)
	require.NotNil(t, p.PaidDate)
}

func TestTransitionTable_Apply_SideEffectUsesTableClock(t *testing.T) {
	at := utcDate(2024, time.April, 1)
	table := domain.DefaultTransitionTable(func() time.Time { return at })

	p := newTestPayment(t, domain.StatusProcessing)
	p.AmountPaid = p.Amount

	res, err := table.Apply(p, domain.StatusCompleted)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	require.NotNil(t, p.PaidDate)
	assert.Equal(t, at, *p.PaidDate)
}

func TestTransitionTable_Apply_PartialRequiresPartialPayment(t *testing.T) {
	table := domain.DefaultTransitionTable(nil)

	p := newTestPayment(t, domain.StatusGracePeriod)
	_, err := table.Apply(p, domain.StatusPartial)
	require.Error(t, err)

	p.AmountPaid = decimal.NewFromInt(400)
	res, err := table.Apply(p, domain.StatusPartial)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, domain.StatusPartial, p.Status)
}

func TestTransitionTable_Apply_TerminalPathsAreNarrow(t *testing.T) {
	table := domain.DefaultTransitionTable(nil)

	// PAID can only be refunded.
	p := newTestPayment(t, domain.StatusPaid)
	_, err := table.Apply(p, domain.StatusLate)
	require.Error(t, err)

	p = newTestPayment(t, domain.StatusPaid)
	res, err := table.Apply(p, domain.StatusRefunded)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	// CANCELLED has no outbound paths at all.
	p = newTestPayment(t, domain.StatusCancelled)
	_, err = table.Apply(p, domain.StatusPending)
	require.Error(t, err)
	_, err = table.Apply(p, domain.StatusRefunded)
	require.Error(t, err)
}

func TestTransitionTable_Apply_FailedRecovers(t *testing.T) {
	table := domain.DefaultTransitionTable(nil)

	p := newTestPayment(t, domain.StatusProcessing)
	res, err := table.Apply(p, domain.StatusFailed)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	res, err = table.Apply(p, domain.StatusProcessing)
	require.NoError(t, err)
	assert.True(t, res.Changed)
}

func TestTransitionTable_IsValid(t *testing.T) {
	table := domain.DefaultTransitionTable(nil)
	p := newTestPayment(t, domain.StatusLate)

	assert.True(t, table.IsValid(domain.StatusLate, domain.StatusSeverelyOverdue, p))
	assert.True(t, table.IsValid(domain.StatusLate, domain.StatusCancelled, p))
	assert.False(t, table.IsValid(domain.StatusLate, domain.StatusPaid, p))
	assert.False(t, table.IsValid(domain.StatusRefunded, domain.StatusPending, p))
}
