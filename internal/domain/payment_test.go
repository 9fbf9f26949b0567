package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyops/rentledger/internal/domain"
)

func TestNewPayment_Defaults(t *testing.T) {
	due := utcDate(2024, time.March, 1)
	p, err := domain.NewPayment("pay-1", "lease-1", "tenant-1", domain.TypeRent,
		decimal.NewFromInt(1200), "USD", due)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, p.Status)
	assert.Equal(t, int64(1), p.Version)
	assert.True(t, p.AmountPaid.IsZero())
	assert.True(t, p.LateFeeApplied.IsZero())
	require.NotNil(t, p.DueDate)
	assert.Equal(t, due, *p.DueDate)
}

func TestNewPayment_Validation(t *testing.T) {
	due := utcDate(2024, time.March, 1)
	amount := decimal.NewFromInt(1200)

	tests := []struct {
		name     string
		id       string
		leaseID  string
		tenantID string
		amount   decimal.Decimal
		currency string
		code     string
	}{
		{"missing id", "", "l", "t", amount, "USD", domain.ErrCodeMissingRequiredField},
		{"missing lease", "p", "", "t", amount, "USD", domain.ErrCodeMissingRequiredField},
		{"missing tenant", "p", "l", "", amount, "USD", domain.ErrCodeMissingRequiredField},
		{"zero amount", "p", "l", "t", decimal.Zero, "USD", domain.ErrCodeInvalidAmount},
		{"negative amount", "p", "l", "t", decimal.NewFromInt(-5), "USD", domain.ErrCodeInvalidAmount},
		{"missing currency", "p", "l", "t", amount, "", domain.ErrCodeMissingRequiredField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewPayment(tt.id, tt.leaseID, tt.tenantID, domain.TypeRent,
				tt.amount, tt.currency, due)
			require.Error(t, err)
			assert.True(t, domain.IsErrorCode(err, tt.code))
		})
	}
}

func TestPayment_RecordPayment(t *testing.T) {
	p := newTestPayment(t, domain.StatusDueToday)
	at := utcDate(2024, time.March, 15)

	require.NoError(t, p.RecordPayment(decimal.NewFromInt(400), "card", at))
	assert.True(t, p.AmountPaid.Equal(decimal.NewFromInt(400)))
	assert.True(t, p.Outstanding().Equal(decimal.NewFromInt(600)))
	require.Len(t, p.History, 1)
	assert.Equal(t, "card", p.History[0].Method)

	// Overpaying the remainder is rejected.
	err := p.RecordPayment(decimal.NewFromInt(700), "card", at)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeAmountMismatch))
	assert.True(t, p.AmountPaid.Equal(decimal.NewFromInt(400)))

	require.NoError(t, p.RecordPayment(decimal.NewFromInt(600), "card", at))
	assert.True(t, p.Outstanding().IsZero())
}

func TestPayment_RecordPayment_TerminalRejected(t *testing.T) {
	p := newTestPayment(t, domain.StatusPaid)
	err := p.RecordPayment(decimal.NewFromInt(10), "card", utcDate(2024, time.March, 15))
	require.Error(t, err)
}

func TestPayment_IsTerminal(t *testing.T) {
	terminal := []domain.PaymentStatus{
		domain.StatusPaid, domain.StatusCompleted, domain.StatusCancelled, domain.StatusRefunded,
	}
	for _, s := range terminal {
		assert.True(t, newTestPayment(t, s).IsTerminal(), string(s))
	}

	active := []domain.PaymentStatus{
		domain.StatusPending, domain.StatusLate, domain.StatusPartial,
		domain.StatusProcessing, domain.StatusFailed, domain.StatusOverdue,
	}
	for _, s := range active {
		assert.False(t, newTestPayment(t, s).IsTerminal(), string(s))
	}
}

func TestPayment_ReminderSentOn(t *testing.T) {
	p := newTestPayment(t, domain.StatusLate)
	day := time.Date(2024, time.March, 20, 9, 30, 0, 0, time.UTC)

	p.AppendReminder(domain.ReminderRecord{Type: "OVERDUE_NOTICE", Channel: "email", SentAt: day})

	assert.True(t, p.ReminderSentOn(day, "OVERDUE_NOTICE"))
	// Same calendar day, different time of day.
	assert.True(t, p.ReminderSentOn(time.Date(2024, time.March, 20, 23, 0, 0, 0, time.UTC), "OVERDUE_NOTICE"))
	assert.False(t, p.ReminderSentOn(day.AddDate(0, 0, 1), "OVERDUE_NOTICE"))
	assert.False(t, p.ReminderSentOn(day, "PAYMENT_DUE"))
}

func TestPayment_Clone_IsDeep(t *testing.T) {
	p := newTestPayment(t, domain.StatusLate)
	feeDate := utcDate(2024, time.March, 22)
	p.LateFeeDate = &feeDate
	p.LateFeeConfig = &domain.LateFeeConfig{
		Enabled:          true,
		FeeType:          "FIXED",
		Amount:           decimal.NewFromInt(50),
		NotificationDays: []int{1, 3},
	}
	p.AppendHistory(domain.HistoryEntry{Amount: decimal.NewFromInt(50), Method: "system", Date: feeDate})

	cp := p.Clone()

	cp.Status = domain.StatusPaid
	*cp.LateFeeDate = utcDate(2024, time.April, 1)
	cp.LateFeeConfig.NotificationDays[0] = 99
	cp.History[0].Method = "changed"

	assert.Equal(t, domain.StatusLate, p.Status)
	assert.Equal(t, feeDate, *p.LateFeeDate)
	assert.Equal(t, 1, p.LateFeeConfig.NotificationDays[0])
	assert.Equal(t, "system", p.History[0].Method)
}
