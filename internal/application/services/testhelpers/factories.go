package testhelpers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/propertyops/rentledger/internal/domain"
	"github.com/propertyops/rentledger/internal/latefee"
)

// NewRentPayment builds a rent payment due at the given date.
func NewRentPayment(t *testing.T, dueDate time.Time) *domain.Payment {
	t.Helper()

	p, err := domain.NewPayment(
		"pay-"+uuid.New().String(),
		"lease-"+uuid.New().String(),
		"tenant-"+uuid.New().String(),
		domain.TypeRent,
		decimal.NewFromInt(1200),
		"USD",
		dueDate,
	)
	require.NoError(t, err)
	return p
}

// NewOverduePayment builds a rent payment whose due date is daysOverdue days
// before now.
func NewOverduePayment(t *testing.T, now time.Time, daysOverdue int) *domain.Payment {
	t.Helper()
	return NewRentPayment(t, now.AddDate(0, 0, -daysOverdue))
}

// FixedRule builds an enabled fixed-amount rule with the given grace period.
func FixedRule(id string, amount int64, graceDays int) latefee.Rule {
	return latefee.Rule{
		ID:              id,
		Name:            id,
		Enabled:         true,
		GracePeriodDays: graceDays,
		Structure:       latefee.FixedFee{Amount: decimal.NewFromInt(amount)},
		ApplyOnce:       true,
	}
}

// FixedClock returns a now func pinned to the given instant.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// MustTime parses an RFC3339 timestamp or fails the test.
func MustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}
