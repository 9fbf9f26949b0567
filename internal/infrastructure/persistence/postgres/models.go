package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/propertyops/rentledger/internal/domain"
)

// PaymentModel mirrors the payments table row. Amounts are NUMERIC columns;
// history, reminders and the embedded fee policy are JSONB.
type PaymentModel struct {
	ID              string
	LeaseID         string
	TenantID        string
	Type            string
	Amount          pgtype.Numeric
	AmountPaid      pgtype.Numeric
	Currency        string
	DueDate         *time.Time
	Status          string
	LateFeeApplied  pgtype.Numeric
	LateFeeDate     *time.Time
	LateFeeConfig   *domain.LateFeeConfig
	OriginPaymentID *string
	Version         int64
	History         []domain.HistoryEntry
	Reminders       []domain.ReminderRecord
	PaidDate        *time.Time
	Deleted         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
