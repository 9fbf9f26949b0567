// Package domain encodes the payment entity, its lifecycle statuses and the
// rules that govern transitions between them.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the current state of a payment in its lifecycle
type PaymentStatus string

const (
	StatusPending         PaymentStatus = "PENDING"
	StatusUpcoming        PaymentStatus = "UPCOMING"
	StatusDueSoon         PaymentStatus = "DUE_SOON"
	StatusDueToday        PaymentStatus = "DUE_TODAY"
	StatusGracePeriod     PaymentStatus = "GRACE_PERIOD"
	StatusLate            PaymentStatus = "LATE"
	StatusSeverelyOverdue PaymentStatus = "SEVERELY_OVERDUE"
	StatusPartial         PaymentStatus = "PARTIAL"
	StatusProcessing      PaymentStatus = "PROCESSING"
	StatusPaid            PaymentStatus = "PAID"
	StatusCompleted       PaymentStatus = "COMPLETED"
	StatusCancelled       PaymentStatus = "CANCELLED"
	StatusRefunded        PaymentStatus = "REFUNDED"
	StatusFailed          PaymentStatus = "FAILED"

	// StatusOverdue is a legacy status still present on old rows. It is
	// accepted on read and normalized to the granular overdue statuses on
	// the next status pass; the engine never writes it.
	StatusOverdue PaymentStatus = "OVERDUE"
)

// PaymentType classifies the obligation a payment settles.
type PaymentType string

const (
	TypeRent        PaymentType = "RENT"
	TypeDeposit     PaymentType = "DEPOSIT"
	TypeUtility     PaymentType = "UTILITY"
	TypeMaintenance PaymentType = "MAINTENANCE"
	TypeLateFee     PaymentType = "LATE_FEE"
	TypeOther       PaymentType = "OTHER"
)

// HistoryEntry is an append-only record of an applied amount or engine
// mutation. Entries are never modified after being written.
type HistoryEntry struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
	Note   string          `json:"note,omitempty"`
	Date   time.Time       `json:"date"`
}

// ReminderRecord tracks a sent notification so the same reminder is not
// delivered twice on the same day.
type ReminderRecord struct {
	Type    string    `json:"type"`
	Channel string    `json:"channel"`
	SentAt  time.Time `json:"sent_at"`
}

// LateFeeConfig is an optional per-payment fee policy that overrides the
// globally configured rules when enabled.
type LateFeeConfig struct {
	Enabled          bool             `json:"enabled"`
	GracePeriodDays  int              `json:"grace_period_days"`
	FeeType          string           `json:"fee_type"`
	Amount           decimal.Decimal  `json:"amount"`
	Percentage       decimal.Decimal  `json:"percentage"`
	DailyRate        decimal.Decimal  `json:"daily_rate"`
	Compounding      bool             `json:"compounding"`
	MinFee           *decimal.Decimal `json:"min_fee,omitempty"`
	MaxFee           *decimal.Decimal `json:"max_fee,omitempty"`
	NotificationDays []int            `json:"notification_days,omitempty"`
}

type Payment struct {
	ID       string
	LeaseID  string
	TenantID string
	Type     PaymentType

	Amount     decimal.Decimal
	AmountPaid decimal.Decimal
	Currency   string

	DueDate *time.Time
	Status  PaymentStatus

	LateFeeApplied decimal.Decimal
	LateFeeDate    *time.Time
	LateFeeConfig  *LateFeeConfig

	// OriginPaymentID links a LATE_FEE child back to the payment that
	// incurred the fee.
	OriginPaymentID *string

	// Version is the optimistic-concurrency token. Every accepted write
	// increments it by exactly 1.
	Version int64

	History   []HistoryEntry
	Reminders []ReminderRecord

	PaidDate  *time.Time
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewPayment(id, leaseID, tenantID string, typ PaymentType, amount decimal.Decimal, currency string, dueDate time.Time) (*Payment, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("payment ID")
	}
	if leaseID == "" {
		return nil, NewMissingRequiredFieldError("lease ID")
	}
	if tenantID == "" {
		return nil, NewMissingRequiredFieldError("tenant ID")
	}
	if !amount.IsPositive() {
		return nil, NewInvalidAmountError(amount)
	}
	if currency == "" {
		return nil, NewMissingRequiredFieldError("currency")
	}

	now := time.Now().UTC()
	due := dueDate
	return &Payment{
		ID:             id,
		LeaseID:        leaseID,
		TenantID:       tenantID,
		Type:           typ,
		Amount:         amount,
		AmountPaid:     decimal.Zero,
		Currency:       currency,
		DueDate:        &due,
		Status:         StatusPending,
		LateFeeApplied: decimal.Zero,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// terminalStatuses are never re-derived or overwritten by automated passes.
var terminalStatuses = map[PaymentStatus]bool{
	StatusPaid:      true,
	StatusCompleted: true,
	StatusCancelled: true,
	StatusRefunded:  true,
}

func (p *Payment) IsTerminal() bool {
	return terminalStatuses[p.Status]
}

// Outstanding is the unpaid remainder of the base obligation. Late fees are
// carried on separate LATE_FEE child payments, not folded in here.
func (p *Payment) Outstanding() decimal.Decimal {
	out := p.Amount.Sub(p.AmountPaid)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// RecordPayment applies a received amount. Overpaying the remaining balance
// is rejected so the amountPaid <= amount invariant holds.
func (p *Payment) RecordPayment(amount decimal.Decimal, method string, at time.Time) error {
	if p.IsTerminal() {
		return NewInvalidTransitionError(p.Status, StatusPartial)
	}
	if !amount.IsPositive() {
		return NewInvalidAmountError(amount)
	}
	if amount.GreaterThan(p.Outstanding()) {
		return NewAmountMismatchError(p.Outstanding(), amount)
	}

	p.AmountPaid = p.AmountPaid.Add(amount)
	p.AppendHistory(HistoryEntry{Amount: amount, Method: method, Date: at})
	return nil
}

func (p *Payment) AppendHistory(entry HistoryEntry) {
	p.History = append(p.History, entry)
}

func (p *Payment) AppendReminder(rec ReminderRecord) {
	p.Reminders = append(p.Reminders, rec)
}

// ReminderSentOn reports whether a reminder of the given type already went
// out on the same UTC calendar day.
func (p *Payment) ReminderSentOn(day time.Time, reminderType string) bool {
	y, m, d := day.UTC().Date()
	for _, r := range p.Reminders {
		ry, rm, rd := r.SentAt.UTC().Date()
		if r.Type == reminderType && ry == y && rm == m && rd == d {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Used by the in-memory store and by dry runs to
// compare before/after snapshots.
func (p *Payment) Clone() *Payment {
	cp := *p
	if p.DueDate != nil {
		due := *p.DueDate
		cp.DueDate = &due
	}
	if p.LateFeeDate != nil {
		lfd := *p.LateFeeDate
		cp.LateFeeDate = &lfd
	}
	if p.PaidDate != nil {
		pd := *p.PaidDate
		cp.PaidDate = &pd
	}
	if p.OriginPaymentID != nil {
		origin := *p.OriginPaymentID
		cp.OriginPaymentID = &origin
	}
	if p.LateFeeConfig != nil {
		cfg := *p.LateFeeConfig
		cfg.NotificationDays = append([]int(nil), p.LateFeeConfig.NotificationDays...)
		cp.LateFeeConfig = &cfg
	}
	cp.History = append([]HistoryEntry(nil), p.History...)
	cp.Reminders = append([]ReminderRecord(nil), p.Reminders...)
	return &cp
}
