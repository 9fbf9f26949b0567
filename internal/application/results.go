package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/propertyops/rentledger/internal/domain"
	"github.com/propertyops/rentledger/internal/latefee"
)

// ProcessingError is a per-payment failure recorded in a run result. The
// run itself always completes; errors are data, not control flow.
type ProcessingError struct {
	PaymentID string `json:"payment_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// FeeApplication records one applied (or, in dry runs, would-be-applied)
// late fee with its full computation breakdown.
type FeeApplication struct {
	PaymentID    string            `json:"payment_id"`
	RuleID       string            `json:"rule_id"`
	Amount       decimal.Decimal   `json:"amount"`
	DaysOverdue  int               `json:"days_overdue"`
	Breakdown    latefee.Breakdown `json:"breakdown"`
	FeePaymentID string            `json:"fee_payment_id,omitempty"`
}

// StatusProcessingResult summarizes one status pass.
type StatusProcessingResult struct {
	Processed int                              `json:"processed"`
	Changed   int                              `json:"changed"`
	ByStatus  map[domain.PaymentStatus]int     `json:"by_status"`
	Errors    []ProcessingError                `json:"errors"`
}

// LateFeeProcessingResult summarizes one late fee pass.
type LateFeeProcessingResult struct {
	DryRun       bool              `json:"dry_run"`
	Processed    int               `json:"processed"`
	Matched      int               `json:"matched"`
	Applied      int               `json:"applied"`
	TotalFees    decimal.Decimal   `json:"total_fees"`
	Applications []FeeApplication  `json:"applications"`
	Errors       []ProcessingError `json:"errors"`
}

// CommunicationResult summarizes one reminder pass.
type CommunicationResult struct {
	Processed int               `json:"processed"`
	Sent      int               `json:"sent"`
	Skipped   int               `json:"skipped"`
	Errors    []ProcessingError `json:"errors"`
}

// ReversalResult reports a late fee reversal.
type ReversalResult struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	PaymentID    string          `json:"payment_id"`
	FeePaymentID string          `json:"fee_payment_id,omitempty"`
	Reversed     decimal.Decimal `json:"reversed"`
}

// DailyProcessingResult is the single report of a daily run. It is always
// produced; a failed stage becomes a critical error, never a panic out of
// the run.
type DailyProcessingResult struct {
	StartedAt      time.Time                `json:"started_at"`
	Duration       time.Duration            `json:"duration"`
	Status         *StatusProcessingResult  `json:"status,omitempty"`
	LateFees       *LateFeeProcessingResult `json:"late_fees,omitempty"`
	Communications *CommunicationResult     `json:"communications,omitempty"`
	CriticalErrors []string                 `json:"critical_errors"`
	OverallSuccess bool                     `json:"overall_success"`
}
