package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Domain validation errors
const (
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodePaymentNotFound      = "PAYMENT_NOT_FOUND"
	ErrCodeInvalidRule          = "INVALID_RULE"
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
	ErrCodeAmountMismatch       = "AMOUNT_MISMATCH"
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	ErrCodeTerminalStatus       = "TERMINAL_STATUS"
	ErrCodeUnresolvedStatus     = "UNRESOLVED_STATUS"
	ErrCodeInvalidThresholds    = "INVALID_THRESHOLDS"
	ErrCodeNoFeeApplied         = "NO_FEE_APPLIED"
)

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidAmountError(amount decimal.Decimal) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %s", amount),
	}
}

func NewAmountMismatchError(expected, actual decimal.Decimal) *DomainError {
	return &DomainError{
		Code:    ErrCodeAmountMismatch,
		Message: fmt.Sprintf("amount mismatch: at most %s allowed, got %s", expected, actual),
	}
}

func NewInvalidTransitionError(from, to PaymentStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewPaymentNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentNotFound,
		Message: fmt.Sprintf("payment with ID %s not found", id),
	}
}

func NewInvalidRuleError(ruleID, reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidRule,
		Message: fmt.Sprintf("late fee rule %s is invalid: %s", ruleID, reason),
	}
}

func NewTerminalStatusError(id string, status PaymentStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeTerminalStatus,
		Message: fmt.Sprintf("payment %s is in terminal status %s", id, status),
	}
}

func NewUnresolvedStatusError(daysUntilDue, daysOverdue int) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnresolvedStatus,
		Message: fmt.Sprintf("no status rule matched (days_until_due=%d, days_overdue=%d)", daysUntilDue, daysOverdue),
	}
}

func NewInvalidThresholdsError(reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidThresholds,
		Message: fmt.Sprintf("invalid status thresholds: %s", reason),
	}
}

func NewNoFeeAppliedError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNoFeeApplied,
		Message: fmt.Sprintf("payment %s has no late fee to reverse", id),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
