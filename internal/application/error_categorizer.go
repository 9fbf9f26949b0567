package application

import (
	"context"
	"errors"

	"github.com/propertyops/rentledger/internal/domain"
)

// ErrorCategory classifies an error for retry and reporting decisions.
type ErrorCategory string

const (
	CategoryValidation  ErrorCategory = "VALIDATION"
	CategoryConcurrency ErrorCategory = "CONCURRENCY_CONFLICT"
	CategoryNotFound    ErrorCategory = "NOT_FOUND"
	CategoryTransient   ErrorCategory = "TRANSIENT"
	CategoryPermanent   ErrorCategory = "PERMANENT"
)

// CategorizeError maps an arbitrary error into the engine's taxonomy.
// Validation errors are never retried; concurrency conflicts may be retried
// for the specific payment; transient errors are infrastructure noise.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeValidation:
			return CategoryValidation
		case ErrCodeConcurrencyConflict:
			return CategoryConcurrency
		case ErrCodeNotFound:
			return CategoryNotFound
		case ErrCodeCollaborator:
			return CategoryTransient
		default:
			return CategoryPermanent
		}
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrCodePaymentNotFound:
			return CategoryNotFound
		default:
			return CategoryValidation
		}
	}

	return CategoryTransient
}
