package application

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/propertyops/rentledger/internal/domain"
)

// ServiceError is an orchestration-level error with a stable code.
type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeValidation          = "VALIDATION"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeCollaborator        = "COLLABORATOR_FAILURE"
	ErrCodeCriticalStage       = "CRITICAL_STAGE_FAILURE"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

func NewValidationError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeValidation,
		Message:    "request failed validation",
		HTTPStatus: http.StatusUnprocessableEntity,
		Err:        err,
	}
}

// NewConcurrencyConflictError marks a lost optimistic-lock race. Distinct
// from a generic failure so callers can decide to retry the payment.
func NewConcurrencyConflictError(paymentID string, expectedVersion int64) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeConcurrencyConflict,
		Message:    fmt.Sprintf("payment %s was modified concurrently (expected version %d)", paymentID, expectedVersion),
		HTTPStatus: http.StatusConflict,
	}
}

func NewNotFoundError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeNotFound,
		Message:    "resource not found",
		HTTPStatus: http.StatusNotFound,
		Err:        err,
	}
}

func NewCollaboratorError(collaborator string, err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeCollaborator,
		Message:    fmt.Sprintf("%s collaborator failed", collaborator),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewCriticalStageError(stage string, cause any) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeCriticalStage,
		Message:    fmt.Sprintf("stage %s failed: %v", stage, cause),
		HTTPStatus: http.StatusInternalServerError,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsServiceError unwraps err into a *ServiceError if possible.
func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// IsNotFound reports whether err is a missing-resource error at either the
// service or domain level.
func IsNotFound(err error) bool {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code == ErrCodeNotFound
	}
	return domain.IsErrorCode(err, domain.ErrCodePaymentNotFound)
}

// IsConcurrencyConflict reports whether err is a lost version race.
func IsConcurrencyConflict(err error) bool {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code == ErrCodeConcurrencyConflict
	}
	return false
}

// ToHTTPStatus maps an error to the status code the admin surface returns.
func ToHTTPStatus(err error) int {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrCodePaymentNotFound:
			return http.StatusNotFound
		default:
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// ToErrorCode maps an error to its stable code.
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ErrCodeInternal
}
