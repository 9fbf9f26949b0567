package notify

import (
	"errors"
	"fmt"
)

// SenderError is a failure reported by the notification service.
type SenderError struct {
	Code       string
	Message    string
	StatusCode int
}

type senderErrorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

func (e *SenderError) Error() string {
	return fmt.Sprintf("notification error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

func (e *SenderError) IsRetryable() bool {
	return e.StatusCode >= 500
}

func IsSenderError(err error) (*SenderError, bool) {
	var senderErr *SenderError
	ok := errors.As(err, &senderErr)
	return senderErr, ok
}
