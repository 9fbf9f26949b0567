package notify

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/propertyops/rentledger/internal/application"
	"github.com/propertyops/rentledger/internal/config"
)

// RetrySender wraps a NotificationSender with bounded exponential backoff.
// Only transient failures are retried; a 4xx from the collaborator is
// final. Invoice generation is deliberately not wrapped: it is
// fire-and-forget and a failed receipt is only logged.
type RetrySender struct {
	inner      application.NotificationSender
	baseDelay  time.Duration
	maxRetries int
}

var _ application.NotificationSender = (*RetrySender)(nil)

func NewRetrySender(inner application.NotificationSender, cfg config.RetryConfig) *RetrySender {
	return &RetrySender{
		inner:      inner,
		baseDelay:  time.Duration(cfg.BaseDelay) * time.Second,
		maxRetries: int(cfg.MaxRetries),
	}
}

func (r *RetrySender) Send(ctx context.Context, paymentID, templateID string, channels []string) (application.NotificationResult, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return application.NotificationResult{}, ctx.Err()
		default:
		}

		result, err := r.inner.Send(ctx, paymentID, templateID, channels)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return application.NotificationResult{}, err
		}

		if attempt < r.maxRetries-1 {
			time.Sleep(r.backoff(attempt))
		}
	}

	return application.NotificationResult{}, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if senderErr, ok := IsSenderError(err); ok {
		return senderErr.IsRetryable()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// Backoff calculation with exponential delay and jitter
func (r *RetrySender) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)
	jitter := time.Duration(rand.Intn(1000)) * time.Millisecond
	return base + jitter
}
