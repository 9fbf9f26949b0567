// Package application holds the ports, errors and result types shared by
// the processing services.
package application

import (
	"context"
	"time"

	"github.com/propertyops/rentledger/internal/domain"
)

// Cursor marks a position in the (due_date, id) ordering for keyset paging.
// Paging by cursor instead of offset keeps iteration stable while the pass
// mutates the set: a payment that turns terminal mid-run cannot shift the
// ones behind it out of a page.
type Cursor struct {
	DueDate time.Time
	ID      string
}

// PaymentStore is the persistence port. All status/fee writes go through
// ConditionalUpdate; no other path may touch those fields.
type PaymentStore interface {
	Create(ctx context.Context, p *domain.Payment) error
	FindByID(ctx context.Context, id string) (*domain.Payment, error)

	// FindEligible pages through payments the daily passes may touch:
	// non-terminal status, due date present, not soft-deleted, ordered by
	// (due date, id). A nil cursor starts from the beginning; otherwise
	// only payments strictly after the cursor position are returned.
	FindEligible(ctx context.Context, limit int, after *Cursor) ([]*domain.Payment, error)

	// FindFeeChild returns the open LATE_FEE payment created for the given
	// origin payment, or a not-found error.
	FindFeeChild(ctx context.Context, originID string) (*domain.Payment, error)

	// ConditionalUpdate persists p only if the stored version still equals
	// expectedVersion, then increments p.Version. A stale version yields
	// ErrCodeConcurrencyConflict so callers can retry or skip the payment.
	ConditionalUpdate(ctx context.Context, p *domain.Payment, expectedVersion int64) error

	// WithTx runs fn against a store handle scoped to one transaction.
	// Returning an error rolls the whole scope back.
	WithTx(ctx context.Context, fn func(store PaymentStore) error) error
}

// NotificationResult reports delivery per channel.
type NotificationResult struct {
	Success  bool
	Channels map[string]bool
}

// NotificationSender delivers a reminder or notice. Template rendering and
// transport mechanics live behind this port.
type NotificationSender interface {
	Send(ctx context.Context, paymentID, templateID string, channels []string) (NotificationResult, error)
}

// InvoiceResult references the generated document.
type InvoiceResult struct {
	Success     bool
	DocumentRef string
}

// InvoiceGenerator produces a receipt/invoice after a completed payment.
// Fire-and-forget from the engine's perspective: failures are logged, never
// propagated.
type InvoiceGenerator interface {
	Generate(ctx context.Context, paymentID string) (InvoiceResult, error)
}
