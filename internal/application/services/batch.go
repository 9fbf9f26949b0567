package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/propertyops/rentledger/internal/application"
	"github.com/propertyops/rentledger/internal/domain"
)

// ItemFunc processes a single payment inside a chunk. The store handle is
// scoped to the chunk's transaction.
type ItemFunc func(ctx context.Context, store application.PaymentStore, p *domain.Payment) error

// BatchStats accumulates across an entire batch run.
type BatchStats struct {
	Processed int
	Errors    []application.ProcessingError
}

// BatchProcessor walks the eligible payment set in fixed-size chunks, each
// inside its own transaction. Payments within a chunk are processed
// sequentially and independently: a failure or panic on one payment is
// recorded and processing continues with the next.
type BatchProcessor struct {
	store     application.PaymentStore
	chunkSize int
	logger    *slog.Logger
}

func NewBatchProcessor(store application.PaymentStore, chunkSize int, logger *slog.Logger) *BatchProcessor {
	if chunkSize <= 0 {
		chunkSize = 50
	}
	return &BatchProcessor{store: store, chunkSize: chunkSize, logger: logger}
}

// Run drives fn over every eligible payment. It never aborts: per-item
// errors land in the stats and a failed chunk transaction is recorded for
// each of its payments while later chunks proceed, so partial progress
// persists.
//
// Chunks are fetched by keyset cursor, not offset: processing routinely
// moves payments out of the eligible set (a settled payment turns terminal)
// and offset paging over a shrinking set would skip the payments that
// shifted into the vacated positions.
func (b *BatchProcessor) Run(ctx context.Context, name string, fn ItemFunc) BatchStats {
	stats := BatchStats{}
	var cursor *application.Cursor

	for {
		payments, err := b.store.FindEligible(ctx, b.chunkSize, cursor)
		if err != nil {
			b.logger.Error("eligible payment query failed", "batch", name, "error", err)
			stats.Errors = append(stats.Errors, application.ProcessingError{
				Code:    string(application.CategorizeError(err)),
				Message: fmt.Sprintf("fetch chunk: %v", err),
			})
			return stats
		}
		if len(payments) == 0 {
			return stats
		}

		chunkErrs, committed := b.processChunk(ctx, name, payments, fn)
		if committed {
			stats.Processed += len(payments)
		}
		stats.Errors = append(stats.Errors, chunkErrs...)

		// Advance past this chunk even when it rolled back: its payments
		// are already recorded as errors and retrying them would stall
		// the run on a persistent failure.
		last := payments[len(payments)-1]
		cursor = &application.Cursor{DueDate: *last.DueDate, ID: last.ID}

		if len(payments) < b.chunkSize {
			return stats
		}
	}
}

// processChunk runs fn over one chunk inside a transaction. The returned
// flag reports whether the chunk committed; a rolled-back chunk's items
// must not count as processed.
func (b *BatchProcessor) processChunk(ctx context.Context, name string, payments []*domain.Payment, fn ItemFunc) ([]application.ProcessingError, bool) {
	var errs []application.ProcessingError

	txErr := b.store.WithTx(ctx, func(txStore application.PaymentStore) error {
		for _, p := range payments {
			if err := b.processOne(ctx, txStore, p, fn); err != nil {
				errs = append(errs, application.ProcessingError{
					PaymentID: p.ID,
					Code:      string(application.CategorizeError(err)),
					Message:   err.Error(),
				})
				b.logger.Error("payment processing failed",
					"batch", name,
					"payment_id", p.ID,
					"error", err)
			}
		}
		// Item errors do not fail the chunk; successful items commit.
		return nil
	})
	if txErr != nil {
		// The whole chunk rolled back as a unit.
		errs = errs[:0]
		for _, p := range payments {
			errs = append(errs, application.ProcessingError{
				PaymentID: p.ID,
				Code:      string(application.CategorizeError(txErr)),
				Message:   fmt.Sprintf("chunk transaction failed: %v", txErr),
			})
		}
		b.logger.Error("chunk transaction failed", "batch", name, "size", len(payments), "error", txErr)
		return errs, false
	}

	return errs, true
}

func (b *BatchProcessor) processOne(ctx context.Context, store application.PaymentStore, p *domain.Payment, fn ItemFunc) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while processing payment %s: %v", p.ID, rec)
		}
	}()
	return fn(ctx, store, p)
}
