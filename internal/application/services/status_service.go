package services

import (
	"context"
	"log/slog"

	"github.com/propertyops/rentledger/internal/application"
	"github.com/propertyops/rentledger/internal/domain"
)

// StatusService derives each eligible payment's calendar status and applies
// the transition through the rule table. Settlement outranks the calendar:
// a fully paid payment settles instead of falling into an overdue band.
type StatusService struct {
	calc     *domain.StatusCalculator
	table    *domain.TransitionRuleTable
	mutator  *PaymentMutator
	invoices application.InvoiceGenerator
	batch    *BatchProcessor
	logger   *slog.Logger
}

func NewStatusService(
	calc *domain.StatusCalculator,
	table *domain.TransitionRuleTable,
	mutator *PaymentMutator,
	invoices application.InvoiceGenerator,
	batch *BatchProcessor,
	logger *slog.Logger,
) *StatusService {
	return &StatusService{
		calc:     calc,
		table:    table,
		mutator:  mutator,
		invoices: invoices,
		batch:    batch,
		logger:   logger,
	}
}

// Run executes one status pass over the eligible payment set.
func (s *StatusService) Run(ctx context.Context) *application.StatusProcessingResult {
	res := &application.StatusProcessingResult{
		ByStatus: make(map[domain.PaymentStatus]int),
	}

	stats := s.batch.Run(ctx, "status", func(ctx context.Context, store application.PaymentStore, p *domain.Payment) error {
		changed, newStatus, err := s.ProcessPayment(ctx, store, p)
		if err != nil {
			return err
		}
		if changed {
			res.Changed++
			res.ByStatus[newStatus]++
		}
		return nil
	})

	res.Processed = stats.Processed
	res.Errors = stats.Errors
	return res
}

// ProcessPayment derives and applies the status for one payment. Returns
// whether the status changed and what it changed to.
func (s *StatusService) ProcessPayment(ctx context.Context, store application.PaymentStore, p *domain.Payment) (bool, domain.PaymentStatus, error) {
	if p.IsTerminal() || p.DueDate == nil {
		return false, p.Status, nil
	}

	target, err := s.targetStatus(p)
	if err != nil {
		return false, p.Status, err
	}
	if target == p.Status {
		return false, p.Status, nil
	}

	applied, err := s.mutator.ApplyTransition(ctx, store, p, target, s.table)
	if err != nil {
		return false, p.Status, err
	}
	if !applied.Changed {
		return false, p.Status, nil
	}

	if target == domain.StatusPaid || target == domain.StatusCompleted {
		s.generateInvoice(ctx, p.ID)
	}

	return true, target, nil
}

func (s *StatusService) targetStatus(p *domain.Payment) (domain.PaymentStatus, error) {
	if p.AmountPaid.GreaterThanOrEqual(p.Amount) {
		if p.Status == domain.StatusProcessing {
			return domain.StatusCompleted, nil
		}
		return domain.StatusPaid, nil
	}

	d, err := s.calc.Derive(*p.DueDate)
	if err != nil {
		return "", err
	}

	// A partially paid payment at or past its due date shows PARTIAL
	// rather than the calendar band; fee math still sees days overdue.
	if d.DaysUntilDue == 0 && p.AmountPaid.IsPositive() {
		return domain.StatusPartial, nil
	}

	return d.Status, nil
}

// generateInvoice is fire-and-forget: the status mutation is the system of
// record and a failed receipt must not fail the payment.
func (s *StatusService) generateInvoice(ctx context.Context, paymentID string) {
	result, err := s.invoices.Generate(ctx, paymentID)
	if err != nil || !result.Success {
		s.logger.Error("invoice generation failed", "payment_id", paymentID, "error", err)
		return
	}
	s.logger.Info("invoice generated", "payment_id", paymentID, "document_ref", result.DocumentRef)
}
