package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propertyops/rentledger/internal/application"
	"github.com/propertyops/rentledger/internal/domain"
)

// PaymentMutator is the single write path for status and fee fields. Every
// write is a version-checked conditional update that appends an audit entry
// and bumps the concurrency token by exactly 1.
type PaymentMutator struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewPaymentMutator(logger *slog.Logger, now func() time.Time) *PaymentMutator {
	if now == nil {
		now = time.Now
	}
	return &PaymentMutator{logger: logger, now: now}
}

// ApplyTransition validates the transition against the table, runs its side
// effect, and persists the new status. Terminal payments are rejected
// before any write.
func (m *PaymentMutator) ApplyTransition(ctx context.Context, store application.PaymentStore, p *domain.Payment, to domain.PaymentStatus, table *domain.TransitionRuleTable) (domain.ApplyResult, error) {
	if p.IsTerminal() {
		return domain.ApplyResult{}, domain.NewTerminalStatusError(p.ID, p.Status)
	}

	from := p.Status
	res, err := table.Apply(p, to)
	if err != nil {
		return domain.ApplyResult{}, err
	}
	if !res.Changed {
		return res, nil
	}

	p.AppendHistory(domain.HistoryEntry{
		Amount: decimal.Zero,
		Method: "system",
		Note:   fmt.Sprintf("status %s -> %s", from, to),
		Date:   m.now().UTC(),
	})

	if err := store.ConditionalUpdate(ctx, p, p.Version); err != nil {
		return domain.ApplyResult{}, err
	}

	m.logger.Info("payment status updated",
		"payment_id", p.ID,
		"from", from,
		"to", to,
		"version", p.Version)
	return res, nil
}

// ApplyFee records a charged late fee amount on the origin payment.
func (m *PaymentMutator) ApplyFee(ctx context.Context, store application.PaymentStore, p *domain.Payment, charge decimal.Decimal, ruleID string) error {
	if p.IsTerminal() {
		return domain.NewTerminalStatusError(p.ID, p.Status)
	}
	if !charge.IsPositive() {
		return domain.NewInvalidAmountError(charge)
	}

	feeDate := m.now().UTC()
	p.LateFeeApplied = p.LateFeeApplied.Add(charge)
	p.LateFeeDate = &feeDate
	p.AppendHistory(domain.HistoryEntry{
		Amount: charge,
		Method: "system",
		Note:   fmt.Sprintf("late fee applied (rule %s)", ruleID),
		Date:   feeDate,
	})

	if err := store.ConditionalUpdate(ctx, p, p.Version); err != nil {
		return err
	}

	m.logger.Info("late fee applied",
		"payment_id", p.ID,
		"rule_id", ruleID,
		"amount", charge,
		"total_applied", p.LateFeeApplied)
	return nil
}

// ResetFee clears the fee fields on the origin payment during a reversal.
func (m *PaymentMutator) ResetFee(ctx context.Context, store application.PaymentStore, p *domain.Payment, reason string) error {
	reversed := p.LateFeeApplied
	p.LateFeeApplied = decimal.Zero
	p.LateFeeDate = nil
	p.AppendHistory(domain.HistoryEntry{
		Amount: reversed.Neg(),
		Method: "system",
		Note:   "late fee reversed: " + reason,
		Date:   m.now().UTC(),
	})

	return store.ConditionalUpdate(ctx, p, p.Version)
}

// RecordReminder appends sent-reminder records and persists them.
func (m *PaymentMutator) RecordReminder(ctx context.Context, store application.PaymentStore, p *domain.Payment, recs []domain.ReminderRecord) error {
	if p.IsTerminal() {
		return domain.NewTerminalStatusError(p.ID, p.Status)
	}
	for _, rec := range recs {
		p.AppendReminder(rec)
	}
	return store.ConditionalUpdate(ctx, p, p.Version)
}
