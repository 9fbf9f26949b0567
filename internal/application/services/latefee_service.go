package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyops/rentledger/internal/application"
	"github.com/propertyops/rentledger/internal/domain"
	"github.com/propertyops/rentledger/internal/latefee"
)

// LateFeeService runs the late fee pass and handles fee reversals. Applying
// a fee both marks the origin payment and creates a LATE_FEE child payment
// carrying the charge, inside the same chunk transaction.
type LateFeeService struct {
	calc       *latefee.Calculator
	statusCalc *domain.StatusCalculator
	table      *domain.TransitionRuleTable
	mutator    *PaymentMutator
	store      application.PaymentStore
	batch      *BatchProcessor
	logger     *slog.Logger
	now        func() time.Time
}

func NewLateFeeService(
	calc *latefee.Calculator,
	statusCalc *domain.StatusCalculator,
	table *domain.TransitionRuleTable,
	mutator *PaymentMutator,
	store application.PaymentStore,
	batch *BatchProcessor,
	logger *slog.Logger,
	now func() time.Time,
) *LateFeeService {
	if now == nil {
		now = time.Now
	}
	return &LateFeeService{
		calc:       calc,
		statusCalc: statusCalc,
		table:      table,
		mutator:    mutator,
		store:      store,
		batch:      batch,
		logger:     logger,
		now:        now,
	}
}

// ProcessLateFees runs one fee pass with the given rule set. Malformed
// rules fail fast before any payment is touched. With dryRun set the pass
// computes and reports without persisting anything.
func (s *LateFeeService) ProcessLateFees(ctx context.Context, rules []latefee.Rule, dryRun bool) (*application.LateFeeProcessingResult, error) {
	if err := latefee.ValidateRules(rules); err != nil {
		return nil, application.NewValidationError(err)
	}

	res := &application.LateFeeProcessingResult{
		DryRun:    dryRun,
		TotalFees: decimal.Zero,
	}

	stats := s.batch.Run(ctx, "late-fee", func(ctx context.Context, store application.PaymentStore, p *domain.Payment) error {
		return s.processOne(ctx, store, p, rules, dryRun, res)
	})

	res.Processed = stats.Processed
	res.Errors = append(res.Errors, stats.Errors...)
	return res, nil
}

func (s *LateFeeService) processOne(ctx context.Context, store application.PaymentStore, p *domain.Payment, rules []latefee.Rule, dryRun bool, res *application.LateFeeProcessingResult) error {
	if p.IsTerminal() || p.DueDate == nil {
		return nil
	}
	// Fee children never accrue fees of their own.
	if p.Type == domain.TypeLateFee {
		return nil
	}

	d, err := s.statusCalc.Derive(*p.DueDate)
	if err != nil {
		return err
	}
	if d.DaysOverdue == 0 || d.DaysOverdue < s.statusCalc.Thresholds().LateFeeThresholdDays {
		return nil
	}

	effective := rules
	if p.LateFeeConfig != nil {
		if !p.LateFeeConfig.Enabled {
			return nil
		}
		rule, err := latefee.RuleFromConfig(p.ID, p.LateFeeConfig)
		if err != nil {
			return err
		}
		// The embedded policy outranks the global rule set.
		effective = []latefee.Rule{rule}
	}

	rule := latefee.Match(latefee.ForPayment(p), effective, d.DaysOverdue)
	if rule == nil {
		return nil
	}
	res.Matched++

	charge, breakdown, err := s.calc.ComputeCharge(latefee.ForPayment(p), *rule, d.DaysOverdue)
	if err != nil {
		return err
	}
	if !charge.IsPositive() {
		return nil
	}

	app := application.FeeApplication{
		PaymentID:   p.ID,
		RuleID:      rule.ID,
		Amount:      charge,
		DaysOverdue: d.DaysOverdue,
		Breakdown:   breakdown,
	}

	if dryRun {
		res.Applied++
		res.TotalFees = res.TotalFees.Add(charge)
		res.Applications = append(res.Applications, app)
		return nil
	}

	if err := s.mutator.ApplyFee(ctx, store, p, charge, rule.ID); err != nil {
		return err
	}

	child, err := s.createFeeChild(ctx, store, p, charge)
	if err != nil {
		return err
	}
	app.FeePaymentID = child.ID

	res.Applied++
	res.TotalFees = res.TotalFees.Add(charge)
	res.Applications = append(res.Applications, app)
	return nil
}

func (s *LateFeeService) createFeeChild(ctx context.Context, store application.PaymentStore, origin *domain.Payment, charge decimal.Decimal) (*domain.Payment, error) {
	child, err := domain.NewPayment(
		uuid.New().String(),
		origin.LeaseID,
		origin.TenantID,
		domain.TypeLateFee,
		charge,
		origin.Currency,
		s.now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	originID := origin.ID
	child.OriginPaymentID = &originID

	if err := store.Create(ctx, child); err != nil {
		return nil, err
	}
	return child, nil
}

// ReverseLateFee cancels the fee child payment and resets the origin's fee
// fields in one transaction. On any error both records are left unchanged.
func (s *LateFeeService) ReverseLateFee(ctx context.Context, paymentID, reason string) (*application.ReversalResult, error) {
	var result *application.ReversalResult

	err := s.store.WithTx(ctx, func(txStore application.PaymentStore) error {
		origin, err := txStore.FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if !origin.LateFeeApplied.IsPositive() {
			return domain.NewNoFeeAppliedError(paymentID)
		}

		reversed := origin.LateFeeApplied
		res := &application.ReversalResult{
			PaymentID: paymentID,
			Reversed:  reversed,
		}

		child, err := txStore.FindFeeChild(ctx, paymentID)
		if err == nil {
			if _, err := s.mutator.ApplyTransition(ctx, txStore, child, domain.StatusCancelled, s.table); err != nil {
				return err
			}
			res.FeePaymentID = child.ID
		} else if !domain.IsErrorCode(err, domain.ErrCodePaymentNotFound) && !application.IsNotFound(err) {
			return err
		}

		if err := s.mutator.ResetFee(ctx, txStore, origin, reason); err != nil {
			return err
		}

		res.Success = true
		res.Message = "late fee reversed"
		result = res
		return nil
	})
	if err != nil {
		s.logger.Error("late fee reversal failed", "payment_id", paymentID, "error", err)
		return &application.ReversalResult{
			Success:   false,
			PaymentID: paymentID,
			Message:   err.Error(),
		}, err
	}

	s.logger.Info("late fee reversed",
		"payment_id", paymentID,
		"fee_payment_id", result.FeePaymentID,
		"amount", result.Reversed,
		"reason", reason)
	return result, nil
}
