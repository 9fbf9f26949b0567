// Package latefee selects and computes late fees for overdue obligations.
// One calculator serves every chargeable entity; rule order is policy.
package latefee

import (
	"github.com/shopspring/decimal"

	"github.com/propertyops/rentledger/internal/domain"
)

// FeeKind discriminates the fee structure variants.
type FeeKind string

const (
	KindFixed      FeeKind = "FIXED"
	KindPercentage FeeKind = "PERCENTAGE"
	KindTiered     FeeKind = "TIERED"
	KindDaily      FeeKind = "DAILY"
)

// FeeStructure is a sealed tagged union. Exactly one concrete variant backs
// a rule; adding a new fee type means adding a variant and the compiler
// flags every switch that must handle it.
type FeeStructure interface {
	Kind() FeeKind
	validate() error
}

// FixedFee charges a flat amount once the grace period has elapsed.
type FixedFee struct {
	Amount decimal.Decimal `json:"amount"`
}

func (f FixedFee) Kind() FeeKind { return KindFixed }

func (f FixedFee) validate() error {
	if !f.Amount.IsPositive() {
		return domain.NewInvalidAmountError(f.Amount)
	}
	return nil
}

// PercentageFee charges a percentage of the full payment amount.
type PercentageFee struct {
	Percent decimal.Decimal `json:"percent"`
}

func (f PercentageFee) Kind() FeeKind { return KindPercentage }

func (f PercentageFee) validate() error {
	if !f.Percent.IsPositive() {
		return domain.NewInvalidAmountError(f.Percent)
	}
	return nil
}

// Tier is one escalation step. Either Amount or Percent is set, not both.
type Tier struct {
	DaysOverdue int              `json:"days_overdue"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Percent     *decimal.Decimal `json:"percent,omitempty"`
}

// TieredFee selects the tier with the largest DaysOverdue at or below the
// actual days overdue. Tiers escalate; they are not cumulative.
type TieredFee struct {
	Tiers []Tier `json:"tiers"`
}

func (f TieredFee) Kind() FeeKind { return KindTiered }

func (f TieredFee) validate() error {
	if len(f.Tiers) == 0 {
		return domain.NewInvalidRuleError("", "tiered fee requires at least one tier")
	}
	for _, t := range f.Tiers {
		if t.DaysOverdue < 0 {
			return domain.NewInvalidRuleError("", "tier days overdue must be non-negative")
		}
		if (t.Amount == nil) == (t.Percent == nil) {
			return domain.NewInvalidRuleError("", "tier must set exactly one of amount or percent")
		}
	}
	return nil
}

// DailyFee accrues a flat rate per day past the grace period. With Compound
// set, 10% of the accrued base is added as a separate compound component.
type DailyFee struct {
	Rate     decimal.Decimal `json:"rate"`
	Compound bool            `json:"compound"`
}

func (f DailyFee) Kind() FeeKind { return KindDaily }

func (f DailyFee) validate() error {
	if !f.Rate.IsPositive() {
		return domain.NewInvalidAmountError(f.Rate)
	}
	return nil
}

// AmountConditions restrict a rule to payments within an amount band.
type AmountConditions struct {
	MinAmount *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`
}

// Rule is a named, independently enable/disable-able late fee policy.
// Rules are evaluated in slice order and the first match wins, so ordering
// is part of the policy itself.
type Rule struct {
	ID              string
	Name            string
	Enabled         bool
	GracePeriodDays int
	Structure       FeeStructure

	// MinAmount raises a too-small fee up to the floor; MaxAmount caps it.
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal

	// ApplicableTypes empty means the rule applies to every payment type.
	ApplicableTypes []domain.PaymentType
	Conditions      *AmountConditions

	// ApplyOnce charges a single fee per overdue payment. Otherwise later
	// passes charge only the delta above what was already applied.
	ApplyOnce bool
}

func (r Rule) Validate() error {
	if r.ID == "" {
		return domain.NewInvalidRuleError(r.ID, "rule ID is required")
	}
	if r.GracePeriodDays < 0 {
		return domain.NewInvalidRuleError(r.ID, "grace period must be non-negative")
	}
	if r.Structure == nil {
		return domain.NewInvalidRuleError(r.ID, "fee structure is required")
	}
	if err := r.Structure.validate(); err != nil {
		return domain.NewInvalidRuleError(r.ID, err.Error())
	}
	if r.MinAmount != nil && r.MaxAmount != nil && r.MinAmount.GreaterThan(*r.MaxAmount) {
		return domain.NewInvalidRuleError(r.ID, "min amount exceeds max amount")
	}
	return nil
}

func (r Rule) appliesToType(t domain.PaymentType) bool {
	if len(r.ApplicableTypes) == 0 {
		return true
	}
	for _, at := range r.ApplicableTypes {
		if at == t {
			return true
		}
	}
	return false
}

func (r Rule) amountWithinConditions(amount decimal.Decimal) bool {
	if r.Conditions == nil {
		return true
	}
	if r.Conditions.MinAmount != nil && amount.LessThan(*r.Conditions.MinAmount) {
		return false
	}
	if r.Conditions.MaxAmount != nil && amount.GreaterThan(*r.Conditions.MaxAmount) {
		return false
	}
	return true
}

// ValidateRules checks a whole rule set up front so malformed configuration
// surfaces before any payment is touched.
func ValidateRules(rules []Rule) error {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RuleFromConfig builds a rule from a payment's embedded fee policy. The
// embedded policy takes precedence over globally configured rules.
func RuleFromConfig(paymentID string, cfg *domain.LateFeeConfig) (Rule, error) {
	r := Rule{
		ID:              "payment-config-" + paymentID,
		Name:            "per-payment fee policy",
		Enabled:         cfg.Enabled,
		GracePeriodDays: cfg.GracePeriodDays,
		MinAmount:       cfg.MinFee,
		MaxAmount:       cfg.MaxFee,
		ApplyOnce:       !cfg.Compounding,
	}

	switch FeeKind(cfg.FeeType) {
	case KindFixed:
		r.Structure = FixedFee{Amount: cfg.Amount}
	case KindPercentage:
		r.Structure = PercentageFee{Percent: cfg.Percentage}
	case KindDaily:
		r.Structure = DailyFee{Rate: cfg.DailyRate, Compound: cfg.Compounding}
		r.ApplyOnce = false
	default:
		return Rule{}, domain.NewInvalidRuleError(r.ID, "unknown fee type "+cfg.FeeType)
	}

	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}
