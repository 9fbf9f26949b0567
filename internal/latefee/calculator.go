package latefee

import (
	"github.com/shopspring/decimal"

	"github.com/propertyops/rentledger/internal/domain"
)

// Chargeable is the narrow view of an entity a late fee can attach to.
// Payments and invoices both satisfy it through adapters, so a single
// calculation path serves both and the two cannot drift apart.
type Chargeable interface {
	// BaseAmount is the full obligation: the basis for percentage fees and
	// for rule amount conditions. Partial payments do not shrink it.
	BaseAmount() decimal.Decimal
	TypeKey() domain.PaymentType
	// AppliedFee is the fee already charged; zero means none yet.
	AppliedFee() decimal.Decimal
}

// paymentChargeable adapts a domain.Payment.
type paymentChargeable struct {
	p *domain.Payment
}

func ForPayment(p *domain.Payment) Chargeable {
	return paymentChargeable{p: p}
}

func (c paymentChargeable) BaseAmount() decimal.Decimal { return c.p.Amount }
func (c paymentChargeable) TypeKey() domain.PaymentType { return c.p.Type }
func (c paymentChargeable) AppliedFee() decimal.Decimal { return c.p.LateFeeApplied }

// Breakdown records every component of a fee computation so an audit trail
// can fully reconstruct it, not just the final number.
type Breakdown struct {
	RuleID         string          `json:"rule_id"`
	Kind           FeeKind         `json:"kind"`
	BaseFee        decimal.Decimal `json:"base_fee"`
	DailyFees      decimal.Decimal `json:"daily_fees"`
	CompoundFees   decimal.Decimal `json:"compound_fees"`
	TierDays       int             `json:"tier_days,omitempty"`
	TotalBeforeCap decimal.Decimal `json:"total_before_cap"`
	FloorApplied   bool            `json:"floor_applied"`
	CapApplied     bool            `json:"cap_applied"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

// compoundFactor is the fixed share of the accrued daily base added when a
// daily rule compounds.
var compoundFactor = decimal.NewFromFloat(0.10)

// Calculator computes fee amounts for a matched rule. Pure; safe for
// concurrent use.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute evaluates the rule's fee structure for the given days overdue,
// then applies the min floor, the max cap and 2-decimal rounding (half
// rounds up).
func (c *Calculator) Compute(ch Chargeable, rule Rule, daysOverdue int) (Breakdown, error) {
	if err := rule.Validate(); err != nil {
		return Breakdown{}, err
	}

	b := Breakdown{RuleID: rule.ID, Kind: rule.Structure.Kind()}

	switch s := rule.Structure.(type) {
	case FixedFee:
		b.BaseFee = s.Amount

	case PercentageFee:
		b.BaseFee = ch.BaseAmount().Mul(s.Percent).Div(decimal.NewFromInt(100))

	case TieredFee:
		tier := closestTierBelow(s.Tiers, daysOverdue)
		if tier != nil {
			b.TierDays = tier.DaysOverdue
			if tier.Amount != nil {
				b.BaseFee = *tier.Amount
			} else {
				b.BaseFee = ch.BaseAmount().Mul(*tier.Percent).Div(decimal.NewFromInt(100))
			}
		}

	case DailyFee:
		daysAfterGrace := daysOverdue - rule.GracePeriodDays
		if daysAfterGrace < 0 {
			daysAfterGrace = 0
		}
		b.DailyFees = s.Rate.Mul(decimal.NewFromInt(int64(daysAfterGrace)))
		if s.Compound {
			b.CompoundFees = b.DailyFees.Mul(compoundFactor)
		}

	default:
		return Breakdown{}, domain.NewInvalidRuleError(rule.ID, "unknown fee structure")
	}

	total := b.BaseFee.Add(b.DailyFees).Add(b.CompoundFees)
	b.TotalBeforeCap = total

	if rule.MinAmount != nil && total.LessThan(*rule.MinAmount) {
		total = *rule.MinAmount
		b.FloorApplied = true
	}
	if rule.MaxAmount != nil && total.GreaterThan(*rule.MaxAmount) {
		total = *rule.MaxAmount
		b.CapApplied = true
	}

	b.FinalAmount = total.Round(2)
	return b, nil
}

// ComputeCharge returns the amount to charge on this pass, honoring the
// rule's apply-once policy: an already-applied fee suppresses an apply-once
// rule entirely, and an incremental rule charges only the delta above what
// was already applied.
func (c *Calculator) ComputeCharge(ch Chargeable, rule Rule, daysOverdue int) (decimal.Decimal, Breakdown, error) {
	b, err := c.Compute(ch, rule, daysOverdue)
	if err != nil {
		return decimal.Zero, Breakdown{}, err
	}

	applied := ch.AppliedFee()
	if applied.IsPositive() {
		if rule.ApplyOnce {
			return decimal.Zero, b, nil
		}
		delta := b.FinalAmount.Sub(applied)
		if !delta.IsPositive() {
			return decimal.Zero, b, nil
		}
		return delta, b, nil
	}

	return b.FinalAmount, b, nil
}

// closestTierBelow picks the tier with the largest DaysOverdue at or below
// the actual value. Tiers at 5/10/15/30 with actual=12 select the 10-day
// tier.
func closestTierBelow(tiers []Tier, daysOverdue int) *Tier {
	var best *Tier
	for i := range tiers {
		t := &tiers[i]
		if t.DaysOverdue > daysOverdue {
			continue
		}
		if best == nil || t.DaysOverdue > best.DaysOverdue {
			best = t
		}
	}
	return best
}
