package rest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/propertyops/rentledger/internal/domain"
	"github.com/propertyops/rentledger/internal/latefee"
)

type ProcessLateFeesRequest struct {
	DryRun bool          `json:"dry_run"`
	Rules  []RuleRequest `json:"rules,omitempty"`
}

type ReverseLateFeeRequest struct {
	Reason string `json:"reason"`
}

// RuleRequest is the wire form of a late fee rule. Structure carries a kind
// discriminator plus the fields of that variant.
type RuleRequest struct {
	ID              string                   `json:"id"`
	Name            string                   `json:"name"`
	Enabled         bool                     `json:"enabled"`
	GracePeriodDays int                      `json:"grace_period_days"`
	Structure       StructureRequest         `json:"structure"`
	MinAmount       *decimal.Decimal         `json:"min_amount,omitempty"`
	MaxAmount       *decimal.Decimal         `json:"max_amount,omitempty"`
	ApplicableTypes []string                 `json:"applicable_types,omitempty"`
	Conditions      *latefee.AmountConditions `json:"conditions,omitempty"`
	ApplyOnce       bool                     `json:"apply_once"`
}

type StructureRequest struct {
	Kind     string           `json:"kind"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Percent  *decimal.Decimal `json:"percent,omitempty"`
	Rate     *decimal.Decimal `json:"rate,omitempty"`
	Compound bool             `json:"compound,omitempty"`
	Tiers    []latefee.Tier   `json:"tiers,omitempty"`
}

// ToRule converts the wire form into a domain rule. Validation happens in
// the service; this only shapes the tagged union.
func (r RuleRequest) ToRule() (latefee.Rule, error) {
	rule := latefee.Rule{
		ID:              r.ID,
		Name:            r.Name,
		Enabled:         r.Enabled,
		GracePeriodDays: r.GracePeriodDays,
		MinAmount:       r.MinAmount,
		MaxAmount:       r.MaxAmount,
		Conditions:      r.Conditions,
		ApplyOnce:       r.ApplyOnce,
	}
	for _, t := range r.ApplicableTypes {
		rule.ApplicableTypes = append(rule.ApplicableTypes, domain.PaymentType(t))
	}

	switch latefee.FeeKind(r.Structure.Kind) {
	case latefee.KindFixed:
		if r.Structure.Amount == nil {
			return latefee.Rule{}, domain.NewInvalidRuleError(r.ID, "fixed structure requires amount")
		}
		rule.Structure = latefee.FixedFee{Amount: *r.Structure.Amount}
	case latefee.KindPercentage:
		if r.Structure.Percent == nil {
			return latefee.Rule{}, domain.NewInvalidRuleError(r.ID, "percentage structure requires percent")
		}
		rule.Structure = latefee.PercentageFee{Percent: *r.Structure.Percent}
	case latefee.KindTiered:
		rule.Structure = latefee.TieredFee{Tiers: r.Structure.Tiers}
	case latefee.KindDaily:
		if r.Structure.Rate == nil {
			return latefee.Rule{}, domain.NewInvalidRuleError(r.ID, "daily structure requires rate")
		}
		rule.Structure = latefee.DailyFee{Rate: *r.Structure.Rate, Compound: r.Structure.Compound}
	default:
		return latefee.Rule{}, domain.NewInvalidRuleError(r.ID, "unknown structure kind "+r.Structure.Kind)
	}

	return rule, nil
}

type PaymentResponse struct {
	ID              string                  `json:"id"`
	LeaseID         string                  `json:"lease_id"`
	TenantID        string                  `json:"tenant_id"`
	Type            string                  `json:"payment_type"`
	Amount          decimal.Decimal         `json:"amount"`
	AmountPaid      decimal.Decimal         `json:"amount_paid"`
	Currency        string                  `json:"currency"`
	DueDate         *time.Time              `json:"due_date,omitempty"`
	Status          string                  `json:"status"`
	LateFeeApplied  decimal.Decimal         `json:"late_fee_applied"`
	LateFeeDate     *time.Time              `json:"late_fee_date,omitempty"`
	OriginPaymentID *string                 `json:"origin_payment_id,omitempty"`
	Version         int64                   `json:"version"`
	History         []domain.HistoryEntry   `json:"history"`
	Reminders       []domain.ReminderRecord `json:"reminders"`
	PaidDate        *time.Time              `json:"paid_date,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

func ToPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		LeaseID:         p.LeaseID,
		TenantID:        p.TenantID,
		Type:            string(p.Type),
		Amount:          p.Amount,
		AmountPaid:      p.AmountPaid,
		Currency:        p.Currency,
		DueDate:         p.DueDate,
		Status:          string(p.Status),
		LateFeeApplied:  p.LateFeeApplied,
		LateFeeDate:     p.LateFeeDate,
		OriginPaymentID: p.OriginPaymentID,
		Version:         p.Version,
		History:         p.History,
		Reminders:       p.Reminders,
		PaidDate:        p.PaidDate,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
