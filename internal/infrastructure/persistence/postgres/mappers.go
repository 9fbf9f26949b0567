package postgres

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/propertyops/rentledger/internal/domain"
)

// toDomainModel: maps db model to domain entity
func toDomainModel(m PaymentModel) *domain.Payment {
	return &domain.Payment{
		ID:              m.ID,
		LeaseID:         m.LeaseID,
		TenantID:        m.TenantID,
		Type:            domain.PaymentType(m.Type),
		Amount:          numericToDecimal(m.Amount),
		AmountPaid:      numericToDecimal(m.AmountPaid),
		Currency:        m.Currency,
		DueDate:         m.DueDate,
		Status:          domain.PaymentStatus(m.Status),
		LateFeeApplied:  numericToDecimal(m.LateFeeApplied),
		LateFeeDate:     m.LateFeeDate,
		LateFeeConfig:   m.LateFeeConfig,
		OriginPaymentID: m.OriginPaymentID,
		Version:         m.Version,
		History:         m.History,
		Reminders:       m.Reminders,
		PaidDate:        m.PaidDate,
		Deleted:         m.Deleted,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// toDBModel: maps domain entity to db model
func toDBModel(p *domain.Payment) *PaymentModel {
	return &PaymentModel{
		ID:              p.ID,
		LeaseID:         p.LeaseID,
		TenantID:        p.TenantID,
		Type:            string(p.Type),
		Amount:          decimalToNumeric(p.Amount),
		AmountPaid:      decimalToNumeric(p.AmountPaid),
		Currency:        p.Currency,
		DueDate:         p.DueDate,
		Status:          string(p.Status),
		LateFeeApplied:  decimalToNumeric(p.LateFeeApplied),
		LateFeeDate:     p.LateFeeDate,
		LateFeeConfig:   p.LateFeeConfig,
		OriginPaymentID: p.OriginPaymentID,
		Version:         p.Version,
		History:         p.History,
		Reminders:       p.Reminders,
		PaidDate:        p.PaidDate,
		Deleted:         p.Deleted,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}
