package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/propertyops/rentledger/internal/application"
	"github.com/propertyops/rentledger/internal/domain"
)

const paymentColumns = `
	id, lease_id, tenant_id, payment_type, amount, amount_paid, currency,
	due_date, status, late_fee_applied, late_fee_date, late_fee_config,
	origin_payment_id, version, history, reminders, paid_date, deleted,
	created_at, updated_at`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PaymentRepository is the Postgres PaymentStore. A repository returned by
// WithTx routes every query through that transaction.
type PaymentRepository struct {
	db *DB
	q  querier
}

var _ application.PaymentStore = (*PaymentRepository)(nil)

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{db: db, q: db.Pool}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	m := toDBModel(p)
	_, err := r.q.Exec(ctx, query,
		m.ID, m.LeaseID, m.TenantID, m.Type, m.Amount, m.AmountPaid, m.Currency,
		m.DueDate, m.Status, m.LateFeeApplied, m.LateFeeDate, m.LateFeeConfig,
		m.OriginPaymentID, m.Version, m.History, m.Reminders, m.PaidDate, m.Deleted,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	row := r.q.QueryRow(ctx, query, id)
	return scanPayment(row, id)
}

// FindEligible pages the set the daily passes may touch: non-terminal, with
// a due date, not soft-deleted. Keyset pagination over (due_date, id): the
// page boundary stays put even while rows leave the eligible set mid-run.
func (r *PaymentRepository) FindEligible(ctx context.Context, limit int, after *application.Cursor) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status NOT IN ('PAID', 'COMPLETED', 'CANCELLED', 'REFUNDED')
		  AND due_date IS NOT NULL
		  AND NOT deleted
		ORDER BY due_date ASC, id ASC
		LIMIT $1
	`
	args := []any{limit}

	if after != nil {
		query = `
			SELECT ` + paymentColumns + `
			FROM payments
			WHERE status NOT IN ('PAID', 'COMPLETED', 'CANCELLED', 'REFUNDED')
			  AND due_date IS NOT NULL
			  AND NOT deleted
			  AND (due_date, id) > ($2, $3)
			ORDER BY due_date ASC, id ASC
			LIMIT $1
		`
		args = append(args, after.DueDate, after.ID)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query eligible payments: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Payment, error) {
		var m PaymentModel
		if err := scanInto(row, &m); err != nil {
			return nil, err
		}
		return toDomainModel(m), nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan eligible payments: %w", err)
	}
	return results, nil
}

// FindFeeChild returns the open LATE_FEE payment created for the origin.
func (r *PaymentRepository) FindFeeChild(ctx context.Context, originID string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE origin_payment_id = $1
		  AND payment_type = 'LATE_FEE'
		  AND status NOT IN ('CANCELLED', 'REFUNDED')
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := r.q.QueryRow(ctx, query, originID)
	return scanPayment(row, originID)
}

// ConditionalUpdate persists the payment only when the stored version still
// matches expectedVersion, bumping the version by 1. A zero-row update on
// an existing payment means the row moved underneath us and is reported as
// a concurrency conflict, not a generic failure.
func (r *PaymentRepository) ConditionalUpdate(ctx context.Context, p *domain.Payment, expectedVersion int64) error {
	query := `
		UPDATE payments
		SET amount_paid = $1,
		    status = $2,
		    late_fee_applied = $3,
		    late_fee_date = $4,
		    late_fee_config = $5,
		    history = $6,
		    reminders = $7,
		    paid_date = $8,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $9 AND version = $10
	`

	m := toDBModel(p)
	tag, err := r.q.Exec(ctx, query,
		m.AmountPaid, m.Status, m.LateFeeApplied, m.LateFeeDate, m.LateFeeConfig,
		m.History, m.Reminders, m.PaidDate,
		m.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("conditional update: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)`, p.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check payment existence: %w", err)
		}
		if !exists {
			return domain.NewPaymentNotFoundError(p.ID)
		}
		return application.NewConcurrencyConflictError(p.ID, expectedVersion)
	}

	p.Version = expectedVersion + 1
	return nil
}

// WithTx runs fn against a repository bound to one transaction. Returning
// an error rolls the whole scope back.
func (r *PaymentRepository) WithTx(ctx context.Context, fn func(store application.PaymentStore) error) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txRepo := &PaymentRepository{db: r.db, q: tx}
	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func scanInto(row pgx.Row, m *PaymentModel) error {
	return row.Scan(
		&m.ID, &m.LeaseID, &m.TenantID, &m.Type, &m.Amount, &m.AmountPaid, &m.Currency,
		&m.DueDate, &m.Status, &m.LateFeeApplied, &m.LateFeeDate, &m.LateFeeConfig,
		&m.OriginPaymentID, &m.Version, &m.History, &m.Reminders, &m.PaidDate, &m.Deleted,
		&m.CreatedAt, &m.UpdatedAt,
	)
}

func scanPayment(row pgx.Row, id string) (*domain.Payment, error) {
	var m PaymentModel
	if err := scanInto(row, &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewPaymentNotFoundError(id)
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return toDomainModel(m), nil
}
