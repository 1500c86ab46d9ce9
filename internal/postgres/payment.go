package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/money"
	"github.com/xenking/storefront-api/internal/domain/payment"
)

const (
	paymentColumns = `id, order_id, order_number, intent_id, method_id, gateway_customer_id,
		amount, refunded_amount, currency, status, method,
		gateway_metadata, method_details, failure_reason, failure_code,
		created_at, paid_at, failed_at, refunded_at`

	createPaymentSQL = `INSERT INTO payments (id, order_id, order_number, intent_id, method_id, gateway_customer_id,
			amount, refunded_amount, currency, status, method,
			gateway_metadata, method_details, failure_reason, failure_code,
			created_at, paid_at, failed_at, refunded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	replacePaymentSQL = `UPDATE payments SET intent_id = $2, method_id = $3, gateway_customer_id = $4,
			amount = $5, refunded_amount = $6, currency = $7, status = $8, method = $9,
			gateway_metadata = $10, method_details = $11, failure_reason = $12, failure_code = $13,
			created_at = $14, paid_at = $15, failed_at = $16, refunded_at = $17
		WHERE id = $1`

	updatePaymentSQL = `UPDATE payments SET method_id = $2, gateway_customer_id = $3,
			refunded_amount = $4, status = $5, method = $6,
			gateway_metadata = $7, method_details = $8, failure_reason = $9, failure_code = $10,
			paid_at = $11, failed_at = $12, refunded_at = $13
		WHERE id = $1`

	getPaymentByIntentSQL = `SELECT ` + paymentColumns + ` FROM payments WHERE intent_id = $1`

	lockPaymentByIntentSQL = `SELECT ` + paymentColumns + ` FROM payments WHERE intent_id = $1 FOR UPDATE`

	getPaymentByOrderSQL = `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL. The
// UNIQUE constraints on order_id and intent_id enforce the 1:1 links at the
// storage level.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Create persists a new payment row.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	_, err := r.pool.Exec(ctx, createPaymentSQL,
		p.ID, p.OrderID, p.OrderNumber, p.IntentID, p.MethodID, p.GatewayCustomerID,
		p.Amount.Decimal(), p.RefundedAmount.Decimal(), p.Amount.Currency(),
		string(p.Status), string(p.Method),
		p.GatewayMetadata, p.MethodDetails, p.FailureReason, p.FailureCode,
		p.CreatedAt, p.PaidAt, p.FailedAt, p.RefundedAt,
	)
	if err != nil {
		return fmt.Errorf("creating payment for order %q: %w", p.OrderNumber, err)
	}
	return nil
}

// Replace overwrites the payment row in place, keeping the id and order
// link. Used when a fresh intent supersedes a dead attempt.
func (r *PaymentRepository) Replace(ctx context.Context, p *payment.Payment) error {
	tag, err := r.pool.Exec(ctx, replacePaymentSQL,
		p.ID, p.IntentID, p.MethodID, p.GatewayCustomerID,
		p.Amount.Decimal(), p.RefundedAmount.Decimal(), p.Amount.Currency(),
		string(p.Status), string(p.Method),
		p.GatewayMetadata, p.MethodDetails, p.FailureReason, p.FailureCode,
		p.CreatedAt, p.PaidAt, p.FailedAt, p.RefundedAt,
	)
	if err != nil {
		return fmt.Errorf("replacing payment %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrNotFound
	}
	return nil
}

// GetByIntentID returns the payment linked to a gateway intent.
func (r *PaymentRepository) GetByIntentID(ctx context.Context, intentID string) (*payment.Payment, error) {
	return r.getOne(ctx, getPaymentByIntentSQL, intentID)
}

// GetByOrderID returns the payment attached to an order.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	return r.getOne(ctx, getPaymentByOrderSQL, orderID)
}

// UpdateByIntentID loads the payment under a row lock, applies fn and writes
// the result back in one transaction. Racing confirm calls and webhook
// deliveries for the same intent serialize on the lock.
func (r *PaymentRepository) UpdateByIntentID(ctx context.Context, intentID string, fn func(*payment.Payment) error) (*payment.Payment, error) {
	var p *payment.Payment
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, lockPaymentByIntentSQL, intentID)
		if err != nil {
			return err
		}
		p, err = pgx.CollectExactlyOneRow(rows, scanPayment)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return payment.ErrNotFound
			}
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, updatePaymentSQL,
			p.ID, p.MethodID, p.GatewayCustomerID,
			p.RefundedAmount.Decimal(), string(p.Status), string(p.Method),
			p.GatewayMetadata, p.MethodDetails, p.FailureReason, p.FailureCode,
			p.PaidAt, p.FailedAt, p.RefundedAt,
		)
		return err
	})
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating payment for intent %q: %w", intentID, err)
	}
	return p, nil
}

func (r *PaymentRepository) getOne(ctx context.Context, sql, arg string) (*payment.Payment, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting payment: %w", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("getting payment: %w", err)
	}
	return p, nil
}

func scanPayment(row pgx.CollectableRow) (*payment.Payment, error) {
	var (
		p        payment.Payment
		amount   decimal.Decimal
		refunded decimal.Decimal
		currency string
		status   string
		method   string
	)
	err := row.Scan(
		&p.ID, &p.OrderID, &p.OrderNumber, &p.IntentID, &p.MethodID, &p.GatewayCustomerID,
		&amount, &refunded, &currency, &status, &method,
		&p.GatewayMetadata, &p.MethodDetails, &p.FailureReason, &p.FailureCode,
		&p.CreatedAt, &p.PaidAt, &p.FailedAt, &p.RefundedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = payment.Status(status)
	p.Method = payment.Method(method)
	if p.Amount, err = money.FromDecimal(amount, currency); err != nil {
		return nil, err
	}
	if p.RefundedAmount, err = money.FromDecimal(refunded, currency); err != nil {
		return nil, err
	}
	return &p, nil
}
