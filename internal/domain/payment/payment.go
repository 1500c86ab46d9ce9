// Package payment holds the Payment record attached 1:1 to an order and the
// reconciliation service that keeps it consistent with the external gateway.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/money"
)

// Status enumerates the payment lifecycle states.
type Status string

const (
	StatusPending           Status = "pending"
	StatusProcessing        Status = "processing"
	StatusSucceeded         Status = "succeeded"
	StatusFailed            Status = "failed"
	StatusCancelled         Status = "cancelled"
	StatusRefunded          Status = "refunded"
	StatusPartiallyRefunded Status = "partially_refunded"
)

// Valid reports whether s is a member of the status set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSucceeded, StatusFailed,
		StatusCancelled, StatusRefunded, StatusPartiallyRefunded:
		return true
	}
	return false
}

// Method enumerates supported payment instruments.
type Method string

const (
	MethodCard         Method = "card"
	MethodBankTransfer Method = "bank_transfer"
	MethodWallet       Method = "wallet"
)

// Sentinel errors for the payment record.
var (
	ErrNotFound            = errors.New("payment not found")
	ErrRefundExceedsAmount = errors.New("refund exceeds payment amount")
	ErrRefundCurrency      = errors.New("refund currency must match payment currency")
)

// StateError reports an operation applied in an incompatible payment state.
type StateError struct {
	Op     string
	Status Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s payment in status %q", e.Op, e.Status)
}

// Payment tracks one gateway payment intent for one order. Mutations go
// through methods: status entry timestamps are set-once so that a racing
// confirm call and webhook delivery cannot double-stamp, and the refund
// ledger enforces refunded <= amount as a hard bound.
type Payment struct {
	ID          string
	OrderID     string
	OrderNumber string

	IntentID          string
	MethodID          string
	GatewayCustomerID string

	Amount         money.Money
	RefundedAmount money.Money
	Status         Status
	Method         Method

	GatewayMetadata map[string]string
	MethodDetails   map[string]string
	FailureReason   string
	FailureCode     string

	CreatedAt  time.Time
	PaidAt     *time.Time
	FailedAt   *time.Time
	RefundedAt *time.Time
}

// New creates a pending payment for the given intent with a zeroed refund
// ledger in the amount's currency.
func New(id, orderID, orderNumber, intentID string, amount money.Money, createdAt time.Time) (*Payment, error) {
	zero, err := money.Zero(amount.Currency())
	if err != nil {
		return nil, err
	}
	return &Payment{
		ID:             id,
		OrderID:        orderID,
		OrderNumber:    orderNumber,
		IntentID:       intentID,
		Amount:         amount,
		RefundedAmount: zero,
		Status:         StatusPending,
		CreatedAt:      createdAt,
	}, nil
}

// MarkProcessing moves a pending payment to processing. Applying it to a
// payment that already advanced further is a no-op: gateway notifications
// can arrive out of order and must never downgrade local state.
func (p *Payment) MarkProcessing() {
	if p.Status == StatusPending {
		p.Status = StatusProcessing
	}
}

// MarkSucceeded records gateway success. Idempotent: a second application
// (the confirm/webhook race) changes nothing and keeps the original PaidAt.
// Success after the refund statuses is treated as stale and ignored;
// success after failed or cancelled is a state conflict.
func (p *Payment) MarkSucceeded(now time.Time) error {
	switch p.Status {
	case StatusSucceeded, StatusRefunded, StatusPartiallyRefunded:
		return nil
	case StatusFailed, StatusCancelled:
		return &StateError{Op: "succeed", Status: p.Status}
	}
	p.Status = StatusSucceeded
	if p.PaidAt == nil {
		p.PaidAt = &now
	}
	return nil
}

// MarkFailed records gateway failure with the given reason and code.
// Idempotent for repeated failure notifications; failing a payment that
// already succeeded is a state conflict.
func (p *Payment) MarkFailed(now time.Time, reason, code string) error {
	switch p.Status {
	case StatusFailed:
		return nil
	case StatusSucceeded, StatusRefunded, StatusPartiallyRefunded:
		return &StateError{Op: "fail", Status: p.Status}
	}
	p.Status = StatusFailed
	p.FailureReason = reason
	p.FailureCode = code
	if p.FailedAt == nil {
		p.FailedAt = &now
	}
	return nil
}

// Cancel voids a payment that has not reached a terminal state.
func (p *Payment) Cancel() error {
	switch p.Status {
	case StatusCancelled:
		return nil
	case StatusPending, StatusProcessing:
		p.Status = StatusCancelled
		return nil
	}
	return &StateError{Op: "cancel", Status: p.Status}
}

// AddRefund accumulates a refund into the ledger. A refund pushing the
// total over the payment amount fails hard and leaves the ledger untouched.
// The status is re-derived on every call, so repeated partial refunds
// escalate to a full refund without the caller tracking cumulative state.
func (p *Payment) AddRefund(amount money.Money, now time.Time) error {
	if amount.Currency() != p.Amount.Currency() {
		return errors.Wrapf(ErrRefundCurrency, "%s vs %s", amount.Currency(), p.Amount.Currency())
	}
	total, err := p.RefundedAmount.Add(amount)
	if err != nil {
		return err
	}
	over, err := total.GreaterThan(p.Amount)
	if err != nil {
		return err
	}
	if over {
		return errors.Wrapf(ErrRefundExceedsAmount, "%s + %s > %s", p.RefundedAmount, amount, p.Amount)
	}

	p.RefundedAmount = total
	switch full, _ := p.RefundedAmount.GreaterThanOrEqual(p.Amount); {
	case full:
		p.Status = StatusRefunded
	case p.RefundedAmount.IsPositive():
		p.Status = StatusPartiallyRefunded
	}
	if p.RefundedAt == nil {
		p.RefundedAt = &now
	}
	return nil
}

// CanBeRefunded reports whether a refund may be initiated against a payment
// that has not been refunded yet.
func (p *Payment) CanBeRefunded() bool {
	if p.Status != StatusSucceeded {
		return false
	}
	full, err := p.RefundedAmount.GreaterThanOrEqual(p.Amount)
	return err == nil && !full
}

// IsFullyRefunded reports whether the ledger covers the whole amount.
func (p *Payment) IsFullyRefunded() bool {
	full, err := p.RefundedAmount.GreaterThanOrEqual(p.Amount)
	return err == nil && full
}

// Repository defines persistence for payments. UpdateByIntentID runs fn
// against the row-locked payment and writes the result back in one
// transaction, serializing racing confirm calls and webhook deliveries.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Replace(ctx context.Context, p *Payment) error
	GetByIntentID(ctx context.Context, intentID string) (*Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)
	UpdateByIntentID(ctx context.Context, intentID string, fn func(*Payment) error) (*Payment, error)
}
