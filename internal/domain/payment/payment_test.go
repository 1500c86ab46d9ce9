package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/money"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestPayment(t *testing.T, amount string) *Payment {
	t.Helper()
	p, err := New("pay-1", "ord-1", "ORD-20260301-ABC234", "pi_123",
		money.MustNew(amount, "USD"), testNow)
	require.NoError(t, err)
	return p
}

func TestPayment_New(t *testing.T) {
	p := newTestPayment(t, "100.00")
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, "0.00", p.RefundedAmount.Amount())
	assert.Equal(t, "USD", p.RefundedAmount.Currency())
	assert.Nil(t, p.PaidAt)
}

func TestPayment_MarkSucceeded_Idempotent(t *testing.T) {
	p := newTestPayment(t, "100.00")
	first := testNow
	later := testNow.Add(time.Minute)

	require.NoError(t, p.MarkSucceeded(first))
	assert.Equal(t, StatusSucceeded, p.Status)
	require.NotNil(t, p.PaidAt)

	require.NoError(t, p.MarkSucceeded(later))
	assert.Equal(t, first, *p.PaidAt, "PaidAt must be stamped exactly once")
}

func TestPayment_MarkSucceeded_AfterFailureConflicts(t *testing.T) {
	p := newTestPayment(t, "100.00")
	require.NoError(t, p.MarkFailed(testNow, "card_declined", "card_declined"))

	var se *StateError
	require.ErrorAs(t, p.MarkSucceeded(testNow), &se)
	assert.Equal(t, StatusFailed, p.Status)
}

func TestPayment_MarkFailed(t *testing.T) {
	p := newTestPayment(t, "100.00")
	require.NoError(t, p.MarkFailed(testNow, "insufficient funds", "card_declined"))
	assert.Equal(t, StatusFailed, p.Status)
	assert.Equal(t, "insufficient funds", p.FailureReason)
	require.NotNil(t, p.FailedAt)

	// Redelivered failure notification: no-op, no re-stamp.
	require.NoError(t, p.MarkFailed(testNow.Add(time.Hour), "again", "x"))
	assert.Equal(t, testNow, *p.FailedAt)
	assert.Equal(t, "insufficient funds", p.FailureReason)

	p2 := newTestPayment(t, "100.00")
	require.NoError(t, p2.MarkSucceeded(testNow))
	var se *StateError
	require.ErrorAs(t, p2.MarkFailed(testNow, "late", "x"), &se)
}

func TestPayment_MarkProcessing_NeverDowngrades(t *testing.T) {
	p := newTestPayment(t, "100.00")
	p.MarkProcessing()
	assert.Equal(t, StatusProcessing, p.Status)

	require.NoError(t, p.MarkSucceeded(testNow))
	p.MarkProcessing()
	assert.Equal(t, StatusSucceeded, p.Status, "stale processing must not overwrite succeeded")
}

func TestPayment_AddRefund_Bound(t *testing.T) {
	p := newTestPayment(t, "100.00")
	require.NoError(t, p.MarkSucceeded(testNow))

	err := p.AddRefund(money.MustNew("150.00", "USD"), testNow)
	require.ErrorIs(t, err, ErrRefundExceedsAmount)
	assert.Equal(t, "0.00", p.RefundedAmount.Amount(), "failed refund must leave the ledger untouched")
	assert.Equal(t, StatusSucceeded, p.Status)
	assert.Nil(t, p.RefundedAt)
}

func TestPayment_AddRefund_Escalation(t *testing.T) {
	p := newTestPayment(t, "100.00")
	require.NoError(t, p.MarkSucceeded(testNow))

	require.NoError(t, p.AddRefund(money.MustNew("30.00", "USD"), testNow))
	assert.Equal(t, StatusPartiallyRefunded, p.Status)
	assert.Equal(t, "30.00", p.RefundedAmount.Amount())
	require.NotNil(t, p.RefundedAt)
	first := *p.RefundedAt

	require.NoError(t, p.AddRefund(money.MustNew("70.00", "USD"), testNow.Add(time.Hour)))
	assert.Equal(t, StatusRefunded, p.Status)
	assert.Equal(t, "100.00", p.RefundedAmount.Amount())
	assert.Equal(t, first, *p.RefundedAt, "RefundedAt stamped on first refund only")
	assert.True(t, p.IsFullyRefunded())

	// Ledger is full: even one more cent must be rejected.
	err := p.AddRefund(money.MustNew("0.01", "USD"), testNow)
	require.ErrorIs(t, err, ErrRefundExceedsAmount)
}

func TestPayment_AddRefund_CurrencyGuard(t *testing.T) {
	p := newTestPayment(t, "100.00")
	require.NoError(t, p.MarkSucceeded(testNow))
	require.ErrorIs(t, p.AddRefund(money.MustNew("10.00", "EUR"), testNow), ErrRefundCurrency)
}

func TestPayment_CanBeRefunded(t *testing.T) {
	p := newTestPayment(t, "100.00")
	assert.False(t, p.CanBeRefunded(), "pending payment is not refundable")

	require.NoError(t, p.MarkSucceeded(testNow))
	assert.True(t, p.CanBeRefunded())

	require.NoError(t, p.AddRefund(money.MustNew("100.00", "USD"), testNow))
	assert.False(t, p.CanBeRefunded(), "fully refunded payment is not refundable")
}

func TestPayment_Cancel(t *testing.T) {
	p := newTestPayment(t, "50.00")
	require.NoError(t, p.Cancel())
	assert.Equal(t, StatusCancelled, p.Status)
	require.NoError(t, p.Cancel(), "cancel is idempotent")

	p2 := newTestPayment(t, "50.00")
	require.NoError(t, p2.MarkSucceeded(testNow))
	var se *StateError
	require.ErrorAs(t, p2.Cancel(), &se)
}
