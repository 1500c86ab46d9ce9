package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/money"
	"github.com/xenking/storefront-api/internal/domain/product"
)

func usd(t *testing.T, amount string) money.Money {
	t.Helper()
	m, err := money.New(amount, "USD")
	require.NoError(t, err)
	return m
}

func newTestOrder(t *testing.T, customer Customer) *Order {
	t.Helper()
	o, err := New("id-1", "ORD-20260301-ABC234", customer, "USD", time.Now())
	require.NoError(t, err)
	return o
}

func guest() Customer {
	return ForGuest("jane@example.com", "Jane", "Doe", "+15550001111")
}

func TestOrder_CalculateTotal(t *testing.T) {
	o := newTestOrder(t, guest())
	o.Subtotal = usd(t, "100.00")
	o.TaxAmount = usd(t, "8.50")
	o.ShippingAmount = usd(t, "15.00")
	o.DiscountAmount = usd(t, "5.00")

	require.NoError(t, o.CalculateTotal())
	assert.Equal(t, "118.50", o.Total.Amount())
}

func TestOrder_CalculateTotal_DiscountExceedsValue(t *testing.T) {
	o := newTestOrder(t, guest())
	o.Subtotal = usd(t, "10.00")
	o.DiscountAmount = usd(t, "50.00")

	err := o.CalculateTotal()
	require.Error(t, err)
	assert.Equal(t, "0.00", o.Total.Amount(), "total must stay untouched on failure")
}

func TestOrder_CalculateTotal_CurrencyMismatch(t *testing.T) {
	o := newTestOrder(t, guest())
	o.Subtotal = usd(t, "10.00")
	eur, err := money.New("1.00", "EUR")
	require.NoError(t, err)
	o.TaxAmount = eur

	require.ErrorIs(t, o.CalculateTotal(), ErrCurrencyMismatch)
}

func TestOrder_SetCurrency_RewritesAllFields(t *testing.T) {
	o := newTestOrder(t, guest())
	o.Subtotal = usd(t, "100.00")
	require.NoError(t, o.CalculateTotal())

	require.NoError(t, o.SetCurrency("eur"))

	assert.Equal(t, "EUR", o.Currency)
	for _, m := range []money.Money{o.Subtotal, o.TaxAmount, o.ShippingAmount, o.DiscountAmount, o.Total} {
		assert.Equal(t, "EUR", m.Currency())
	}
	assert.Equal(t, "100.00", o.Subtotal.Amount(), "amounts survive a currency rewrite")

	require.Error(t, o.SetCurrency("nope"), "invalid code leaves fields untouched")
	assert.Equal(t, "EUR", o.Subtotal.Currency())
}

func TestOrder_StatusTransitions(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("forward path stamps timestamps", func(t *testing.T) {
		o := newTestOrder(t, guest())

		require.NoError(t, o.SetStatus(StatusConfirmed, now))
		require.NotNil(t, o.ConfirmedAt)
		assert.Equal(t, now, *o.ConfirmedAt)

		require.NoError(t, o.SetStatus(StatusProcessing, now))
		require.NoError(t, o.SetStatus(StatusShipped, now))
		require.NotNil(t, o.ShippedAt)

		require.NoError(t, o.SetStatus(StatusDelivered, now))
		require.NotNil(t, o.DeliveredAt)
	})

	t.Run("confirmed timestamp is set once", func(t *testing.T) {
		o := newTestOrder(t, guest())
		first := now
		later := now.Add(time.Hour)

		require.NoError(t, o.SetStatus(StatusConfirmed, first))
		require.NoError(t, o.SetStatus(StatusConfirmed, later))

		require.NotNil(t, o.ConfirmedAt)
		assert.Equal(t, first, *o.ConfirmedAt)
	})

	t.Run("backward transition rejected", func(t *testing.T) {
		o := newTestOrder(t, guest())
		require.NoError(t, o.SetStatus(StatusConfirmed, now))

		err := o.SetStatus(StatusPending, now)
		var te *TransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, StatusConfirmed, o.Status)
	})

	t.Run("force bypasses the graph", func(t *testing.T) {
		o := newTestOrder(t, guest())
		require.NoError(t, o.SetStatus(StatusConfirmed, now))
		require.NoError(t, o.ForceSetStatus(StatusPending, now))
		assert.Equal(t, StatusPending, o.Status)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		o := newTestOrder(t, guest())
		err := o.SetStatus(Status("sideways"), now)
		var ise *InvalidStatusError
		require.ErrorAs(t, err, &ise)
	})

	t.Run("cancel only from pending or confirmed", func(t *testing.T) {
		o := newTestOrder(t, guest())
		assert.True(t, o.CanBeCancelled())

		require.NoError(t, o.SetStatus(StatusConfirmed, now))
		assert.True(t, o.CanBeCancelled())
		require.NoError(t, o.SetStatus(StatusProcessing, now))
		assert.False(t, o.CanBeCancelled())

		err := o.SetStatus(StatusCancelled, now)
		var te *TransitionError
		require.ErrorAs(t, err, &te)
	})

	t.Run("refundable window", func(t *testing.T) {
		o := newTestOrder(t, guest())
		assert.False(t, o.CanBeRefunded())
		require.NoError(t, o.SetStatus(StatusConfirmed, now))
		assert.True(t, o.CanBeRefunded())
		require.NoError(t, o.SetStatus(StatusRefunded, now))
		assert.False(t, o.CanBeRefunded())
	})
}

func TestOrder_CustomerVariants(t *testing.T) {
	t.Run("guest order", func(t *testing.T) {
		o := newTestOrder(t, guest())
		assert.True(t, o.IsGuestOrder())
		assert.Equal(t, "jane@example.com", o.Customer.Email())
		assert.Equal(t, "Jane Doe", o.Customer.Name())
		assert.True(t, o.Customer.EmailMatches("JANE@EXAMPLE.COM"))
	})

	t.Run("user order", func(t *testing.T) {
		o := newTestOrder(t, ForUser("u-1", "bob@example.com", "Bob", "Smith"))
		assert.False(t, o.IsGuestOrder())
		id, ok := o.Customer.UserID()
		require.True(t, ok)
		assert.Equal(t, "u-1", id)
		assert.Equal(t, "bob@example.com", o.Customer.Email())
	})

	t.Run("guest conversion", func(t *testing.T) {
		o := newTestOrder(t, guest())
		require.NoError(t, o.ConvertToUser("u-2", "jane@example.com", "Jane", "Doe"))
		assert.False(t, o.IsGuestOrder())

		err := o.ConvertToUser("u-3", "eve@example.com", "Eve", "Adams")
		require.ErrorIs(t, err, ErrAlreadyConverted)
		id, _ := o.Customer.UserID()
		assert.Equal(t, "u-2", id, "double conversion must not re-link")
	})
}

func TestItem_TotalPrice(t *testing.T) {
	p := &product.Product{
		ID:    "p1",
		Name:  "Waffle",
		SKU:   "WFL-001",
		Price: money.MustNew("49.99", "USD"),
	}

	it, err := NewItem("i1", p, 2)
	require.NoError(t, err)
	assert.Equal(t, "99.98", it.TotalPrice.Amount())
	assert.Equal(t, "Waffle", it.ProductName)
	assert.Equal(t, "WFL-001", it.ProductSKU)

	require.NoError(t, it.SetQuantity(3))
	assert.Equal(t, "149.97", it.TotalPrice.Amount())

	require.NoError(t, it.SetQuantity(0))
	assert.True(t, it.TotalPrice.IsZero())

	require.NoError(t, it.SetUnitPrice(money.MustNew("10.00", "USD")))
	require.NoError(t, it.SetQuantity(4))
	assert.Equal(t, "40.00", it.TotalPrice.Amount())
}

func TestNewNumber(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seen := make(map[string]bool)
	for range 100 {
		n := NewNumber(now)
		assert.LessOrEqual(t, len(n), 20)
		assert.True(t, ValidNumber(n), "number %q must match [A-Z0-9-]+", n)
		assert.Contains(t, n, "ORD-20260301-")
		assert.False(t, seen[n], "numbers should not repeat in a small sample")
		seen[n] = true
	}
}
