package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Normalization(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     string
		wantCur  string
		wantErr  error
	}{
		{name: "integer gets two decimals", amount: "10", currency: "USD", want: "10.00", wantCur: "USD"},
		{name: "one decimal padded", amount: "10.5", currency: "USD", want: "10.50", wantCur: "USD"},
		{name: "three decimals rounded", amount: "10.555", currency: "USD", want: "10.56", wantCur: "USD"},
		{name: "lowercase currency uppercased", amount: "1.00", currency: "usd", want: "1.00", wantCur: "USD"},
		{name: "zero", amount: "0", currency: "EUR", want: "0.00", wantCur: "EUR"},
		{name: "negative rejected", amount: "-1.00", currency: "USD", wantErr: ErrNegativeAmount},
		{name: "garbage rejected", amount: "ten", currency: "USD", wantErr: ErrInvalidAmount},
		{name: "empty currency rejected", amount: "1.00", currency: "", wantErr: ErrInvalidCurrency},
		{name: "short currency rejected", amount: "1.00", currency: "US", wantErr: ErrInvalidCurrency},
		{name: "numeric currency rejected", amount: "1.00", currency: "U5D", wantErr: ErrInvalidCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.amount, tt.currency)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Amount())
			assert.Equal(t, tt.wantCur, m.Currency())
		})
	}
}

func TestNew_ReparseIdempotent(t *testing.T) {
	for _, s := range []string{"0", "1", "10.5", "10.555", "99999.99", "0.004", "0.005"} {
		m, err := New(s, "USD")
		require.NoError(t, err)

		again, err := New(m.Amount(), "USD")
		require.NoError(t, err)
		assert.Equal(t, m.Amount(), again.Amount(), "re-parsing %q must be stable", s)
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	usd10 := MustNew("10.00", "USD")
	usd5 := MustNew("5.00", "USD")
	eur5 := MustNew("5.00", "EUR")

	t.Run("add same currency", func(t *testing.T) {
		got, err := usd10.Add(usd5)
		require.NoError(t, err)
		assert.Equal(t, "15.00", got.Amount())
	})

	t.Run("add currency mismatch", func(t *testing.T) {
		_, err := usd10.Add(eur5)
		require.ErrorIs(t, err, ErrCurrencyMismatch)
	})

	t.Run("sub ok", func(t *testing.T) {
		got, err := usd10.Sub(usd5)
		require.NoError(t, err)
		assert.Equal(t, "5.00", got.Amount())
	})

	t.Run("sub negative result rejected", func(t *testing.T) {
		_, err := usd5.Sub(usd10)
		require.ErrorIs(t, err, ErrNegativeResult)
	})

	t.Run("sub currency mismatch", func(t *testing.T) {
		_, err := usd10.Sub(eur5)
		require.ErrorIs(t, err, ErrCurrencyMismatch)
	})

	t.Run("mul", func(t *testing.T) {
		got, err := MustNew("49.99", "USD").MulInt(2)
		require.NoError(t, err)
		assert.Equal(t, "99.98", got.Amount())
	})

	t.Run("mul by zero", func(t *testing.T) {
		got, err := usd10.MulInt(0)
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("mul negative rejected", func(t *testing.T) {
		_, err := usd10.MulInt(-1)
		require.ErrorIs(t, err, ErrNegativeMultiplier)
	})
}

func TestMoney_Comparisons(t *testing.T) {
	usd10 := MustNew("10.00", "USD")
	usd5 := MustNew("5.00", "USD")
	eur10 := MustNew("10.00", "EUR")

	gt, err := usd10.GreaterThan(usd5)
	require.NoError(t, err)
	assert.True(t, gt)

	lt, err := usd5.LessThan(usd10)
	require.NoError(t, err)
	assert.True(t, lt)

	_, err = usd10.GreaterThan(eur10)
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	assert.True(t, usd10.Equal(MustNew("10", "USD")))
	assert.False(t, usd10.Equal(eur10), "same magnitude, different currency")
}

func TestMoney_Cents(t *testing.T) {
	tests := []struct {
		amount string
		cents  int64
	}{
		{"0.00", 0},
		{"0.01", 1},
		{"10.00", 1000},
		{"49.99", 4999},
		{"118.50", 11850},
	}
	for _, tt := range tests {
		m := MustNew(tt.amount, "USD")
		assert.Equal(t, tt.cents, m.Cents(), "cents of %s", tt.amount)

		back, err := FromCents(tt.cents, "USD")
		require.NoError(t, err)
		assert.True(t, m.Equal(back), "FromCents round-trip of %s", tt.amount)
	}
}

func TestMoney_FromFloat(t *testing.T) {
	m, err := FromFloat(49.99, "usd")
	require.NoError(t, err)
	assert.Equal(t, "49.99", m.Amount())
	assert.Equal(t, "USD", m.Currency())

	_, err = FromFloat(-0.01, "USD")
	require.Error(t, err)
}

func TestMoney_Format(t *testing.T) {
	assert.Equal(t, "$12.34", MustNew("12.34", "USD").Format())
	assert.Equal(t, "€12.34", MustNew("12.34", "EUR").Format())
	assert.Equal(t, "£12.34", MustNew("12.34", "GBP").Format())
	assert.Equal(t, "12.34 JPY", MustNew("12.34", "JPY").Format())
}

func TestMoney_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(MustNew("49.9", "usd"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"49.90","currency":"USD","amount_float":49.9,"formatted":"$49.90"}`, string(data))
}
