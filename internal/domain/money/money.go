// Package money provides an immutable monetary value object: a decimal
// amount normalized to two fraction digits paired with an ISO-4217 currency
// code. All arithmetic is currency-guarded; mixing currencies is an error,
// never a silent magnitude comparison.
package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for invalid monetary operations.
var (
	ErrNegativeAmount     = errors.New("amount must not be negative")
	ErrInvalidAmount      = errors.New("amount is not a valid decimal")
	ErrInvalidCurrency    = errors.New("currency must be a 3-letter ISO code")
	ErrCurrencyMismatch   = errors.New("currency mismatch")
	ErrNegativeResult     = errors.New("operation would produce a negative amount")
	ErrNegativeMultiplier = errors.New("multiplier must not be negative")
)

var hundred = decimal.NewFromInt(100)

// Money is an immutable amount of a single currency. The zero value is not
// usable; construct values through New, Zero, FromFloat or FromCents.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New parses amount and pairs it with currency. The amount is normalized to
// exactly two fraction digits; negative amounts and malformed currency codes
// are rejected.
func New(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, errors.Wrapf(ErrInvalidAmount, "%q", amount)
	}
	if d.IsNegative() {
		return Money{}, errors.Wrapf(ErrNegativeAmount, "%q", amount)
	}
	code, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: d.Round(2), currency: code}, nil
}

// MustNew is New for statically known inputs; it panics on error.
// Intended for tests and constants.
func MustNew(amount, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns the zero amount of the given currency.
func Zero(currency string) (Money, error) {
	return New("0", currency)
}

// FromFloat converts a float to Money, rounding to two fraction digits.
func FromFloat(amount float64, currency string) (Money, error) {
	return New(decimal.NewFromFloat(amount).Round(2).String(), currency)
}

// FromCents converts a minor-unit integer (cents) to Money.
func FromCents(cents int64, currency string) (Money, error) {
	if cents < 0 {
		return Money{}, ErrNegativeAmount
	}
	code, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: decimal.NewFromInt(cents).Div(hundred), currency: code}, nil
}

// FromDecimal pairs an existing decimal with a currency, applying the same
// validation and normalization as New.
func FromDecimal(d decimal.Decimal, currency string) (Money, error) {
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	code, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: d.Round(2), currency: code}, nil
}

func normalizeCurrency(currency string) (string, error) {
	if len(currency) != 3 {
		return "", errors.Wrapf(ErrInvalidCurrency, "%q", currency)
	}
	for i := range len(currency) {
		c := currency[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return "", errors.Wrapf(ErrInvalidCurrency, "%q", currency)
		}
	}
	return strings.ToUpper(currency), nil
}

// Amount returns the normalized amount with exactly two fraction digits.
func (m Money) Amount() string { return m.amount.StringFixed(2) }

// Currency returns the uppercase ISO-4217 code.
func (m Money) Currency() string { return m.currency }

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.amount }

// Float returns the amount as a float64. Lossy; for presentation only.
func (m Money) Float() float64 { return m.amount.InexactFloat64() }

// Cents returns the amount in minor units, rounded to the nearest cent.
func (m Money) Cents() int64 {
	return m.amount.Mul(hundred).Round(0).IntPart()
}

// Add returns m + other. The currencies must match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub returns m - other. The currencies must match and the result must not
// be negative.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	d := m.amount.Sub(other.amount)
	if d.IsNegative() {
		return Money{}, errors.Wrapf(ErrNegativeResult, "%s - %s", m, other)
	}
	return Money{amount: d, currency: m.currency}, nil
}

// MulInt returns m * n for a non-negative integer multiplier.
func (m Money) MulInt(n int) (Money, error) {
	if n < 0 {
		return Money{}, errors.Wrapf(ErrNegativeMultiplier, "%d", n)
	}
	return Money{
		amount:   m.amount.Mul(decimal.NewFromInt(int64(n))).Round(2),
		currency: m.currency,
	}, nil
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// GreaterThan reports m > other. The currencies must match.
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

// GreaterThanOrEqual reports m >= other. The currencies must match.
func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThanOrEqual(other.amount), nil
}

// LessThan reports m < other. The currencies must match.
func (m Money) LessThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.LessThan(other.amount), nil
}

// Equal reports structural equality: same normalized amount and currency.
// Values in different currencies are never equal.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// Format renders the amount with a currency symbol for USD/EUR/GBP and as
// "12.34 XTS" for everything else.
func (m Money) Format() string {
	if sym, ok := symbols[m.currency]; ok {
		return sym + m.amount.StringFixed(2)
	}
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

// String implements fmt.Stringer as "<amount> <CODE>".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

// MarshalJSON renders the wire shape consumed by clients: the exact string
// amount plus a lossy float and a display string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount      string  `json:"amount"`
		Currency    string  `json:"currency"`
		AmountFloat float64 `json:"amount_float"`
		Formatted   string  `json:"formatted"`
	}{
		Amount:      m.Amount(),
		Currency:    m.currency,
		AmountFloat: m.Float(),
		Formatted:   m.Format(),
	})
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return errors.Wrapf(ErrCurrencyMismatch, "%s vs %s", m.currency, other.currency)
	}
	return nil
}
