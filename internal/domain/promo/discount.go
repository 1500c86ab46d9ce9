package promo

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/money"
)

var hundred = decimal.NewFromInt(100)

// Apply calculates the discount for the given rule and cart items. The
// result never exceeds the cart subtotal and is never negative. It returns
// ErrInvalidCode when the cart does not satisfy the rule's minimum item
// count.
func Apply(rule *Rule, items []Item) (Discount, error) {
	if len(items) == 0 {
		return Discount{}, ErrInvalidCode
	}
	if rule.MinItems > 0 && totalQuantity(items) < rule.MinItems {
		return Discount{}, ErrInvalidCode
	}

	subtotal, err := calcSubtotal(items)
	if err != nil {
		return Discount{}, err
	}

	var raw decimal.Decimal
	switch rule.Type {
	case DiscountPercentage:
		raw = subtotal.Decimal().Mul(rule.Value).Div(hundred)
	case DiscountFixed:
		raw = decimal.Min(rule.Value, subtotal.Decimal())
	case DiscountFreeLowest:
		raw = lowestUnitPrice(items)
	default:
		return Discount{}, errors.Errorf("unsupported discount type: %q", rule.Type)
	}

	if raw.IsNegative() {
		raw = decimal.Zero
	}
	if raw.GreaterThan(subtotal.Decimal()) {
		raw = subtotal.Decimal()
	}

	amount, err := money.FromDecimal(raw, subtotal.Currency())
	if err != nil {
		return Discount{}, err
	}
	return Discount{Amount: amount, Description: rule.Description}, nil
}

func totalQuantity(items []Item) int {
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return total
}

func calcSubtotal(items []Item) (money.Money, error) {
	subtotal, err := money.Zero(items[0].Price.Currency())
	if err != nil {
		return money.Money{}, err
	}
	for _, it := range items {
		line, err := it.Price.MulInt(it.Quantity)
		if err != nil {
			return money.Money{}, err
		}
		subtotal, err = subtotal.Add(line)
		if err != nil {
			return money.Money{}, err
		}
	}
	return subtotal, nil
}

func lowestUnitPrice(items []Item) decimal.Decimal {
	lowest := items[0].Price.Decimal()
	for _, it := range items[1:] {
		if p := it.Price.Decimal(); p.LessThan(lowest) {
			lowest = p
		}
	}
	return lowest
}
