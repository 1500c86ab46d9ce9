// Package order holds the order aggregate: the Order root, its OrderItem
// lines, the customer union, the status machine, and the checkout service.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/money"
	"github.com/xenking/storefront-api/internal/domain/product"
)

// Status enumerates the order lifecycle states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// Valid reports whether s is a member of the status set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// transitions is the normal-flow edge set. Anything else requires
// ForceSetStatus (admin correction).
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled, StatusRefunded},
	StatusProcessing: {StatusShipped, StatusRefunded},
	StatusShipped:    {StatusDelivered, StatusRefunded},
	StatusDelivered:  {StatusRefunded},
}

// InvalidStatusError reports a status value outside the valid set.
type InvalidStatusError struct {
	Status Status
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q", e.Status)
}

// TransitionError reports a forbidden status transition.
type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order status cannot transition from %q to %q", e.From, e.To)
}

// Sentinel errors for the order aggregate.
var (
	ErrNotFound         = errors.New("order not found")
	ErrAlreadyConverted = errors.New("order is already linked to a user")
	ErrCurrencyMismatch = errors.New("order money fields must share one currency")
)

// Address is a billing or shipping address snapshot.
type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Order is the aggregate root for a purchase. Monetary fields are mutated
// through methods so that the single-currency and set-once-timestamp
// invariants hold; Total is only guaranteed consistent after
// CalculateTotal.
type Order struct {
	ID       string
	Number   string
	Customer Customer

	Currency       string
	Subtotal       money.Money
	TaxAmount      money.Money
	ShippingAmount money.Money
	DiscountAmount money.Money
	Total          money.Money

	Status          Status
	Items           []*Item
	BillingAddress  *Address
	ShippingAddress *Address
	Metadata        map[string]string

	CreatedAt   time.Time
	ConfirmedAt *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
}

// New creates a pending order for the given customer with zeroed money
// fields in the given currency.
func New(id, number string, customer Customer, currency string, createdAt time.Time) (*Order, error) {
	zero, err := money.Zero(currency)
	if err != nil {
		return nil, err
	}
	return &Order{
		ID:             id,
		Number:         number,
		Customer:       customer,
		Currency:       zero.Currency(),
		Subtotal:       zero,
		TaxAmount:      zero,
		ShippingAmount: zero,
		DiscountAmount: zero,
		Total:          zero,
		Status:         StatusPending,
		CreatedAt:      createdAt,
	}, nil
}

// IsGuestOrder reports whether the order belongs to a guest.
func (o *Order) IsGuestOrder() bool { return o.Customer.IsGuest() }

// SetCurrency rewrites the currency of every monetary field atomically:
// either all five fields carry the new code afterwards, or none changed.
func (o *Order) SetCurrency(currency string) error {
	fields := []*money.Money{
		&o.Subtotal, &o.TaxAmount, &o.ShippingAmount, &o.DiscountAmount, &o.Total,
	}
	rewritten := make([]money.Money, len(fields))
	for i, f := range fields {
		m, err := money.New(f.Amount(), currency)
		if err != nil {
			return err
		}
		rewritten[i] = m
	}
	for i, f := range fields {
		*f = rewritten[i]
	}
	o.Currency = rewritten[0].Currency()
	return nil
}

// CalculateTotal recomputes Total = Subtotal + Tax + Shipping - Discount.
// Callers must invoke it after changing any component field; the aggregate
// does not recompute on every mutation. A discount exceeding the gross sum
// is a validation failure, not a clamp to zero.
func (o *Order) CalculateTotal() error {
	gross, err := o.Subtotal.Add(o.TaxAmount)
	if err != nil {
		return errors.Wrap(ErrCurrencyMismatch, err.Error())
	}
	gross, err = gross.Add(o.ShippingAmount)
	if err != nil {
		return errors.Wrap(ErrCurrencyMismatch, err.Error())
	}
	total, err := gross.Sub(o.DiscountAmount)
	if err != nil {
		if errors.Is(err, money.ErrCurrencyMismatch) {
			return errors.Wrap(ErrCurrencyMismatch, err.Error())
		}
		return errors.Wrap(err, "discount exceeds order value")
	}
	o.Total = total
	return nil
}

// SetStatus moves the order along the normal-flow transition graph and
// stamps entry timestamps set-once. Re-applying the current status is a
// no-op, so racing writers cannot double-stamp.
func (o *Order) SetStatus(status Status, now time.Time) error {
	return o.setStatus(status, now, false)
}

// ForceSetStatus is the admin escape hatch: it accepts any valid status
// regardless of the transition graph, with the same set-once stamping.
func (o *Order) ForceSetStatus(status Status, now time.Time) error {
	return o.setStatus(status, now, true)
}

func (o *Order) setStatus(status Status, now time.Time, force bool) error {
	if !status.Valid() {
		return &InvalidStatusError{Status: status}
	}
	if status == o.Status {
		return nil
	}
	if !force && !canTransition(o.Status, status) {
		return &TransitionError{From: o.Status, To: status}
	}

	o.Status = status
	switch status {
	case StatusConfirmed:
		if o.ConfirmedAt == nil {
			o.ConfirmedAt = &now
		}
	case StatusShipped:
		if o.ShippedAt == nil {
			o.ShippedAt = &now
		}
	case StatusDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
	}
	return nil
}

func canTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanBeCancelled reports whether the order may still be cancelled.
func (o *Order) CanBeCancelled() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed
}

// CanBeRefunded reports whether the order is in a refundable state.
func (o *Order) CanBeRefunded() bool {
	switch o.Status {
	case StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

// ConvertToUser rebinds a guest order to a registered user, dropping the
// guest contact bundle. Converting an order that already belongs to a user
// fails with ErrAlreadyConverted; double invocation is therefore safe.
func (o *Order) ConvertToUser(userID, email, firstName, lastName string) error {
	if !o.Customer.IsGuest() {
		return ErrAlreadyConverted
	}
	o.Customer = ForUser(userID, email, firstName, lastName)
	return nil
}

// Item is a single order line with a price and identity snapshot taken at
// checkout time. Later catalog edits never alter it.
type Item struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	ProductSKU  string
	UnitPrice   money.Money
	Quantity    int
	TotalPrice  money.Money
}

// NewItem snapshots the product's current name, SKU and price into a line.
func NewItem(id string, p *product.Product, quantity int) (*Item, error) {
	it := &Item{
		ID:          id,
		ProductID:   p.ID,
		ProductName: p.Name,
		ProductSKU:  p.SKU,
		UnitPrice:   p.Price,
		Quantity:    quantity,
	}
	if err := it.recalculate(); err != nil {
		return nil, err
	}
	return it, nil
}

// SetQuantity updates the quantity and recomputes the line total.
func (it *Item) SetQuantity(quantity int) error {
	it.Quantity = quantity
	return it.recalculate()
}

// SetUnitPrice updates the unit price and recomputes the line total.
func (it *Item) SetUnitPrice(price money.Money) error {
	it.UnitPrice = price
	return it.recalculate()
}

func (it *Item) recalculate() error {
	total, err := it.UnitPrice.MulInt(it.Quantity)
	if err != nil {
		return err
	}
	it.TotalPrice = total
	return nil
}

// Repository defines persistence for the order aggregate. Create persists
// the order and all of its items atomically. UpdateByNumber runs fn against
// the row-locked aggregate and writes the result back in one transaction.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByNumber(ctx context.Context, number string) (*Order, error)
	UpdateByNumber(ctx context.Context, number string, fn func(*Order) error) (*Order, error)
	FindOpen(ctx context.Context, limit int) ([]*Order, error)
	FindRecentForUser(ctx context.Context, userID string, limit int) ([]*Order, error)
	FindForGuestEmail(ctx context.Context, email string, limit int) ([]*Order, error)
}
