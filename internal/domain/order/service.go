package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/storefront-api/internal/domain/money"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/promo"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyLines           = errors.New("order lines required")
	ErrGuestContactRequired = errors.New("guest checkout requires email and name")
	ErrUserRequired         = errors.New("user checkout requires an authenticated user")
)

// ProductNotFoundError indicates a drafted product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// ProductUnavailableError indicates a drafted product is not purchasable.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available", e.ProductID)
}

// InvalidQuantityError indicates a draft line has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// DraftLine is a product/quantity pair from the cart.
type DraftLine struct {
	ProductID string
	Quantity  int
}

// Draft is a validated cart ready for checkout. Monetary overrides are
// optional; when present they must be in the draft currency. PromoCode is
// ignored when an explicit DiscountAmount override is supplied.
type Draft struct {
	Lines    []DraftLine
	Customer Customer
	Currency string

	TaxAmount      *money.Money
	ShippingAmount *money.Money
	DiscountAmount *money.Money
	PromoCode      string

	BillingAddress  *Address
	ShippingAddress *Address
	Metadata        map[string]string
}

// UserRef identifies a registered user for checkout and guest conversion.
type UserRef struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// Service implements the checkout workflow: it turns a Draft into a
// persisted Order with snapshotted item prices and a consistent total.
type Service struct {
	products        product.Repository
	orders          Repository
	promos          promo.Validator
	defaultCurrency string

	now       func() time.Time
	newID     func() string
	newNumber func(time.Time) string
}

// NewService creates a checkout Service. The promo validator may be nil
// when promotions are disabled.
func NewService(products product.Repository, orders Repository, promos promo.Validator, defaultCurrency string) *Service {
	return &Service{
		products:        products,
		orders:          orders,
		promos:          promos,
		defaultCurrency: defaultCurrency,
		now:             time.Now,
		newID:           func() string { return uuid.New().String() },
		newNumber:       NewNumber,
	}
}

// Checkout validates the draft, resolves and snapshots products, computes
// totals, and persists the Order with all items atomically.
func (s *Service) Checkout(ctx context.Context, draft Draft) (*Order, error) {
	if len(draft.Lines) == 0 {
		return nil, ErrEmptyLines
	}
	if err := validateCustomer(draft.Customer); err != nil {
		return nil, err
	}

	currency := draft.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}

	now := s.now()
	o, err := New(s.newID(), s.newNumber(now), draft.Customer, currency, now)
	if err != nil {
		return nil, err
	}
	o.BillingAddress = draft.BillingAddress
	o.ShippingAddress = draft.ShippingAddress
	o.Metadata = draft.Metadata

	// Validate quantities and collect product IDs for a single batch fetch.
	ids := make([]string, len(draft.Lines))
	for i, line := range draft.Lines {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: line.ProductID}
		}
		ids[i] = line.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	productMap := make(map[string]*product.Product, len(fetched))
	for i := range fetched {
		productMap[fetched[i].ID] = &fetched[i]
	}

	// Snapshot each line and accumulate the subtotal. Every product price
	// must be interpretable in the order currency.
	promoItems := make([]promo.Item, 0, len(draft.Lines))
	for _, line := range draft.Lines {
		p, ok := productMap[line.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: line.ProductID}
		}
		if !p.Active {
			return nil, &ProductUnavailableError{ProductID: line.ProductID}
		}

		item, err := NewItem(s.newID(), p, line.Quantity)
		if err != nil {
			return nil, err
		}
		item.OrderID = o.ID
		o.Items = append(o.Items, item)

		o.Subtotal, err = o.Subtotal.Add(item.TotalPrice)
		if err != nil {
			return nil, errors.Wrap(ErrCurrencyMismatch, err.Error())
		}
		promoItems = append(promoItems, promo.Item{
			ProductID: p.ID,
			Price:     p.Price,
			Quantity:  line.Quantity,
		})
	}

	if err := s.applyPricing(ctx, o, draft, promoItems); err != nil {
		return nil, err
	}
	if err := o.CalculateTotal(); err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// applyPricing sets tax, shipping and discount from the draft overrides and
// the promo code. An explicit discount override wins over a promo code.
func (s *Service) applyPricing(ctx context.Context, o *Order, draft Draft, items []promo.Item) error {
	assign := func(dst *money.Money, src *money.Money) error {
		if src == nil {
			return nil
		}
		if src.Currency() != o.Currency {
			return errors.Wrapf(ErrCurrencyMismatch, "%s vs order currency %s", src.Currency(), o.Currency)
		}
		*dst = *src
		return nil
	}

	if err := assign(&o.TaxAmount, draft.TaxAmount); err != nil {
		return err
	}
	if err := assign(&o.ShippingAmount, draft.ShippingAmount); err != nil {
		return err
	}
	if draft.DiscountAmount != nil {
		return assign(&o.DiscountAmount, draft.DiscountAmount)
	}

	if draft.PromoCode != "" && s.promos != nil {
		discount, err := s.promos.Validate(ctx, draft.PromoCode, items)
		if err != nil {
			return errors.Wrap(err, "validate promo code")
		}
		if discount.Amount.Currency() != o.Currency {
			return errors.Wrapf(ErrCurrencyMismatch, "promo discount in %s", discount.Amount.Currency())
		}
		o.DiscountAmount = discount.Amount
		if o.Metadata == nil {
			o.Metadata = make(map[string]string, 1)
		}
		o.Metadata["promo_code"] = draft.PromoCode
	}
	return nil
}

func validateCustomer(c Customer) error {
	if c.IsGuest() {
		if c.Email() == "" || c.FirstName() == "" || c.LastName() == "" {
			return ErrGuestContactRequired
		}
		return nil
	}
	if id, ok := c.UserID(); !ok || id == "" {
		return ErrUserRequired
	}
	return nil
}

// ConvertGuestOrder rebinds a guest order to the given user. The update
// runs under the repository's row lock; converting an order that already
// belongs to a user fails with ErrAlreadyConverted.
func (s *Service) ConvertGuestOrder(ctx context.Context, number string, user UserRef) (*Order, error) {
	if user.ID == "" {
		return nil, ErrUserRequired
	}
	return s.orders.UpdateByNumber(ctx, number, func(o *Order) error {
		return o.ConvertToUser(user.ID, user.Email, user.FirstName, user.LastName)
	})
}

// UpdateStatus transitions an order's status under the repository row lock.
// With force set, the transition graph is bypassed (admin correction).
func (s *Service) UpdateStatus(ctx context.Context, number string, status Status, force bool) (*Order, error) {
	now := s.now()
	return s.orders.UpdateByNumber(ctx, number, func(o *Order) error {
		if force {
			return o.ForceSetStatus(status, now)
		}
		return o.SetStatus(status, now)
	})
}

// GetByNumber returns a single order by its order number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Order, error) {
	return s.orders.GetByNumber(ctx, number)
}

// FindRecentForUser lists a user's most recent orders.
func (s *Service) FindRecentForUser(ctx context.Context, userID string, limit int) ([]*Order, error) {
	return s.orders.FindRecentForUser(ctx, userID, limit)
}

// FindForGuestEmail lists guest orders matching the email case-insensitively.
func (s *Service) FindForGuestEmail(ctx context.Context, email string, limit int) ([]*Order, error) {
	return s.orders.FindForGuestEmail(ctx, email, limit)
}

// FindOpen lists orders that are not yet in a terminal state.
func (s *Service) FindOpen(ctx context.Context, limit int) ([]*Order, error) {
	return s.orders.FindOpen(ctx, limit)
}
