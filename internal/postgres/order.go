package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/money"
	"github.com/xenking/storefront-api/internal/domain/order"
)

const (
	orderColumns = `id, number, user_id, customer_email, first_name, last_name, phone,
		currency, subtotal, tax_amount, shipping_amount, discount_amount, total,
		status, billing_address, shipping_address, metadata,
		created_at, confirmed_at, shipped_at, delivered_at`

	createOrderSQL = `INSERT INTO orders (id, number, user_id, customer_email, first_name, last_name, phone,
			currency, subtotal, tax_amount, shipping_amount, discount_amount, total,
			status, billing_address, shipping_address, metadata,
			created_at, confirmed_at, shipped_at, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	createOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, product_name, product_sku,
			unit_price, quantity, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE number = $1`

	lockOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE number = $1 FOR UPDATE`

	updateOrderSQL = `UPDATE orders SET user_id = $2, customer_email = $3, first_name = $4, last_name = $5,
			phone = $6, currency = $7, subtotal = $8, tax_amount = $9, shipping_amount = $10,
			discount_amount = $11, total = $12, status = $13, billing_address = $14,
			shipping_address = $15, metadata = $16, confirmed_at = $17, shipped_at = $18, delivered_at = $19
		WHERE id = $1`

	findOpenOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE status NOT IN ('delivered', 'cancelled', 'refunded')
		ORDER BY created_at DESC LIMIT $1`

	findOrdersForUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	findOrdersForGuestSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id IS NULL AND LOWER(customer_email) = LOWER($1)
		ORDER BY created_at DESC LIMIT $2`

	getItemsForOrderSQL = `SELECT id, order_id, product_id, product_name, product_sku,
			unit_price, quantity, total_price
		FROM order_items WHERE order_id = $1 ORDER BY id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Items
// are write-once at Create; UpdateByNumber rewrites the order row only.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and all of its items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createOrderSQL, orderArgs(o)...); err != nil {
			return err
		}
		for _, it := range o.Items {
			_, err := tx.Exec(ctx, createOrderItemSQL,
				it.ID, o.ID, it.ProductID, it.ProductName, it.ProductSKU,
				it.UnitPrice.Decimal(), it.Quantity, it.TotalPrice.Decimal(),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.Number, err)
	}
	return nil
}

// GetByNumber returns the order with its items.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByNumberSQL, number)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}
	if err := r.loadItems(ctx, r.pool, o); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateByNumber loads the order under a row lock, applies fn and writes the
// result back, all in one transaction. Concurrent updates for the same order
// serialize on the lock.
func (r *OrderRepository) UpdateByNumber(ctx context.Context, number string, fn func(*order.Order) error) (*order.Order, error) {
	var o *order.Order
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, lockOrderByNumberSQL, number)
		if err != nil {
			return err
		}
		o, err = pgx.CollectExactlyOneRow(rows, scanOrder)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.ErrNotFound
			}
			return err
		}
		if err := r.loadItems(ctx, tx, o); err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, updateOrderSQL, updateOrderArgs(o)...)
		return err
	})
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating order %q: %w", number, err)
	}
	return o, nil
}

// FindOpen returns orders that have not reached a terminal state, most
// recent first.
func (r *OrderRepository) FindOpen(ctx context.Context, limit int) ([]*order.Order, error) {
	return r.findOrders(ctx, findOpenOrdersSQL, limit)
}

// FindRecentForUser returns the user's most recent orders.
func (r *OrderRepository) FindRecentForUser(ctx context.Context, userID string, limit int) ([]*order.Order, error) {
	return r.findOrders(ctx, findOrdersForUserSQL, userID, limit)
}

// FindForGuestEmail returns guest orders matching the contact email
// case-insensitively.
func (r *OrderRepository) FindForGuestEmail(ctx context.Context, email string, limit int) ([]*order.Order, error) {
	return r.findOrders(ctx, findOrdersForGuestSQL, email, limit)
}

func (r *OrderRepository) findOrders(ctx context.Context, sql string, args ...any) ([]*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("finding orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("finding orders: %w", err)
	}
	for _, o := range orders {
		if err := r.loadItems(ctx, r.pool, o); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// querier abstracts pool vs transaction for item loading.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *OrderRepository) loadItems(ctx context.Context, q querier, o *order.Order) error {
	rows, err := q.Query(ctx, getItemsForOrderSQL, o.ID)
	if err != nil {
		return fmt.Errorf("loading items for order %q: %w", o.Number, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*order.Item, error) {
		var (
			it         order.Item
			unitPrice  decimal.Decimal
			totalPrice decimal.Decimal
			quantity   int32
		)
		err := row.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductSKU,
			&unitPrice, &quantity, &totalPrice,
		)
		if err != nil {
			return nil, err
		}
		it.Quantity = int(quantity)
		if it.UnitPrice, err = money.FromDecimal(unitPrice, o.Currency); err != nil {
			return nil, err
		}
		if it.TotalPrice, err = money.FromDecimal(totalPrice, o.Currency); err != nil {
			return nil, err
		}
		return &it, nil
	})
	if err != nil {
		return fmt.Errorf("loading items for order %q: %w", o.Number, err)
	}
	o.Items = items
	return nil
}

func orderArgs(o *order.Order) []any {
	return append([]any{o.ID, o.Number}, append(customerArgs(o), []any{
		o.Currency,
		o.Subtotal.Decimal(), o.TaxAmount.Decimal(), o.ShippingAmount.Decimal(),
		o.DiscountAmount.Decimal(), o.Total.Decimal(),
		string(o.Status), o.BillingAddress, o.ShippingAddress, o.Metadata,
		o.CreatedAt, o.ConfirmedAt, o.ShippedAt, o.DeliveredAt,
	}...)...)
}

func updateOrderArgs(o *order.Order) []any {
	return append([]any{o.ID}, append(customerArgs(o), []any{
		o.Currency,
		o.Subtotal.Decimal(), o.TaxAmount.Decimal(), o.ShippingAmount.Decimal(),
		o.DiscountAmount.Decimal(), o.Total.Decimal(),
		string(o.Status), o.BillingAddress, o.ShippingAddress, o.Metadata,
		o.ConfirmedAt, o.ShippedAt, o.DeliveredAt,
	}...)...)
}

func customerArgs(o *order.Order) []any {
	var userID *string
	if id, ok := o.Customer.UserID(); ok {
		userID = &id
	}
	return []any{
		userID, o.Customer.Email(), o.Customer.FirstName(),
		o.Customer.LastName(), o.Customer.Phone(),
	}
}

func scanOrder(row pgx.CollectableRow) (*order.Order, error) {
	var (
		o        order.Order
		userID   *string
		email    string
		first    string
		last     string
		phone    string
		status   string
		subtotal decimal.Decimal
		tax      decimal.Decimal
		shipping decimal.Decimal
		discount decimal.Decimal
		total    decimal.Decimal
	)
	err := row.Scan(
		&o.ID, &o.Number, &userID, &email, &first, &last, &phone,
		&o.Currency, &subtotal, &tax, &shipping, &discount, &total,
		&status, &o.BillingAddress, &o.ShippingAddress, &o.Metadata,
		&o.CreatedAt, &o.ConfirmedAt, &o.ShippedAt, &o.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}

	if userID != nil {
		o.Customer = order.ForUser(*userID, email, first, last)
	} else {
		o.Customer = order.ForGuest(email, first, last, phone)
	}
	o.Status = order.Status(status)

	for dst, d := range map[*money.Money]decimal.Decimal{
		&o.Subtotal:       subtotal,
		&o.TaxAmount:      tax,
		&o.ShippingAmount: shipping,
		&o.DiscountAmount: discount,
		&o.Total:          total,
	} {
		m, err := money.FromDecimal(d, o.Currency)
		if err != nil {
			return nil, err
		}
		*dst = m
	}
	return &o, nil
}
