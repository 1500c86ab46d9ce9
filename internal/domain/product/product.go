// Package product is the catalog read model consumed by checkout.
package product

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/money"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. Price is the
// current price; orders snapshot it at checkout time.
type Product struct {
	ID       string
	Name     string
	SKU      string
	Price    money.Money
	Category string
	Active   bool
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
