package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/promo"
)

const (
	getPromoByCodeSQL = `SELECT code, discount_type, value, min_items, description,
		valid_from, valid_until, max_uses, uses
		FROM promo_codes WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	incrementPromoUsesSQL = `UPDATE promo_codes SET uses = uses + 1 WHERE code = $1`
)

var _ promo.Repository = (*PromoRepository)(nil)

// PromoRepository implements promo.Repository backed by PostgreSQL.
type PromoRepository struct {
	pool *pgxpool.Pool
}

// NewPromoRepository returns a PromoRepository that uses the given pool.
func NewPromoRepository(pool *pgxpool.Pool) *PromoRepository {
	return &PromoRepository{pool: pool}
}

// FindByCode looks up an active promo rule by its code (case-insensitive).
// Returns promo.ErrInvalidCode when no matching active code exists.
func (r *PromoRepository) FindByCode(ctx context.Context, code string) (*promo.Rule, error) {
	rows, err := r.pool.Query(ctx, getPromoByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding promo code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanPromoRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrInvalidCode
		}
		return nil, fmt.Errorf("finding promo code %q: %w", code, err)
	}
	return &rule, nil
}

// IncrementUses atomically increments the usage counter for the given code.
func (r *PromoRepository) IncrementUses(ctx context.Context, code string) error {
	_, err := r.pool.Exec(ctx, incrementPromoUsesSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing uses for promo code %q: %w", code, err)
	}
	return nil
}

func scanPromoRule(row pgx.CollectableRow) (promo.Rule, error) {
	var (
		rule         promo.Rule
		discountType string
		value        decimal.Decimal
		minItems     int32
		validFrom    *time.Time
		validUntil   *time.Time
		maxUses      int32
		uses         int32
	)
	err := row.Scan(
		&rule.Code, &discountType, &value, &minItems, &rule.Description,
		&validFrom, &validUntil, &maxUses, &uses,
	)
	rule.Type = promo.DiscountType(discountType)
	rule.Value = value
	rule.MinItems = int(minItems)
	rule.ValidFrom = validFrom
	rule.ValidUntil = validUntil
	rule.MaxUses = int(maxUses)
	rule.Uses = int(uses)
	return rule, err
}
