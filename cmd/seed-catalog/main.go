// Command seed-catalog loads a gzip-compressed catalog dump into the
// database: products, promo codes, and an initial admin API key. Intended for
// bootstrapping fresh environments and refreshing staging data.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-api/internal/postgres"
)

// catalogDump is the on-disk format produced by the export tooling.
type catalogDump struct {
	Products   []productJSON `json:"products"`
	PromoCodes []promoJSON   `json:"promo_codes"`
}

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Category string          `json:"category"`
	Active   bool            `json:"active"`
}

type promoJSON struct {
	Code         string          `json:"code"`
	DiscountType string          `json:"discount_type"`
	Value        decimal.Decimal `json:"value"`
	MinItems     int32           `json:"min_items"`
	Description  string          `json:"description"`
	ValidFrom    *time.Time      `json:"valid_from"`
	ValidUntil   *time.Time      `json:"valid_until"`
	MaxUses      *int32          `json:"max_uses"`
	Active       bool            `json:"active"`
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json.gz", "path to gzipped catalog dump")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or STORE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("STORE_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STORE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper string) error {
	dump, err := readCatalog(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return errors.Wrap(seedProducts(gctx, pool, dump.Products), "seed products")
	})
	g.Go(func() error {
		return errors.Wrap(seedPromoCodes(gctx, pool, dump.PromoCodes), "seed promo codes")
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if apiKey != "" {
		if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
			return errors.Wrap(err, "seed api key")
		}
	}

	return nil
}

// readCatalog opens the gzipped dump and decodes it.
func readCatalog(path string) (*catalogDump, error) {
	slog.Info("reading catalog dump", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	var dump catalogDump
	if err := json.NewDecoder(gz).Decode(&dump); err != nil {
		return nil, errors.Wrap(err, "decode catalog JSON")
	}

	return &dump, nil
}

const upsertProductSQL = `
INSERT INTO products (id, name, sku, price, currency, category, active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    sku = EXCLUDED.sku,
    price = EXCLUDED.price,
    currency = EXCLUDED.currency,
    category = EXCLUDED.category,
    active = EXCLUDED.active`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.SKU, p.Price, p.Currency, p.Category, p.Active,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}

	return nil
}

const upsertPromoSQL = `
INSERT INTO promo_codes (code, discount_type, value, min_items, description, valid_from, valid_until, max_uses, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (code) DO UPDATE SET
    discount_type = EXCLUDED.discount_type,
    value = EXCLUDED.value,
    min_items = EXCLUDED.min_items,
    description = EXCLUDED.description,
    valid_from = EXCLUDED.valid_from,
    valid_until = EXCLUDED.valid_until,
    max_uses = EXCLUDED.max_uses,
    active = EXCLUDED.active`

func seedPromoCodes(ctx context.Context, pool *pgxpool.Pool, promos []promoJSON) error {
	slog.Info("upserting promo codes", slog.Int("count", len(promos)))

	for _, p := range promos {
		if _, err := pool.Exec(ctx, upsertPromoSQL,
			p.Code, p.DiscountType, p.Value, p.MinItems, p.Description,
			p.ValidFrom, p.ValidUntil, p.MaxUses, p.Active,
		); err != nil {
			return errors.Wrapf(err, "upsert promo code %s", p.Code)
		}
	}

	return nil
}

const upsertAPIKeySQL = `
INSERT INTO api_keys (id, key_hash, name, scopes, active)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (key_hash) DO UPDATE SET
    name = EXCLUDED.name,
    scopes = EXCLUDED.scopes,
    active = EXCLUDED.active`

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"admin", keyHash, "Admin key", []string{"manage_orders", "refund"}, true,
	); err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}

	return nil
}
