// Command seed-db loads demo categories, products and discount instruments
// into the database so the API can be exercised locally.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/promokit/discount-api/internal/domain/discount"
	"github.com/promokit/discount-api/internal/domain/promotion"
	"github.com/promokit/discount-api/internal/domain/voucher"
	"github.com/promokit/discount-api/internal/repository"
)

type seedProduct struct {
	name     string
	category string
	price    string
}

var seedCategories = []string{"electronics", "books", "toys"}

var seedProducts = []seedProduct{
	{name: "Wireless Headphones", category: "electronics", price: "89.99"},
	{name: "Mechanical Keyboard", category: "electronics", price: "129.00"},
	{name: "USB-C Charger", category: "electronics", price: "24.50"},
	{name: "The Go Programming Language", category: "books", price: "39.99"},
	{name: "Distributed Systems Primer", category: "books", price: "54.00"},
	{name: "Wooden Puzzle", category: "toys", price: "18.75"},
	{name: "Board Game Classic", category: "toys", price: "32.00"},
}

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	categoryIDs, err := seedCatalog(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if err := seedVouchers(ctx, repository.NewVoucherRepository(pool)); err != nil {
		return errors.Wrap(err, "seed vouchers")
	}

	if err := seedPromotions(ctx, repository.NewPromotionRepository(pool), categoryIDs); err != nil {
		return errors.Wrap(err, "seed promotions")
	}

	return nil
}

// seedCatalog upserts categories and products, returning category name to id.
func seedCatalog(ctx context.Context, pool *pgxpool.Pool) (map[string]string, error) {
	categoryIDs := make(map[string]string, len(seedCategories))
	for _, name := range seedCategories {
		var id string
		err := pool.QueryRow(ctx, `
			INSERT INTO categories (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, name,
		).Scan(&id)
		if err != nil {
			return nil, errors.Wrapf(err, "upsert category %s", name)
		}
		categoryIDs[name] = id
		slog.Info("upserted category", slog.String("name", name), slog.String("id", id))
	}

	for _, p := range seedProducts {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return nil, errors.Wrapf(err, "parse price for %s", p.name)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO products (name, category_id, price)
			SELECT $1, $2, $3
			WHERE NOT EXISTS (SELECT 1 FROM products WHERE name = $1)`,
			p.name, categoryIDs[p.category], price,
		)
		if err != nil {
			return nil, errors.Wrapf(err, "insert product %s", p.name)
		}
		slog.Info("seeded product", slog.String("name", p.name), slog.String("category", p.category))
	}

	return categoryIDs, nil
}

func seedVouchers(ctx context.Context, repo *repository.VoucherRepository) error {
	expiry := time.Now().AddDate(1, 0, 0)
	vouchers := []*voucher.Voucher{
		{
			Code:          "WELCOME10",
			Discount:      discount.Spec{Type: discount.TypePercentage, Value: decimal.NewFromInt(10)},
			ExpiresAt:     expiry,
			UsageLimit:    1000,
			MinOrderValue: decimal.NewFromInt(50),
			Active:        true,
		},
		{
			Code:          "FLAT25",
			Discount:      discount.Spec{Type: discount.TypeFixed, Value: decimal.NewFromInt(25)},
			ExpiresAt:     expiry,
			UsageLimit:    200,
			MinOrderValue: decimal.NewFromInt(100),
			Active:        true,
		},
	}

	for _, v := range vouchers {
		exists, err := repo.CodeExists(ctx, v.Code, "")
		if err != nil {
			return errors.Wrapf(err, "check voucher %s", v.Code)
		}
		if exists {
			slog.Info("voucher already seeded", slog.String("code", v.Code))
			continue
		}
		if err := repo.Create(ctx, v); err != nil {
			return errors.Wrapf(err, "create voucher %s", v.Code)
		}
		slog.Info("seeded voucher", slog.String("code", v.Code), slog.String("id", v.ID))
	}
	return nil
}

func seedPromotions(ctx context.Context, repo *repository.PromotionRepository, categoryIDs map[string]string) error {
	expiry := time.Now().AddDate(0, 6, 0)
	promotions := []*promotion.Promotion{
		{
			Code:               "SITEWIDE5",
			Discount:           discount.Spec{Type: discount.TypePercentage, Value: decimal.NewFromInt(5)},
			ExpiresAt:          expiry,
			UsageLimit:         5000,
			EligibleCategories: []string{},
			EligibleItems:      []string{},
			Active:             true,
		},
		{
			Code:               "BOOKWORM15",
			Discount:           discount.Spec{Type: discount.TypePercentage, Value: decimal.NewFromInt(15)},
			ExpiresAt:          expiry,
			UsageLimit:         500,
			EligibleCategories: []string{categoryIDs["books"]},
			EligibleItems:      []string{},
			Active:             true,
		},
	}

	for _, p := range promotions {
		exists, err := repo.CodeExists(ctx, p.Code, "")
		if err != nil {
			return errors.Wrapf(err, "check promotion %s", p.Code)
		}
		if exists {
			slog.Info("promotion already seeded", slog.String("code", p.Code))
			continue
		}
		if err := repo.Create(ctx, p); err != nil {
			return errors.Wrapf(err, "create promotion %s", p.Code)
		}
		slog.Info("seeded promotion", slog.String("code", p.Code), slog.String("id", p.ID))
	}
	return nil
}
