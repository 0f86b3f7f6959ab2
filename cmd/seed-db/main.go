// Command seed-db loads categories, products and coupons into the database.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/product"
	"github.com/ShreyanshuGhosh/nitebite/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		seedFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedFile, "file", "db/seed/catalog.json", "path to the seed file (.json or .json.gz)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, seedFile); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, seedFile string) error {
	s, err := readSeed(seedFile)
	if err != nil {
		return err
	}
	if err := s.validate(); err != nil {
		return errors.Wrap(err, "validate seed")
	}

	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	catalog := postgres.NewCatalog(pool)
	categoryIDs := make(map[string]string, len(s.Categories))
	for _, c := range s.Categories {
		id, err := catalog.UpsertCategory(ctx, product.Category{
			Name:        c.Name,
			Slug:        c.Slug,
			Description: c.Description,
		})
		if err != nil {
			return errors.Wrapf(err, "upsert category %s", c.Slug)
		}
		categoryIDs[c.Slug] = id
	}
	lg.Info("Upserted categories", zap.Int("count", len(s.Categories)))

	for _, p := range s.Products {
		id, err := catalog.UpsertProduct(ctx, p.toProduct(categoryIDs[p.Category]))
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.Name)
		}
		lg.Debug("Upserted product", zap.String("id", id), zap.String("name", p.Name))
	}
	lg.Info("Upserted products", zap.Int("count", len(s.Products)))

	coupons := postgres.NewCouponRepository(pool)
	for _, c := range s.Coupons {
		if err := coupons.Upsert(ctx, c.toRule()); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}
	}
	lg.Info("Upserted coupons", zap.Int("count", len(s.Coupons)))
	return nil
}
