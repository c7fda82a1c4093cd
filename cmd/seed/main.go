package main

import (
	"context"
	"log"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simplestore/storefront/app/config"
	"github.com/simplestore/storefront/app/database"
	"github.com/simplestore/storefront/app/logger"
	"github.com/simplestore/storefront/models"
)

type ProductSeeder interface {
	GetOrCreateByName(ctx context.Context, product *models.Product) (bool, error)
	Update(ctx context.Context, product *models.Product) error
}

type demoProduct struct {
	name        string
	description string
	price       string
	imageURL    string
}

var demoProducts = []demoProduct{
	{
		name:        "Classic T-Shirt",
		description: "Soft cotton tee. A simple classic.",
		price:       "19.99",
		imageURL:    "https://images.unsplash.com/photo-1520975958225-1e23e43f962c?auto=format&fit=crop&w=1200&q=60",
	},
	{
		name:        "Running Shoes",
		description: "Lightweight shoes for daily runs.",
		price:       "79.00",
		imageURL:    "https://images.unsplash.com/photo-1542291026-7eec264c27ff?auto=format&fit=crop&w=1200&q=60",
	},
	{
		name:        "Coffee Mug",
		description: "Ceramic mug for your morning coffee.",
		price:       "12.50",
		imageURL:    "https://images.unsplash.com/photo-1517256064527-09c73fc73e38?auto=format&fit=crop&w=1200&q=60",
	},
	{
		name:        "Wireless Headphones",
		description: "Comfortable over-ear headphones.",
		price:       "129.99",
		imageURL:    "https://images.unsplash.com/photo-1518441902117-f0a6a3f1ccf5?auto=format&fit=crop&w=1200&q=60",
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLog, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = zapLog.Sync() }()

	db, err := database.Open(&cfg.Database, zapLog, cfg.Log.GormLevel)
	if err != nil {
		zapLog.Fatal("failed to open database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			zapLog.Fatal("failed to migrate schema", zap.Error(err))
		}
	}

	created, updated, err := seed(context.Background(), models.NewProductsRepository(db))
	if err != nil {
		zapLog.Fatal("failed to seed products", zap.Error(err))
	}
	zapLog.Info("seeded products", zap.Int("created", created), zap.Int("updated", updated))
}

// seed makes sure every demo product exists and is active. Products that are
// already present get their description, price and image refreshed.
func seed(ctx context.Context, products ProductSeeder) (created, updated int, err error) {
	for _, demo := range demoProducts {
		price, err := decimal.NewFromString(demo.price)
		if err != nil {
			return created, updated, err
		}

		p := &models.Product{
			Name:        demo.name,
			Description: demo.description,
			Price:       price,
			ImageURL:    demo.imageURL,
			IsActive:    true,
		}
		inserted, err := products.GetOrCreateByName(ctx, p)
		if err != nil {
			return created, updated, err
		}
		if inserted {
			created++
			continue
		}

		p.Description = demo.description
		p.Price = price
		p.ImageURL = demo.imageURL
		p.IsActive = true
		if err := products.Update(ctx, p); err != nil {
			return created, updated, err
		}
		updated++
	}
	return created, updated, nil
}
