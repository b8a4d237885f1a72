package main

import (
	"context"
	"errors"
	"os"
	"time"

	"shopfront/internal/config"
	"shopfront/internal/database"
	"shopfront/internal/model"
	"shopfront/internal/repository"
	"shopfront/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// seedcatalog loads a small sample catalogue through the service layer so
// slugs and validation behave exactly as they do for API writes. It reads
// the same DB_* variables as the API server.
func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "seed").Logger()

	cfg := config.DatabaseConfig{
		Host:            envOr("DB_HOST", "localhost"),
		Port:            5432,
		User:            envOr("DB_USER", "postgres"),
		Password:        envOr("DB_PASSWORD", "postgres"),
		Database:        envOr("DB_NAME", "shopfront"),
		MaxConnections:  4,
		MinConnections:  1,
		MaxConnLifetime: 300,
	}

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect")
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	categories := service.NewCategoryService(repository.NewCategoryRepository(pool, logger), logger)
	products := service.NewProductService(repository.NewProductRepository(pool, logger), pool, nil, logger)

	catalogue := map[string][]struct {
		name  string
		price string
		stock int
	}{
		"Kitchen": {
			{"Enamel Mug", "9.99", 40},
			{"Cast Iron Pan", "34.50", 12},
		},
		"Books": {
			{"The Go Programming Language", "39.00", 8},
			{"Café Recipes", "18.25", 0},
		},
	}

	for categoryName, items := range catalogue {
		category, err := categories.Create(ctx, &model.CategoryInput{Name: &categoryName})
		if err != nil {
			logger.Fatal().Err(err).Str("category", categoryName).Msg("failed to create category")
		}

		for _, item := range items {
			price := decimal.RequireFromString(item.price)
			p, err := products.Create(ctx, &model.ProductInput{
				Name:       &item.name,
				Price:      &price,
				Stock:      &item.stock,
				CategoryID: &category.ID,
			})
			var verr *model.ValidationError
			if errors.As(err, &verr) {
				logger.Warn().Err(err).Str("product", item.name).Msg("skipped product")
				continue
			}
			if err != nil {
				logger.Fatal().Err(err).Str("product", item.name).Msg("failed to create product")
			}
			logger.Info().Str("slug", p.Slug).Bool("in_stock", p.InStock()).Msg("seeded product")
		}
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
