package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Constraint names referenced by the repository layer when translating
// PostgreSQL errors.
const (
	ConstraintUsersUsername      = "users_username_key"
	ConstraintCategoriesName     = "categories_name_key"
	ConstraintCategoriesSlug     = "categories_slug_key"
	ConstraintProductsSlug       = "products_slug_key"
	ConstraintProductsCategory   = "products_category_id_fkey"
	ConstraintOrderItemsProduct  = "order_items_product_id_fkey"
	ConstraintOrderItemsOrder    = "order_items_order_id_fkey"
	ConstraintProductsPriceCheck = "products_price_check"
	ConstraintProductsStockCheck = "products_stock_check"
)

// Schema creates every table the service needs. It is idempotent.
const Schema = `
	CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		username      VARCHAR(150) NOT NULL,
		email         VARCHAR(254) NOT NULL DEFAULT '',
		password_hash VARCHAR(128) NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT users_username_key UNIQUE (username)
	);

	CREATE TABLE IF NOT EXISTS categories (
		id          BIGSERIAL PRIMARY KEY,
		name        VARCHAR(100) NOT NULL,
		slug        VARCHAR(120) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT categories_name_key UNIQUE (name),
		CONSTRAINT categories_slug_key UNIQUE (slug)
	);

	CREATE TABLE IF NOT EXISTS products (
		id          BIGSERIAL PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		slug        VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price       NUMERIC(10, 2) NOT NULL,
		stock       INTEGER NOT NULL DEFAULT 0,
		available   BOOLEAN NOT NULL DEFAULT TRUE,
		category_id BIGINT,
		image       VARCHAR(500),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT products_slug_key UNIQUE (slug),
		CONSTRAINT products_price_check CHECK (price >= 0.01),
		CONSTRAINT products_stock_check CHECK (stock >= 0),
		CONSTRAINT products_category_id_fkey FOREIGN KEY (category_id)
			REFERENCES categories(id) ON DELETE SET NULL
	);
	CREATE INDEX IF NOT EXISTS idx_products_category_id ON products(category_id);
	CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC);

	CREATE TABLE IF NOT EXISTS orders (
		id               UUID PRIMARY KEY,
		user_id          UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		status           VARCHAR(20) NOT NULL DEFAULT 'PENDING'
			CHECK (status IN ('PENDING', 'PROCESSING', 'SHIPPED', 'DELIVERED', 'CANCELLED')),
		total_amount     NUMERIC(12, 2) NOT NULL DEFAULT 0 CHECK (total_amount >= 0),
		shipping_address TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

	CREATE TABLE IF NOT EXISTS order_items (
		id         UUID PRIMARY KEY,
		order_id   UUID NOT NULL,
		product_id BIGINT NOT NULL,
		quantity   INTEGER NOT NULL DEFAULT 1 CHECK (quantity > 0),
		price      NUMERIC(10, 2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT order_items_order_id_fkey FOREIGN KEY (order_id)
			REFERENCES orders(id) ON DELETE CASCADE,
		CONSTRAINT order_items_product_id_fkey FOREIGN KEY (product_id)
			REFERENCES products(id) ON DELETE RESTRICT
	);
	CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
	CREATE INDEX IF NOT EXISTS idx_order_items_product_id ON order_items(product_id);
`

// Migrate applies Schema to the database behind pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	logger.Info().Msg("applying database schema")

	if _, err := pool.Exec(ctx, Schema); err != nil {
		logger.Error().Err(err).Msg("failed to apply database schema")
		return fmt.Errorf("failed to apply database schema: %w", err)
	}

	logger.Info().Msg("database schema is up to date")
	return nil
}
