package repository

import (
	"context"
	"testing"
	"time"

	"shopfront/internal/database"
	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL testcontainer with the full schema and
// returns a connection pool.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func seedCategory(t *testing.T, repo CategoryRepository, name, slug string) *model.Category {
	t.Helper()

	c := &model.Category{Name: name, Slug: slug}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func seedProduct(t *testing.T, repo ProductRepository, slug, price string, stock int, categoryID *int64) *model.Product {
	t.Helper()

	p := &model.Product{
		Name:        "Product " + slug,
		Slug:        slug,
		Description: "A product for tests",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		Available:   true,
		CategoryID:  categoryID,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func seedUser(t *testing.T, repo UserRepository, username string) *model.User {
	t.Helper()

	now := time.Now()
	u := &model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		IsActive:     true,
		Timestamps:   model.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

// seedOrder creates a committed order with one item per product.
func seedOrder(t *testing.T, repo OrderRepository, userID uuid.UUID, lines map[*model.Product]int) *model.Order {
	t.Helper()

	ctx := context.Background()
	tx, err := repo.BeginTx(ctx, pgx.TxOptions{})
	require.NoError(t, err)

	now := time.Now()
	order := &model.Order{
		ID:         uuid.New(),
		UserID:     userID,
		Status:     model.OrderStatusPending,
		Timestamps: model.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
	require.NoError(t, repo.CreateOrder(ctx, tx, order))

	items := make([]model.OrderItem, 0, len(lines))
	for p, qty := range lines {
		items = append(items, model.OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			ProductID:  p.ID,
			Quantity:   qty,
			Price:      p.Price,
			Timestamps: model.Timestamps{CreatedAt: now, UpdatedAt: now},
		})
	}
	require.NoError(t, repo.CreateOrderItems(ctx, tx, items))
	require.NoError(t, tx.Commit(ctx))

	order.Items = items
	return order
}
