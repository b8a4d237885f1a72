package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shopfront/internal/database"
	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	orderColumns     = `id, user_id, status, total_amount, shipping_address, created_at, updated_at`
	orderItemColumns = `id, order_id, product_id, quantity, price, created_at, updated_at`
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

func scanOrder(row rowScanner, o *model.Order) error {
	return row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt)
}

func scanOrderItem(row rowScanner, i *model.OrderItem) error {
	return row.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.Quantity, &i.Price, &i.CreatedAt, &i.UpdatedAt)
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	tx, err := r.pool.BeginTx(ctx, opts)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (id, user_id, status, total_amount, shipping_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.Exec(ctx, query,
		order.ID, order.UserID, order.Status, order.TotalAmount, order.ShippingAddress,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if outOfRange(err) {
			return totalOutOfRange()
		}
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price, item.CreatedAt, item.UpdatedAt)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			if name, ok := violation(err, pgForeignKeyViolation); ok {
				switch name {
				case database.ConstraintOrderItemsProduct:
					return model.ErrProductNotFound
				case database.ConstraintOrderItemsOrder:
					return model.ErrOrderNotFound
				}
			}
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Int64("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetForUpdate retrieves and row-locks an order within the provided transaction.
func (r *orderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	var order model.Order
	if err := scanOrder(tx.QueryRow(ctx, query, id), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to lock order")
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	return &order, nil
}

// ListItems retrieves an order's items within the provided transaction.
func (r *orderRepository) ListItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT ` + orderItemColumns + `
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := tx.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	return r.collectItems(rows)
}

func (r *orderRepository) collectItems(rows pgx.Rows) ([]model.OrderItem, error) {
	items := []model.OrderItem{}
	for rows.Next() {
		var item model.OrderItem
		if err := scanOrderItem(rows, &item); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// UpdateTotal persists a recomputed total within the provided transaction.
func (r *orderRepository) UpdateTotal(ctx context.Context, tx pgx.Tx, id uuid.UUID, total decimal.Decimal) error {
	tag, err := tx.Exec(ctx,
		`UPDATE orders SET total_amount = $2, updated_at = NOW() WHERE id = $1`,
		id, total,
	)
	if err != nil {
		if outOfRange(err) {
			return totalOutOfRange()
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order total")
		return fmt.Errorf("failed to update order total: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

// UpdateStatus persists a new status within the provided transaction.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) error {
	tag, err := tx.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var order model.Order
	if err := scanOrder(r.pool.QueryRow(ctx, query, id), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	itemsQuery := `
		SELECT ` + orderItemColumns + `
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, itemsQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	order.Items, err = r.collectItems(rows)
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// List retrieves orders, newest first, along with their items.
func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Items = []model.OrderItem{}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	itemRows, err := r.pool.Query(ctx, `
		SELECT `+orderItemColumns+`
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at, id
	`, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("order_count", len(ids)).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer itemRows.Close()

	items, err := r.collectItems(itemRows)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}

	return orders, nil
}
