package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shopfront/internal/database"
	"shopfront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const productSelect = `
	SELECT p.id, p.name, p.slug, p.description, p.price, p.stock, p.available,
	       p.category_id, p.image, p.created_at, p.updated_at,
	       c.name, c.slug, c.description
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
`

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// scanProduct scans a productSelect row, attaching the nested category when
// the product has one.
func scanProduct(row rowScanner, p *model.Product) error {
	var (
		categoryName *string
		categorySlug *string
		categoryDesc *string
	)

	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Stock, &p.Available,
		&p.CategoryID, &p.Image, &p.CreatedAt, &p.UpdatedAt,
		&categoryName, &categorySlug, &categoryDesc,
	)
	if err != nil {
		return err
	}

	p.Category = nil
	if p.CategoryID != nil && categoryName != nil {
		p.Category = &model.Category{
			ID:          *p.CategoryID,
			Name:        *categoryName,
			Slug:        deref(categorySlug),
			Description: deref(categoryDesc),
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *productRepository) queryProducts(ctx context.Context, query string, args ...any) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// List retrieves products, newest first, with filtering and pagination.
func (r *productRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if filter.Available != nil {
		args = append(args, *filter.Available)
		conditions = append(conditions, fmt.Sprintf("p.available = $%d", len(args)))
	}

	query := productSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	products, err := r.queryProducts(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", filter.Limit).
			Int("offset", filter.Offset).
			Msg("failed to list products")
		return nil, err
	}

	return products, nil
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := scanProduct(r.pool.QueryRow(ctx, productSelect+" WHERE p.id = $1", id), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// GetByIDs retrieves multiple products by their IDs.
func (r *productRepository) GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	products, err := r.queryProducts(ctx, productSelect+" WHERE p.id = ANY($1) ORDER BY p.id", ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, err
	}

	return products, nil
}

// SlugExists reports whether another product already uses slug.
func (r *productRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1 AND id <> $2)`,
		slug, excludeID,
	).Scan(&exists)
	if err != nil {
		r.logger.Error().Err(err).Str("slug", slug).Msg("failed to check product slug")
		return false, fmt.Errorf("failed to check product slug: %w", err)
	}
	return exists, nil
}

// Create inserts a product and fills in its ID and timestamps.
func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
		INSERT INTO products (name, slug, description, price, stock, available, category_id, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		p.Name, p.Slug, p.Description, p.Price, p.Stock, p.Available, p.CategoryID, p.Image,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if mapped := constraintError(err); mapped != err {
			r.logger.Debug().Err(err).Str("name", p.Name).Msg("product rejected by constraint")
			return mapped
		}
		r.logger.Error().Err(err).Str("name", p.Name).Msg("failed to create product")
		return fmt.Errorf("failed to create product: %w", err)
	}

	r.logger.Debug().Int64("product_id", p.ID).Msg("product created successfully")
	return nil
}

// Update overwrites a product's editable fields. A nil stock leaves the
// column alone so that concurrent sales are never overwritten by a stale read.
func (r *productRepository) Update(ctx context.Context, p *model.Product, stock *int) error {
	query := `
		UPDATE products
		SET name = $2, slug = $3, description = $4, price = $5, stock = COALESCE($6, stock),
		    available = $7, category_id = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING stock, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		p.ID, p.Name, p.Slug, p.Description, p.Price, stock, p.Available, p.CategoryID,
	).Scan(&p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrProductNotFound
		}
		if mapped := constraintError(err); mapped != err {
			r.logger.Debug().Err(err).Int64("product_id", p.ID).Msg("product update rejected by constraint")
			return mapped
		}
		r.logger.Error().Err(err).Int64("product_id", p.ID).Msg("failed to update product")
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// SetImage records the stored image URL for a product.
func (r *productRepository) SetImage(ctx context.Context, id int64, url string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET image = $2, updated_at = NOW() WHERE id = $1`,
		id, url,
	)
	if err != nil {
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to set product image")
		return fmt.Errorf("failed to set product image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}
	return nil
}

// Delete removes a product unless order items still reference it.
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if name, ok := violation(err, pgForeignKeyViolation); ok && name == database.ConstraintOrderItemsProduct {
			r.logger.Warn().Int64("product_id", id).Msg("product deletion blocked by order items")
			return model.ErrProductInUse
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to delete product")
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}

	r.logger.Debug().Int64("product_id", id).Msg("product deleted")
	return nil
}

// ReduceStock decrements stock with a single conditional UPDATE, so two
// concurrent reductions can never take stock below zero.
func (r *productRepository) ReduceStock(ctx context.Context, tx pgx.Tx, id int64, quantity int) (int, decimal.Decimal, error) {
	return r.decrement(ctx, tx, id, quantity, false)
}

// ReserveStock decrements stock for a sale. The availability check is part of
// the same conditional UPDATE, so a product withdrawn after the order was
// validated is not sold.
func (r *productRepository) ReserveStock(ctx context.Context, tx pgx.Tx, id int64, quantity int) (int, decimal.Decimal, error) {
	return r.decrement(ctx, tx, id, quantity, true)
}

// decrement runs the conditional stock UPDATE. When no row is updated the
// current row is read to tell a missing, withdrawn or short product apart.
func (r *productRepository) decrement(ctx context.Context, tx pgx.Tx, id int64, quantity int, forSale bool) (int, decimal.Decimal, error) {
	if quantity <= 0 {
		return 0, decimal.Zero, model.ErrInvalidQuantity
	}

	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2 AND (available OR NOT $3)
		RETURNING stock, price
	`

	var (
		remaining int
		price     decimal.Decimal
	)
	err := tx.QueryRow(ctx, query, id, quantity, forSale).Scan(&remaining, &price)
	if err == nil {
		r.logger.Debug().
			Int64("product_id", id).
			Int("quantity", quantity).
			Int("remaining", remaining).
			Msg("stock reduced")
		return remaining, price, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		if outOfRange(err) {
			return 0, decimal.Zero, model.NewValidationError("quantity",
				fmt.Sprintf("Ensure this value is less than or equal to %d.", model.MaxQuantity))
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to reduce stock")
		return 0, decimal.Zero, fmt.Errorf("failed to reduce stock: %w", err)
	}

	var (
		available int
		onSale    bool
	)
	err = tx.QueryRow(ctx, `SELECT stock, available FROM products WHERE id = $1`, id).Scan(&available, &onSale)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, decimal.Zero, model.ErrProductNotFound
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to read stock")
		return 0, decimal.Zero, fmt.Errorf("failed to read stock: %w", err)
	}

	if forSale && !onSale {
		r.logger.Warn().Int64("product_id", id).Msg("product withdrawn from sale")
		return 0, decimal.Zero, model.ErrProductUnavailable
	}

	r.logger.Warn().
		Int64("product_id", id).
		Int("requested", quantity).
		Int("available", available).
		Msg("insufficient stock")

	return 0, decimal.Zero, &model.InsufficientStockError{
		ProductID: id,
		Requested: quantity,
		Available: available,
	}
}
