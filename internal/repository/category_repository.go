package repository

import (
	"context"
	"errors"
	"fmt"

	"shopfront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const categoryColumns = `id, name, slug, description, created_at, updated_at`

// categoryRepository implements the CategoryRepository interface using PostgreSQL.
type categoryRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool *pgxpool.Pool, logger zerolog.Logger) CategoryRepository {
	return &categoryRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "category").Logger(),
	}
}

func scanCategory(row rowScanner, c *model.Category) error {
	return row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt)
}

// List retrieves categories ordered by name with pagination support.
func (r *categoryRepository) List(ctx context.Context, limit, offset int) ([]model.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		ORDER BY name
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query categories")
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := scanCategory(rows, &c); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan category row")
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating category rows")
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// ListWithCounts retrieves every category with its product count.
func (r *categoryRepository) ListWithCounts(ctx context.Context) ([]model.CategorySummary, error) {
	query := `
		SELECT c.id, c.name, c.slug, c.description, c.created_at, c.updated_at, COUNT(p.id)
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id
		GROUP BY c.id
		ORDER BY c.name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query category summaries")
		return nil, fmt.Errorf("failed to query category summaries: %w", err)
	}
	defer rows.Close()

	summaries := []model.CategorySummary{}
	for rows.Next() {
		var s model.CategorySummary
		err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.Description, &s.CreatedAt, &s.UpdatedAt, &s.ProductCount)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan category summary row")
			return nil, fmt.Errorf("failed to scan category summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating category summary rows")
		return nil, fmt.Errorf("error iterating category summaries: %w", err)
	}

	return summaries, nil
}

// GetByID retrieves a single category by its ID.
func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	var c model.Category
	if err := scanCategory(r.pool.QueryRow(ctx, query, id), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("category_id", id).Msg("category not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("category_id", id).Msg("failed to query category")
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return &c, nil
}

// SlugExists reports whether another category already uses slug.
func (r *categoryRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1 AND id <> $2)`,
		slug, excludeID,
	).Scan(&exists)
	if err != nil {
		r.logger.Error().Err(err).Str("slug", slug).Msg("failed to check category slug")
		return false, fmt.Errorf("failed to check category slug: %w", err)
	}
	return exists, nil
}

// Create inserts a category and fills in its ID and timestamps.
func (r *categoryRepository) Create(ctx context.Context, c *model.Category) error {
	query := `
		INSERT INTO categories (name, slug, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query, c.Name, c.Slug, c.Description).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if mapped := constraintError(err); mapped != err {
			r.logger.Debug().Err(err).Str("name", c.Name).Msg("category rejected by constraint")
			return mapped
		}
		r.logger.Error().Err(err).Str("name", c.Name).Msg("failed to create category")
		return fmt.Errorf("failed to create category: %w", err)
	}

	r.logger.Debug().Int64("category_id", c.ID).Msg("category created successfully")
	return nil
}

// Update overwrites a category's editable fields.
func (r *categoryRepository) Update(ctx context.Context, c *model.Category) error {
	query := `
		UPDATE categories
		SET name = $2, slug = $3, description = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query, c.ID, c.Name, c.Slug, c.Description).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrCategoryNotFound
		}
		if mapped := constraintError(err); mapped != err {
			r.logger.Debug().Err(err).Int64("category_id", c.ID).Msg("category update rejected by constraint")
			return mapped
		}
		r.logger.Error().Err(err).Int64("category_id", c.ID).Msg("failed to update category")
		return fmt.Errorf("failed to update category: %w", err)
	}

	return nil
}

// Delete removes a category. The products_category_id_fkey constraint sets
// linked products' category_id to NULL.
func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Int64("category_id", id).Msg("failed to delete category")
		return fmt.Errorf("failed to delete category: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrCategoryNotFound
	}

	r.logger.Debug().Int64("category_id", id).Msg("category deleted")
	return nil
}
