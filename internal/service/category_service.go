package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shopfront/internal/model"
	"shopfront/internal/repository"
	"shopfront/internal/validate"

	"github.com/rs/zerolog"
)

const categorySlugMaxLen = 120

// categoryService implements CategoryService.
type categoryService struct {
	categoryRepo repository.CategoryRepository
	logger       zerolog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(categoryRepo repository.CategoryRepository, logger zerolog.Logger) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		logger:       logger.With().Str("service", "category").Logger(),
	}
}

// List retrieves categories ordered by name.
func (s *categoryService) List(ctx context.Context, limit, offset int) ([]model.Category, error) {
	limit, offset = normalisePage(limit, offset)

	categories, err := s.categoryRepo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Int("limit", limit).Int("offset", offset).Msg("failed to list categories")
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

// ListWithCounts retrieves every category with its product count.
func (s *categoryService) ListWithCounts(ctx context.Context) ([]model.CategorySummary, error) {
	summaries, err := s.categoryRepo.ListWithCounts(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list category summaries")
		return nil, fmt.Errorf("failed to get category summaries: %w", err)
	}
	return summaries, nil
}

// GetByID retrieves a single category by ID.
func (s *categoryService) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("category_id", id).Msg("failed to get category by ID")
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if category == nil {
		return nil, model.ErrCategoryNotFound
	}
	return category, nil
}

// Create creates a category, deriving the slug from the name when blank.
func (s *categoryService) Create(ctx context.Context, in *model.CategoryInput) (*model.Category, error) {
	category := &model.Category{}
	if err := s.apply(ctx, category, in, false); err != nil {
		return nil, err
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("category_id", category.ID).
		Str("slug", category.Slug).
		Msg("category created")

	return category, nil
}

// Update replaces (partial=false) or patches (partial=true) a category.
func (s *categoryService) Update(ctx context.Context, id int64, in *model.CategoryInput, partial bool) (*model.Category, error) {
	category, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, category, in, partial); err != nil {
		return nil, err
	}

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("category_id", id).Bool("partial", partial).Msg("category updated")
	return category, nil
}

// Delete removes a category, leaving its products uncategorised.
func (s *categoryService) Delete(ctx context.Context, id int64) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Int64("category_id", id).Msg("category deleted")
	return nil
}

// apply validates in and copies it onto c. Name is required unless partial;
// omitted optional fields keep their current value.
func (s *categoryService) apply(ctx context.Context, c *model.Category, in *model.CategoryInput, partial bool) error {
	if in == nil {
		return model.NewValidationError("non_field_errors", "No data provided.")
	}

	verr := &model.ValidationError{}
	if err := validate.Struct(in); err != nil {
		if !errors.As(err, &verr) {
			return err
		}
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			verr.Add("name", "This field may not be blank.")
		}
		c.Name = name
	} else if !partial {
		verr.Add("name", "This field is required.")
	}
	if verr.HasErrors() {
		return verr
	}

	if in.Description != nil {
		c.Description = *in.Description
	}

	switch {
	case in.Slug != nil && strings.TrimSpace(*in.Slug) != "":
		c.Slug = strings.TrimSpace(*in.Slug)
	case in.Slug != nil || c.Slug == "":
		slug, err := uniqueSlug(ctx, s.categoryRepo.SlugExists, c.Name, "category", categorySlugMaxLen, c.ID)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to derive category slug")
			return fmt.Errorf("failed to derive category slug: %w", err)
		}
		c.Slug = slug
	}

	return nil
}
