package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"shopfront/internal/model"
	"shopfront/internal/repository"
	"shopfront/internal/storage"
	"shopfront/internal/validate"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const productSlugMaxLen = 255

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	db          repository.TxBeginner
	images      storage.ImageStore
	logger      zerolog.Logger
	now         func() time.Time
}

// NewProductService creates a new product service.
func NewProductService(
	productRepo repository.ProductRepository,
	db repository.TxBeginner,
	images storage.ImageStore,
	logger zerolog.Logger,
) ProductService {
	return &productService{
		productRepo: productRepo,
		db:          db,
		images:      images,
		logger:      logger.With().Str("service", "product").Logger(),
		now:         time.Now,
	}
}

// List retrieves products with filtering and pagination.
func (s *productService) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	filter.Limit, filter.Offset = normalisePage(filter.Limit, filter.Offset)

	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).
			Int("limit", filter.Limit).
			Int("offset", filter.Offset).
			Msg("failed to list products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	s.logger.Debug().
		Int("count", len(products)).
		Int("limit", filter.Limit).
		Int("offset", filter.Offset).
		Msg("retrieved products")

	return products, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product == nil {
		s.logger.Debug().Int64("product_id", id).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// Create creates a product, deriving the slug from the name when blank.
func (s *productService) Create(ctx context.Context, in *model.ProductInput) (*model.Product, error) {
	product := &model.Product{Available: true}
	if err := s.apply(ctx, product, in, false); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("product_id", product.ID).
		Str("slug", product.Slug).
		Msg("product created")

	// Reload so the nested category is populated.
	return s.GetByID(ctx, product.ID)
}

// Update replaces (partial=false) or patches (partial=true) a product.
func (s *productService) Update(ctx context.Context, id int64, in *model.ProductInput, partial bool) (*model.Product, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, product, in, partial); err != nil {
		return nil, err
	}

	// Stock is only written when the caller supplies it.
	if err := s.productRepo.Update(ctx, product, in.Stock); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("product_id", id).Bool("partial", partial).Msg("product updated")
	return s.GetByID(ctx, id)
}

// Delete removes a product that no order item references.
func (s *productService) Delete(ctx context.Context, id int64) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Int64("product_id", id).Msg("product deleted")
	return nil
}

// ReduceStock atomically removes quantity units from stock.
func (s *productService) ReduceStock(ctx context.Context, id int64, quantity int) (*model.Product, error) {
	if quantity <= 0 {
		s.logger.Warn().Int64("product_id", id).Int("quantity", quantity).Msg("invalid quantity")
		return nil, model.ErrInvalidQuantity
	}
	if quantity > model.MaxQuantity {
		return nil, model.NewValidationError("quantity",
			fmt.Sprintf("Ensure this value is less than or equal to %d.", model.MaxQuantity))
	}

	err := inTx(ctx, s.db, s.logger, func(tx pgx.Tx) error {
		_, _, err := s.productRepo.ReduceStock(ctx, tx, id, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("product_id", id).Int("quantity", quantity).Msg("stock reduced")
	return s.GetByID(ctx, id)
}

// UploadImage stores a product image and records its URL.
func (s *productService) UploadImage(ctx context.Context, id int64, contentType string, body io.Reader) (*model.Product, error) {
	ext, ok := storage.ImageExtension(contentType)
	if !ok {
		return nil, model.NewValidationError("image",
			"Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	key := storage.ProductImageKey(s.now(), ext)
	url, err := s.images.Put(ctx, key, contentType, body)
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Str("key", key).Msg("failed to store product image")
		return nil, fmt.Errorf("failed to store product image: %w", err)
	}

	if err := s.productRepo.SetImage(ctx, id, url); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("product_id", id).Str("url", url).Msg("product image stored")
	return s.GetByID(ctx, id)
}

// apply validates in and copies it onto p. Name and price are required
// unless partial; omitted optional fields keep their current value.
func (s *productService) apply(ctx context.Context, p *model.Product, in *model.ProductInput, partial bool) error {
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
		p.Name = name
	} else if !partial {
		verr.Add("name", "This field is required.")
	}

	if in.Price != nil {
		if in.Price.LessThan(model.MinPrice) {
			verr.Add("price", "Ensure this value is greater than or equal to 0.01.")
		} else if in.Price.GreaterThan(model.MaxPrice) {
			verr.Add("price", "Ensure that there are no more than 10 digits in total.")
		} else if in.Price.Exponent() < -2 && !in.Price.Equal(in.Price.Round(2)) {
			verr.Add("price", "Ensure that there are no more than 2 decimal places.")
		}
		p.Price = *in.Price
	} else if !partial {
		verr.Add("price", "This field is required.")
	}

	if in.Stock != nil {
		switch {
		case *in.Stock < 0:
			verr.Add("stock", "Ensure this value is greater than or equal to 0.")
		case *in.Stock > model.MaxQuantity:
			verr.Add("stock", fmt.Sprintf("Ensure this value is less than or equal to %d.", model.MaxQuantity))
		}
		p.Stock = *in.Stock
	}

	if verr.HasErrors() {
		return verr
	}

	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Available != nil {
		p.Available = *in.Available
	}
	if in.CategoryID != nil {
		p.CategoryID = in.CategoryID
		if *in.CategoryID == 0 {
			p.CategoryID = nil
		}
	}

	switch {
	case in.Slug != nil && strings.TrimSpace(*in.Slug) != "":
		p.Slug = strings.TrimSpace(*in.Slug)
	case in.Slug != nil || p.Slug == "":
		slug, err := uniqueSlug(ctx, s.productRepo.SlugExists, p.Name, "product", productSlugMaxLen, p.ID)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to derive product slug")
			return fmt.Errorf("failed to derive product slug: %w", err)
		}
		p.Slug = slug
	}

	return nil
}
