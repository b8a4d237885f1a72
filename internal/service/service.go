package service

import (
	"context"
	"io"

	"shopfront/internal/auth"
	"shopfront/internal/model"

	"github.com/google/uuid"
)

// Pagination bounds applied to every list operation.
const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// CategoryService defines operations for category management.
type CategoryService interface {
	// List retrieves categories ordered by name.
	List(ctx context.Context, limit, offset int) ([]model.Category, error)

	// ListWithCounts retrieves every category with its product count.
	ListWithCounts(ctx context.Context) ([]model.CategorySummary, error)

	// GetByID retrieves a single category by ID.
	GetByID(ctx context.Context, id int64) (*model.Category, error)

	// Create creates a category, deriving the slug from the name when blank.
	Create(ctx context.Context, in *model.CategoryInput) (*model.Category, error)

	// Update replaces (partial=false) or patches (partial=true) a category.
	Update(ctx context.Context, id int64, in *model.CategoryInput, partial bool) (*model.Category, error)

	// Delete removes a category, leaving its products uncategorised.
	Delete(ctx context.Context, id int64) error
}

// ProductService defines operations for product management.
type ProductService interface {
	// List retrieves products with filtering and pagination.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// Create creates a product, deriving the slug from the name when blank.
	Create(ctx context.Context, in *model.ProductInput) (*model.Product, error)

	// Update replaces (partial=false) or patches (partial=true) a product.
	Update(ctx context.Context, id int64, in *model.ProductInput, partial bool) (*model.Product, error)

	// Delete removes a product that no order item references.
	Delete(ctx context.Context, id int64) error

	// ReduceStock atomically removes quantity units from stock.
	ReduceStock(ctx context.Context, id int64, quantity int) (*model.Product, error)

	// UploadImage stores a product image and records its URL.
	UploadImage(ctx context.Context, id int64, contentType string, body io.Reader) (*model.Product, error)
}

// OrderService defines operations for order management.
type OrderService interface {
	// Checkout places an order for userID, reserving stock for every line.
	Checkout(ctx context.Context, userID uuid.UUID, req *model.CheckoutRequest) (*model.Order, error)

	// AddItem adds a line to a pending order and refreshes its total.
	AddItem(ctx context.Context, orderID uuid.UUID, req *model.OrderItemRequest) (*model.Order, error)

	// CalculateTotal recomputes and persists the order total from its items.
	CalculateTotal(ctx context.Context, orderID uuid.UUID) (*model.Order, error)

	// UpdateStatus moves an order to a new status.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*model.Order, error)

	// Get retrieves an order. A non-nil owner hides orders placed by other users.
	Get(ctx context.Context, orderID uuid.UUID, owner *uuid.UUID) (*model.Order, error)

	// List retrieves orders, newest first.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)
}

// UserService defines account and credential operations.
type UserService interface {
	// Register creates a new account.
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)

	// Login verifies credentials and issues an access and refresh token.
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenPair, error)

	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, req *model.RefreshRequest) (*model.AccessToken, error)
}

// TokenIssuer signs and verifies user tokens.
type TokenIssuer interface {
	IssuePair(user *model.User) (*model.TokenPair, error)
	Refresh(refreshToken string) (*model.AccessToken, error)
	Parse(token, tokenType string) (*auth.Claims, error)
}

// normalisePage clamps pagination parameters to sane bounds.
func normalisePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
