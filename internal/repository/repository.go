package repository

import (
	"context"

	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CategoryRepository defines the interface for category data access operations.
type CategoryRepository interface {
	// List retrieves categories ordered by name with pagination support.
	List(ctx context.Context, limit, offset int) ([]model.Category, error)

	// ListWithCounts retrieves every category with its product count.
	ListWithCounts(ctx context.Context) ([]model.CategorySummary, error)

	// GetByID retrieves a single category by its ID. Returns nil if absent.
	GetByID(ctx context.Context, id int64) (*model.Category, error)

	// SlugExists reports whether another category already uses slug.
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)

	// Create inserts a category and fills in its ID and timestamps.
	Create(ctx context.Context, category *model.Category) error

	// Update overwrites a category's editable fields.
	Update(ctx context.Context, category *model.Category) error

	// Delete removes a category. Linked products keep existing with no category.
	Delete(ctx context.Context, id int64) error
}

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List retrieves products, newest first, with filtering and pagination.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil if absent.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	// SlugExists reports whether another product already uses slug.
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)

	// Create inserts a product and fills in its ID and timestamps.
	Create(ctx context.Context, product *model.Product) error

	// Update overwrites a product's editable fields. Stock is only written
	// when stock is non-nil; otherwise the stored value is kept and copied
	// back into product.
	Update(ctx context.Context, product *model.Product, stock *int) error

	// SetImage records the stored image URL for a product.
	SetImage(ctx context.Context, id int64, url string) error

	// Delete removes a product. Fails with model.ErrProductInUse while order
	// items reference it.
	Delete(ctx context.Context, id int64) error

	// ReduceStock decrements stock by quantity within tx only if enough stock
	// is on hand. It returns the remaining stock and the current unit price.
	ReduceStock(ctx context.Context, tx pgx.Tx, id int64, quantity int) (int, decimal.Decimal, error)

	// ReserveStock is ReduceStock for a sale: it also fails with
	// model.ErrProductUnavailable when the product is withdrawn from sale.
	ReserveStock(ctx context.Context, tx pgx.Tx, id int64, quantity int) (int, decimal.Decimal, error)
}

// TxBeginner starts database transactions.
type TxBeginner interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	TxBeginner

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetForUpdate retrieves and row-locks an order within the provided transaction.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// ListItems retrieves an order's items within the provided transaction.
	ListItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.OrderItem, error)

	// UpdateTotal persists a recomputed total within the provided transaction.
	UpdateTotal(ctx context.Context, tx pgx.Tx, id uuid.UUID, total decimal.Decimal) error

	// UpdateStatus persists a new status within the provided transaction.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// List retrieves orders, newest first, along with their items.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)
}

// UserRepository defines the interface for user data access operations.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, user *model.User) error

	// GetByUsername retrieves a user by username. Returns nil if absent.
	GetByUsername(ctx context.Context, username string) (*model.User, error)

	// GetByID retrieves a user by ID. Returns nil if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// rowScanner is implemented by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
