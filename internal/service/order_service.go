package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopfront/internal/model"
	"shopfront/internal/repository"
	"shopfront/internal/validate"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	logger      zerolog.Logger
	now         func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		logger:      logger.With().Str("service", "order").Logger(),
		now:         time.Now,
	}
}

// Checkout places an order for userID. Stock for every line is reduced in
// the same transaction that inserts the order, so either the whole order is
// placed or no stock moves.
func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID, req *model.CheckoutRequest) (*model.Order, error) {
	if req == nil {
		return nil, model.NewValidationError("items", "This field is required.")
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	productIDs := make([]int64, 0, len(req.Items))
	seen := make(map[int64]bool, len(req.Items))
	for _, item := range req.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			productIDs = append(productIDs, item.ProductID)
		}
	}

	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		s.logger.Error().Err(err).Int("product_count", len(productIDs)).Msg("failed to load products")
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	if err := checkPurchasable(req.Items, products); err != nil {
		s.logger.Warn().Err(err).Msg("checkout rejected")
		return nil, err
	}

	now := s.now()
	order := &model.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          model.OrderStatusPending,
		ShippingAddress: req.ShippingAddress,
		Timestamps:      model.Timestamps{CreatedAt: now, UpdatedAt: now},
	}

	err = inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		items := make([]model.OrderItem, len(req.Items))
		for i, line := range req.Items {
			_, price, err := s.productRepo.ReserveStock(ctx, tx, line.ProductID, line.Qty())
			if errors.Is(err, model.ErrProductUnavailable) {
				return unavailable(fmt.Sprintf("items[%d].product_id", i), line.ProductID)
			}
			if err != nil {
				return err
			}
			items[i] = model.OrderItem{
				ID:         uuid.New(),
				OrderID:    order.ID,
				ProductID:  line.ProductID,
				Quantity:   line.Qty(),
				Price:      price,
				Timestamps: model.Timestamps{CreatedAt: now, UpdatedAt: now},
			}
		}

		order.Items = items
		order.TotalAmount = model.OrderTotal(items)

		if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if err := s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("checkout failed")
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", userID.String()).
		Int("item_count", len(order.Items)).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("order placed")

	return order, nil
}

// checkPurchasable reports lines whose product is missing or withdrawn from sale.
func checkPurchasable(lines []model.OrderItemRequest, products []model.Product) error {
	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	verr := &model.ValidationError{}
	for i, line := range lines {
		field := fmt.Sprintf("items[%d].product_id", i)
		p, ok := byID[line.ProductID]
		switch {
		case !ok:
			verr.Add(field, fmt.Sprintf(`Invalid pk "%d" - object does not exist.`, line.ProductID))
		case !p.Available:
			verr.Add(field, unavailableMessage(line.ProductID))
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func unavailableMessage(productID int64) string {
	return fmt.Sprintf("Product %d is not available.", productID)
}

func unavailable(field string, productID int64) error {
	return model.NewValidationError(field, unavailableMessage(productID))
}

// AddItem adds a line to a pending order, reducing stock and refreshing the
// order total in one transaction.
func (s *orderService) AddItem(ctx context.Context, orderID uuid.UUID, req *model.OrderItemRequest) (*model.Order, error) {
	if req == nil {
		return nil, model.NewValidationError("product_id", "This field is required.")
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	products, err := s.productRepo.GetByIDs(ctx, []int64{req.ProductID})
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", req.ProductID).Msg("failed to load product")
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if err := checkPurchasable([]model.OrderItemRequest{*req}, products); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			verr.Fields["product_id"] = verr.Fields["items[0].product_id"]
			delete(verr.Fields, "items[0].product_id")
		}
		return nil, err
	}

	var order *model.Order
	err = inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		var err error
		order, err = s.lock(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != model.OrderStatusPending {
			return model.NewValidationError("status", "Items can only be added to pending orders.")
		}

		_, price, err := s.productRepo.ReserveStock(ctx, tx, req.ProductID, req.Qty())
		if errors.Is(err, model.ErrProductUnavailable) {
			return unavailable("product_id", req.ProductID)
		}
		if err != nil {
			return err
		}

		now := s.now()
		item := model.OrderItem{
			ID:         uuid.New(),
			OrderID:    orderID,
			ProductID:  req.ProductID,
			Quantity:   req.Qty(),
			Price:      price,
			Timestamps: model.Timestamps{CreatedAt: now, UpdatedAt: now},
		}
		if err := s.orderRepo.CreateOrderItems(ctx, tx, []model.OrderItem{item}); err != nil {
			return err
		}

		return s.refreshTotal(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Int64("product_id", req.ProductID).
		Int("quantity", req.Qty()).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("order item added")

	return order, nil
}

// CalculateTotal recomputes and persists the order total from its items.
// The order row is locked first; every writer of order items takes the same
// lock, so the item read below is stable until commit.
func (s *orderService) CalculateTotal(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	var order *model.Order
	err := inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		var err error
		order, err = s.lock(ctx, tx, orderID)
		if err != nil {
			return err
		}
		return s.refreshTotal(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("order total recalculated")

	return order, nil
}

// UpdateStatus moves an order to a new status. Moving to the current status
// is a no-op; any other move must be an allowed transition.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*model.Order, error) {
	next, err := model.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	var previous model.OrderStatus
	err = inTx(ctx, s.orderRepo, s.logger, func(tx pgx.Tx) error {
		order, err := s.lock(ctx, tx, orderID)
		if err != nil {
			return err
		}

		previous = order.Status
		if previous == next {
			return nil
		}
		if !previous.CanTransitionTo(next) {
			s.logger.Warn().
				Str("order_id", orderID.String()).
				Str("from", string(previous)).
				Str("to", string(next)).
				Msg("rejected order status transition")
			return model.ErrInvalidStatusTransition
		}

		return s.orderRepo.UpdateStatus(ctx, tx, orderID, next)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("from", string(previous)).
		Str("to", string(next)).
		Msg("order status updated")

	return s.Get(ctx, orderID, nil)
}

// Get retrieves an order. A non-nil owner hides orders placed by other users.
func (s *orderService) Get(ctx context.Context, orderID uuid.UUID, owner *uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil || (owner != nil && order.UserID != *owner) {
		s.logger.Debug().Str("order_id", orderID.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}

// List retrieves orders, newest first.
func (s *orderService) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	filter.Limit, filter.Offset = normalisePage(filter.Limit, filter.Offset)

	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) lock(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// refreshTotal reloads the order's items, recomputes the total and persists it.
func (s *orderService) refreshTotal(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	items, err := s.orderRepo.ListItems(ctx, tx, order.ID)
	if err != nil {
		return err
	}

	total := model.OrderTotal(items)
	if err := s.orderRepo.UpdateTotal(ctx, tx, order.ID, total); err != nil {
		return err
	}

	order.Items = items
	order.TotalAmount = total
	return nil
}
