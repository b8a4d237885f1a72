package service

import (
	"context"
	"errors"
	"testing"

	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func decimalEq(s string) any {
	want := dec(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func newOrderServiceWithMocks() (*orderService, *MockOrderRepository, *MockProductRepository) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	svc := NewOrderService(orderRepo, productRepo, zerolog.Nop()).(*orderService)
	return svc, orderRepo, productRepo
}

func TestOrderService_Checkout_Success(t *testing.T) {
	ctx := context.Background()
	svc, orderRepo, productRepo := newOrderServiceWithMocks()
	mockTx := new(MockTx)
	userID := uuid.New()

	req := &model.CheckoutRequest{
		ShippingAddress: "1 Main St",
		Items: []model.OrderItemRequest{
			{ProductID: 1, Quantity: intPtr(2)},
			{ProductID: 2},
		},
	}

	productRepo.On("GetByIDs", ctx, []int64{1, 2}).Return([]model.Product{
		{ID: 1, Price: dec("10.00"), Stock: 5, Available: true},
		{ID: 2, Price: dec("5.50"), Stock: 5, Available: true},
	}, nil)
	orderRepo.On("BeginTx", ctx, pgx.TxOptions{}).Return(mockTx, nil)
	productRepo.On("ReserveStock", ctx, mockTx, int64(1), 2).Return(3, dec("10.00"), nil)
	productRepo.On("ReserveStock", ctx, mockTx, int64(2), 1).Return(4, dec("5.50"), nil)
	orderRepo.On("CreateOrder", ctx, mockTx, mock.AnythingOfType("*model.Order")).Return(nil)
	orderRepo.On("CreateOrderItems", ctx, mockTx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)

	order, err := svc.Checkout(ctx, userID, req)

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, userID, order.UserID)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, "25.50", order.TotalAmount.StringFixed(2))
	require.Len(t, order.Items, 2)
	assert.Equal(t, 1, order.Items[1].Quantity, "missing quantity defaults to one")
	assert.True(t, mockTx.committed)
	assert.False(t, mockTx.rolledBack)

	orderRepo.AssertExpectations(t)
	productRepo.AssertExpectations(t)
}

func TestOrderService_Checkout_InsufficientStockRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, orderRepo, productRepo := newOrderServiceWithMocks()
	mockTx := new(MockTx)

	req := &model.CheckoutRequest{Items: []model.OrderItemRequest{
		{ProductID: 1, Quantity: intPtr(1)},
		{ProductID: 2, Quantity: intPtr(7)},
	}}

	stockErr := &model.InsufficientStockError{ProductID: 2, Requested: 7, Available: 5}

	productRepo.On("GetByIDs", ctx, []int64{1, 2}).Return([]model.Product{
		{ID: 1, Available: true}, {ID: 2, Available: true},
	}, nil)
	orderRepo.On("BeginTx", ctx, pgx.TxOptions{}).Return(mockTx, nil)
	productRepo.On("ReserveStock", ctx, mockTx, int64(1), 1).Return(4, dec("1.00"), nil)
	productRepo.On("ReserveStock", ctx, mockTx, int64(2), 7).Return(0, decimal.Zero, stockErr)
	mockTx.On("Rollback", ctx).Return(nil)

	order, err := svc.Checkout(ctx, uuid.New(), req)

	assert.Nil(t, order)
	var got *model.InsufficientStockError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 5, got.Available)
	assert.True(t, mockTx.rolledBack)
	assert.False(t, mockTx.committed)
	orderRepo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_Checkout_WithdrawnDuringCheckout(t *testing.T) {
	ctx := context.Background()
	svc, orderRepo, productRepo := newOrderServiceWithMocks()
	mockTx := new(MockTx)

	req := &model.CheckoutRequest{Items: []model.OrderItemRequest{
		{ProductID: 1},
		{ProductID: 2},
	}}

	productRepo.On("GetByIDs", ctx, []int64{1, 2}).Return([]model.Product{
		{ID: 1, Available: true}, {ID: 2, Available: true},
	}, nil)
	orderRepo.On("BeginTx", ctx, pgx.TxOptions{}).Return(mockTx, nil)
	productRepo.On("ReserveStock", ctx, mockTx, int64(1), 1).Return(4, dec("1.00"), nil)
	productRepo.On("ReserveStock", ctx, mockTx, int64(2), 1).Return(0, decimal.Zero, model.ErrProductUnavailable)
	mockTx.On("Rollback", ctx).Return(nil)

	order, err := svc.Checkout(ctx, uuid.New(), req)

	assert.Nil(t, order)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Product 2 is not available."}, verr.Fields["items[1].product_id"])
	assert.True(t, mockTx.rolledBack)
	assert.False(t, mockTx.committed)
	orderRepo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_Checkout_ValidationErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		req           *model.CheckoutRequest
		products      []model.Product
		expectedField string
	}{
		{
			name:          "no items",
			req:           &model.CheckoutRequest{Items: []model.OrderItemRequest{}},
			expectedField: "items",
		},
		{
			name:          "zero quantity",
			req:           &model.CheckoutRequest{Items: []model.OrderItemRequest{{ProductID: 1, Quantity: intPtr(0)}}},
			expectedField: "items[0].quantity",
		},
		{
			name:          "quantity above integer range",
			req:           &model.CheckoutRequest{Items: []model.OrderItemRequest{{ProductID: 1, Quantity: intPtr(model.MaxQuantity + 1)}}},
			expectedField: "items[0].quantity",
		},
		{
			name:          "unknown product",
			req:           &model.CheckoutRequest{Items: []model.OrderItemRequest{{ProductID: 9}}},
			products:      []model.Product{},
			expectedField: "items[0].product_id",
		},
		{
			name:          "unavailable product",
			req:           &model.CheckoutRequest{Items: []model.OrderItemRequest{{ProductID: 1}}},
			products:      []model.Product{{ID: 1, Available: false, Stock: 3}},
			expectedField: "items[0].product_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, orderRepo, productRepo := newOrderServiceWithMocks()
			if tt.products != nil {
				productRepo.On("GetByIDs", ctx, mock.Anything).Return(tt.products, nil)
			}

			order, err := svc.Checkout(ctx, uuid.New(), tt.req)

			assert.Nil(t, order)
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.expectedField)
			orderRepo.AssertNotCalled(t, "BeginTx", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_Checkout_BeginTxFails(t *testing.T) {
	ctx := context.Background()
	svc, orderRepo, productRepo := newOrderServiceWithMocks()

	productRepo.On("GetByIDs", ctx, []int64{1}).Return([]model.Product{{ID: 1, Available: true}}, nil)
	orderRepo.On("BeginTx", ctx, pgx.TxOptions{}).Return(nil, errors.New("connection refused"))

	order, err := svc.Checkout(ctx, uuid.New(), &model.CheckoutRequest{
		Items: []model.OrderItemRequest{{ProductID: 1}},
	})

	assert.Nil(t, order)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
}

func TestOrderService_AddItem(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	t.Run("adds line and refreshes total", func(t *testing.T) {
		svc, orderRepo, productRepo := newOrderServiceWithMocks()
		mockTx := new(MockTx)

		existing := model.OrderItem{OrderID: orderID, ProductID: 2, Quantity: 1, Price: dec("5.50")}
		added := model.OrderItem{OrderID: orderID, ProductID: 1, Quantity: 2, Price: dec("10.00")}

		productRepo.On("GetByIDs", ctx, []int64{1}).Return([]model.Product{{ID: 1, Available: true}}, nil)
		orderRepo.On("BeginTx", ctx, pgx.TxOptions{}).Return(mockTx, nil)
		orderRepo.On("GetForUpdate", ctx, mockTx, orderID).
			Return(&model.Order{ID: orderID, Status: model.OrderStatusPending}, nil)
		productRepo.On("ReserveStock", ctx, mockTx, int64(1), 2).Return(8, dec("10.00"), nil)
		orderRepo.On("CreateOrderItems", ctx, mockTx, mock.MatchedBy(func(items []model.OrderItem) bool {
			return len(items) == 1 && items[0].Price.Equal(dec("10.00")) && items[0].Quantity == 2
		})).Return(nil)
		orderRepo.On("ListItems", ctx, mockTx, orderID).Return([]model.OrderItem{existing, added}, nil)
		orderRepo.On("UpdateTotal", ctx, mockTx, orderID, decimalEq("25.50")).Return(nil)
		mockTx.On("Commit", ctx).Return(nil)

		order, err := svc.AddItem(ctx, orderID, &model.OrderItemRequest{ProductID: 1, Quantity: intPtr(2)})

		require.NoError(t, err)
		assert.Equal(t, "25.50", order.TotalAmount.StringFixed(2))
		assert.Len(t, order.Items, 2)
		assert.True(t, mockTx.committed)
		orderRepo.AssertExpectations(t)
	})

	t.Run("rejects non-pending order", func(t *testing.T) {
		svc, orderRepo, productRepo := newOrderServiceWithMocks()
		mockTx := new(MockTx)

		productRepo.On("GetByIDs", ctx, []int64{1}).Return([]model.Product{{ID: 1, Available: true}}, nil)
		orderRepo.On("BeginTx", ctx, pgx.TxOptions{}).Return(mockTx, nil)
		orderRepo.On("GetForUpdate", ctx, mockTx, orderID).
			Return(&model.Order{ID: orderID, Status: model.OrderStatusShipped}, nil)
		mockTx.On("Rollback", ctx).Return(nil)

		order, err := svc.AddItem(ctx, orderID, &model.OrderItemRequest{ProductID: 1})

		assert.Nil(t, order)
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "status")
		assert.True(t, mockTx.rolledBack)
		productRepo.AssertNotCalled(t, "ReserveStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown product", func(t *testing.T) {
		svc, _, productRepo := newOrderServiceWithMocks()
		productRepo.On("GetByIDs", ctx, []int64{42}).Return([]model.Product{}, nil)

		_, err := svc.AddItem(ctx, orderID, &model.OrderItemRequest{ProductID: 42})

		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "product_id")
	})
}

func TestOrderService_CalculateTotal(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	tests := []struct {
		name          string
		items         []model.OrderItem
		expectedTotal string
	}{
		{
			name: "mixed lines",
			items: []model.OrderItem{
				{Quantity: 2, Price: dec("10.00")},
				{Quantity: 1, Price: dec("5.50")},
			},
			expectedTotal: "25.50",
		},
		{
			name:          "empty order",
			items:         []model.OrderItem{},
			expectedTotal: "0.00",
		},
		{
			name:          "fractional cents",
			items:         []model.OrderItem{{Quantity: 3, Price: dec("9.99")}},
			expectedTotal: "29.97",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, orderRepo, _ := newOrderServiceWithMocks()
			mockTx := new(MockTx)

			orderRepo.On("BeginTx", ctx, pgx.TxOptions{}).Return(mockTx, nil)
			orderRepo.On("GetForUpdate", ctx, mockTx, orderID).Return(&model.Order{ID: orderID}, nil)
			orderRepo.On("ListItems", ctx, mockTx, orderID).Return(tt.items, nil)
			orderRepo.On("UpdateTotal", ctx, mockTx, orderID, decimalEq(tt.expectedTotal)).Return(nil)
			mockTx.On("Commit", ctx).Return(nil)

			first, err := svc.CalculateTotal(ctx, orderID)
			require.NoError(t, err)
			second, err := svc.CalculateTotal(ctx, orderID)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedTotal, first.TotalAmount.StringFixed(2))
			assert.True(t, first.TotalAmount.Equal(second.TotalAmount))
			orderRepo.AssertNumberOfCalls(t, "UpdateTotal", 2)
		})
	}

	t.Run("order not found", func(t *testing.T) {
		svc, orderRepo, _ := newOrderServiceWithMocks()
		mockTx := new(MockTx)

		orderRepo.On("BeginTx", ctx, pgx.TxOptions{}).Return(mockTx, nil)
		orderRepo.On("GetForUpdate", ctx, mockTx, orderID).Return(nil, nil)
		mockTx.On("Rollback", ctx).Return(nil)

		order, err := svc.CalculateTotal(ctx, orderID)
		assert.Nil(t, order)
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})
}

func TestOrderService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	tests := []struct {
		name        string
		current     model.OrderStatus
		requested   string
		expectWrite bool
		expectedErr error
	}{
		{name: "pending to processing", current: model.OrderStatusPending, requested: "PROCESSING", expectWrite: true},
		{name: "lowercase input", current: model.OrderStatusProcessing, requested: "shipped", expectWrite: true},
		{name: "pending to cancelled", current: model.OrderStatusPending, requested: "CANCELLED", expectWrite: true},
		{name: "same status is a no-op", current: model.OrderStatusShipped, requested: "SHIPPED"},
		{name: "delivered is terminal", current: model.OrderStatusDelivered, requested: "PENDING", expectedErr: model.ErrInvalidStatusTransition},
		{name: "cannot skip shipping", current: model.OrderStatusPending, requested: "DELIVERED", expectedErr: model.ErrInvalidStatusTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, orderRepo, _ := newOrderServiceWithMocks()
			mockTx := new(MockTx)

			orderRepo.On("BeginTx", ctx, pgx.TxOptions{}).Return(mockTx, nil)
			orderRepo.On("GetForUpdate", ctx, mockTx, orderID).
				Return(&model.Order{ID: orderID, Status: tt.current}, nil)

			next, _ := model.ParseOrderStatus(tt.requested)
			if tt.expectWrite {
				orderRepo.On("UpdateStatus", ctx, mockTx, orderID, next).Return(nil)
			}
			if tt.expectedErr != nil {
				mockTx.On("Rollback", ctx).Return(nil)
			} else {
				mockTx.On("Commit", ctx).Return(nil)
				orderRepo.On("GetByID", ctx, orderID).Return(&model.Order{ID: orderID, Status: next}, nil)
			}

			order, err := svc.UpdateStatus(ctx, orderID, tt.requested)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, order)
				orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, next, order.Status)
			if !tt.expectWrite {
				orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}

	t.Run("unknown status", func(t *testing.T) {
		svc, orderRepo, _ := newOrderServiceWithMocks()

		_, err := svc.UpdateStatus(ctx, orderID, "LOST")

		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "status")
		orderRepo.AssertNotCalled(t, "BeginTx", mock.Anything, mock.Anything)
	})
}

func TestOrderService_Get(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()
	orderID := uuid.New()

	svc, orderRepo, _ := newOrderServiceWithMocks()
	orderRepo.On("GetByID", ctx, orderID).Return(&model.Order{ID: orderID, UserID: owner}, nil)
	missing := uuid.New()
	orderRepo.On("GetByID", ctx, missing).Return(nil, nil)

	order, err := svc.Get(ctx, orderID, &owner)
	require.NoError(t, err)
	assert.Equal(t, orderID, order.ID)

	_, err = svc.Get(ctx, orderID, &stranger)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)

	order, err = svc.Get(ctx, orderID, nil)
	require.NoError(t, err)
	assert.NotNil(t, order)

	_, err = svc.Get(ctx, missing, nil)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestOrderService_List_ClampsPagination(t *testing.T) {
	ctx := context.Background()
	svc, orderRepo, _ := newOrderServiceWithMocks()
	userID := uuid.New()

	orderRepo.On("List", ctx, model.OrderFilter{UserID: &userID, Limit: 100, Offset: 0}).
		Return([]model.Order{}, nil)

	orders, err := svc.List(ctx, model.OrderFilter{UserID: &userID, Limit: 1000, Offset: -5})
	require.NoError(t, err)
	assert.Empty(t, orders)
	orderRepo.AssertExpectations(t)
}
