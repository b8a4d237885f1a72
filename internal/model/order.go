package model

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// orderTransitions lists the states reachable from each state.
// DELIVERED and CANCELLED are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  nil,
	OrderStatusCancelled:  nil,
}

// ParseOrderStatus converts a string into an OrderStatus.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", NewValidationError("status", `"`+s+`" is not a valid choice.`)
	}
	return status, nil
}

// Valid reports whether s is one of the enumerated statuses.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether an order in state s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order represents a customer order.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	ShippingAddress string          `json:"shipping_address" db:"shipping_address"`
	Items           []OrderItem     `json:"items"`
	Timestamps
}

// MarshalJSON renders the total with two fractional digits.
func (o Order) MarshalJSON() ([]byte, error) {
	type order Order
	items := o.Items
	if items == nil {
		items = []OrderItem{}
	}
	return json.Marshal(struct {
		order
		TotalAmount string      `json:"total_amount"`
		Items       []OrderItem `json:"items"`
	}{
		order:       order(o),
		TotalAmount: o.TotalAmount.StringFixed(2),
		Items:       items,
	})
}

// OrderItem represents a line item in an order. Price is the unit price
// captured when the line was added and never follows later product changes.
type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID int64           `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Timestamps
}

// Subtotal returns quantity times the snapshotted unit price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// MarshalJSON renders money with two fractional digits and adds the
// read-only subtotal.
func (i OrderItem) MarshalJSON() ([]byte, error) {
	type orderItem OrderItem
	return json.Marshal(struct {
		orderItem
		Price    string `json:"price"`
		Subtotal string `json:"subtotal"`
	}{
		orderItem: orderItem(i),
		Price:     i.Price.StringFixed(2),
		Subtotal:  i.Subtotal().StringFixed(2),
	})
}

// OrderTotal sums the subtotals of items at two fractional digits.
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total.Round(2)
}

// CheckoutRequest represents the request payload for placing an order.
type CheckoutRequest struct {
	ShippingAddress string             `json:"shipping_address" validate:"max=2000"`
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// OrderItemRequest represents a single line in a checkout or add-line request.
// A missing quantity defaults to one.
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  *int  `json:"quantity" validate:"omitnil,min=1,max=2147483647"`
}

// Qty returns the requested quantity, defaulting to one.
func (r OrderItemRequest) Qty() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

// StatusUpdateRequest is the payload for an order status transition.
type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	UserID *uuid.UUID
	Status *OrderStatus
	Limit  int
	Offset int
}
