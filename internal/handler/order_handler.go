package handler

import (
	"net/http"

	"shopfront/internal/middleware"
	"shopfront/internal/model"
	"shopfront/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests for customers and
// administrators.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Checkout handles POST /orders/ requests.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req model.CheckoutRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	order, err := h.service.Checkout(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// ListMine handles GET /orders/ requests.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	limit, offset, ok := pagination(w, r, h.logger)
	if !ok {
		return
	}

	orders, err := h.service.List(r.Context(), model.OrderFilter{UserID: &userID, Limit: limit, Offset: offset})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetMine handles GET /orders/{id}/ requests. Orders of other users are
// reported as not found.
func (h *OrderHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	orderID, ok := pathUUID(r, "id")
	if !ok {
		writeServiceError(w, model.ErrOrderNotFound, h.logger)
		return
	}

	order, err := h.service.Get(r.Context(), orderID, &userID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// List handles GET /admin/orders/ requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r, h.logger)
	if !ok {
		return
	}

	filter := model.OrderFilter{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := model.ParseOrderStatus(raw)
		if err != nil {
			writeServiceError(w, err, h.logger)
			return
		}
		filter.Status = &status
	}

	orders, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// Get handles GET /admin/orders/{id}/ requests.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(r, "id")
	if !ok {
		writeServiceError(w, model.ErrOrderNotFound, h.logger)
		return
	}

	order, err := h.service.Get(r.Context(), orderID, nil)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// AddItem handles POST /admin/orders/{id}/items/ requests.
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(r, "id")
	if !ok {
		writeServiceError(w, model.ErrOrderNotFound, h.logger)
		return
	}

	var req model.OrderItemRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	order, err := h.service.AddItem(r.Context(), orderID, &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// Recalculate handles POST /admin/orders/{id}/recalculate/ requests.
func (h *OrderHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(r, "id")
	if !ok {
		writeServiceError(w, model.ErrOrderNotFound, h.logger)
		return
	}

	order, err := h.service.CalculateTotal(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PATCH /admin/orders/{id}/status/ requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(r, "id")
	if !ok {
		writeServiceError(w, model.ErrOrderNotFound, h.logger)
		return
	}

	var req model.StatusUpdateRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised,
			"Authentication credentials were not provided.", h.logger)
		return uuid.Nil, false
	}
	return userID, true
}
