package handler

import (
	"net/http"

	"shopfront/internal/model"
	"shopfront/internal/service"

	"github.com/rs/zerolog"
)

// CategoryHandler handles category-related HTTP requests.
type CategoryHandler struct {
	service service.CategoryService
	logger  zerolog.Logger
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(service service.CategoryService, logger zerolog.Logger) *CategoryHandler {
	return &CategoryHandler{
		service: service,
		logger:  logger.With().Str("handler", "category").Logger(),
	}
}

// List handles GET /categories/ requests with pagination.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r, h.logger)
	if !ok {
		return
	}

	categories, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

// ListWithCounts handles GET /admin/categories/ requests.
func (h *CategoryHandler) ListWithCounts(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListWithCounts(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// GetByID handles GET /categories/{id}/ requests.
func (h *CategoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeServiceError(w, model.ErrCategoryNotFound, h.logger)
		return
	}

	category, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, category)
}

// Create handles POST /categories/ requests.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.CategoryInput
	if !decodeJSON(w, r, &in, h.logger) {
		return
	}

	category, err := h.service.Create(r.Context(), &in)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, category)
}

// Update handles PUT /categories/{id}/ requests.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// Patch handles PATCH /categories/{id}/ requests.
func (h *CategoryHandler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *CategoryHandler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeServiceError(w, model.ErrCategoryNotFound, h.logger)
		return
	}

	var in model.CategoryInput
	if !decodeJSON(w, r, &in, h.logger) {
		return
	}

	category, err := h.service.Update(r.Context(), id, &in, partial)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, category)
}

// Delete handles DELETE /categories/{id}/ requests.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeServiceError(w, model.ErrCategoryNotFound, h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
