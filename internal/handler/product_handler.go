package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"shopfront/internal/model"
	"shopfront/internal/service"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// maxImageBytes bounds image uploads.
const maxImageBytes = 10 << 20

// multipartOverhead is the extra body allowance for multipart boundaries and
// part headers around an image of maxImageBytes.
const multipartOverhead = 64 << 10

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// List handles GET /products/ requests with pagination and filters.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r, h.logger)
	if !ok {
		return
	}

	filter := model.ProductFilter{Limit: limit, Offset: offset}
	query := r.URL.Query()

	if raw := query.Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeServiceError(w, model.NewValidationError("category", "Select a valid choice."), h.logger)
			return
		}
		filter.CategoryID = &id
	}

	if raw := query.Get("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			writeServiceError(w, model.NewValidationError("available", "Must be a valid boolean."), h.logger)
			return
		}
		filter.Available = &available
	}

	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// GetByID handles GET /products/{id}/ requests.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeServiceError(w, model.ErrProductNotFound, h.logger)
		return
	}

	product, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Create handles POST /products/ requests.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.ProductInput
	if !decodeJSON(w, r, &in, h.logger) {
		return
	}

	product, err := h.service.Create(r.Context(), &in)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// Update handles PUT /products/{id}/ requests.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// Patch handles PATCH /products/{id}/ requests.
func (h *ProductHandler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *ProductHandler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeServiceError(w, model.ErrProductNotFound, h.logger)
		return
	}

	var in model.ProductInput
	if !decodeJSON(w, r, &in, h.logger) {
		return
	}

	product, err := h.service.Update(r.Context(), id, &in, partial)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /products/{id}/ requests.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeServiceError(w, model.ErrProductNotFound, h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReduceStock handles POST /admin/products/{id}/reduce-stock/ requests.
func (h *ProductHandler) ReduceStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeServiceError(w, model.ErrProductNotFound, h.logger)
		return
	}

	var req model.ReduceStockRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	product, err := h.service.ReduceStock(r.Context(), id, req.Quantity)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// UploadImage handles PUT /products/{id}/image/ requests. The image is taken
// from the "image" field of a multipart form, or from the raw body otherwise.
// The content type is sniffed from the bytes, not trusted from the client.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeServiceError(w, model.ErrProductNotFound, h.logger)
		return
	}

	data, err := readImage(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, model.ErrCodeValidation, "image is too large", h.logger)
			return
		}
		writeServiceError(w, model.NewValidationError("image", err.Error()), h.logger)
		return
	}
	if len(data) == 0 {
		writeServiceError(w, model.NewValidationError("image", "The submitted file is empty."), h.logger)
		return
	}

	contentType := mimetype.Detect(data).String()
	h.logger.Debug().Int64("product_id", id).Str("content_type", contentType).Int("bytes", len(data)).Msg("image received")

	product, err := h.service.UploadImage(r.Context(), id, contentType, bytes.NewReader(data))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
		return io.ReadAll(r.Body)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errors.New("No file was submitted.")
		}
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, &http.MaxBytesError{Limit: maxImageBytes}
	}
	return data, nil
}
