package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	logger.Warn().Str("error", message).Str("code", code).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeServiceError translates a service error into an HTTP response.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var (
		verr     *model.ValidationError
		stockErr *model.InsufficientStockError
		domErr   *model.DomainError
	)

	switch {
	case errors.As(err, &verr):
		logger.Debug().Err(err).Msg("validation failed")
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error:   model.ErrCodeValidation,
			Message: "Invalid input.",
			Fields:  verr.Fields,
		})
	case errors.As(err, &stockErr):
		writeError(w, http.StatusConflict, model.ErrCodeInsufficientStock, stockErr.Error(), logger)
	case errors.As(err, &domErr):
		writeError(w, domainStatus(domErr.Code), domErr.Code, domErr.Message, logger)
	default:
		logger.Error().Err(err).Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Error:   model.ErrCodeInternalError,
			Message: "internal server error",
		})
	}
}

func domainStatus(code string) int {
	switch code {
	case model.ErrCodeProductNotFound, model.ErrCodeCategoryNotFound, model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeReferentialIntegrity, model.ErrCodeInvalidStatusTransition, model.ErrCodeInsufficientStock:
		return http.StatusConflict
	case model.ErrCodeInvalidCredentials, model.ErrCodeInvalidToken, model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// decodeJSON decodes a bounded request body into dst and writes a 400
// response when that fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, logger zerolog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		message := "invalid request body"
		if errors.Is(err, io.EOF) {
			message = "request body is empty"
		}
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, message, logger)
		return false
	}
	return true
}

// pathInt64 parses a positive integer path value.
func pathInt64(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// pathUUID parses a UUID path value.
func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}

// queryInt parses an optional integer query parameter, returning def when it is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// pagination reads limit and offset, writing a 400 response on malformed input.
func pagination(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (limit, offset int, ok bool) {
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid limit parameter", logger)
		return 0, 0, false
	}

	offset, err = queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid offset parameter", logger)
		return 0, 0, false
	}

	return limit, offset, true
}
