package model

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON             = "INVALID_JSON"
	ErrCodeValidation              = "VALIDATION_ERROR"
	ErrCodeInsufficientStock       = "INSUFFICIENT_STOCK"
	ErrCodeReferentialIntegrity    = "REFERENTIAL_INTEGRITY"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeProductNotFound         = "PRODUCT_NOT_FOUND"
	ErrCodeCategoryNotFound        = "CATEGORY_NOT_FOUND"
	ErrCodeOrderNotFound           = "ORDER_NOT_FOUND"
	ErrCodeInvalidQuantity         = "INVALID_QUANTITY"
	ErrCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken            = "INVALID_TOKEN"
	ErrCodeUnauthorised            = "UNAUTHORIZED"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrProductNotFound         = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrCategoryNotFound        = NewDomainError(ErrCodeCategoryNotFound, "Category not found")
	ErrOrderNotFound           = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrInvalidQuantity         = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrProductUnavailable      = NewDomainError(ErrCodeValidation, "Product is not available")
	ErrProductInUse            = NewDomainError(ErrCodeReferentialIntegrity, "Product is referenced by order items and cannot be deleted")
	ErrInvalidStatusTransition = NewDomainError(ErrCodeInvalidStatusTransition, "Order status transition is not allowed")
	ErrInvalidCredentials      = NewDomainError(ErrCodeInvalidCredentials, "No active account found with the given credentials")
	ErrInvalidToken            = NewDomainError(ErrCodeInvalidToken, "Token is invalid or expired")
)

// ValidationError reports one or more field constraint violations.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

// Add records a message against a field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any field message was recorded.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// InsufficientStockError is returned when a stock reduction exceeds the
// quantity on hand. The product's stock is left unchanged.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for product %d. Only %d available.", e.ProductID, e.Available)
}
