package model

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"
)

// MinPrice is the lowest price a product may carry.
var MinPrice = decimal.RequireFromString("0.01")

// MaxPrice is the highest price a NUMERIC(10,2) column holds.
var MaxPrice = decimal.RequireFromString("99999999.99")

// MaxQuantity bounds stock levels and requested quantities to the INTEGER
// columns that store them.
const MaxQuantity = math.MaxInt32

// Product represents an item in the catalogue.
type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Slug        string          `json:"slug" db:"slug"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`
	Available   bool            `json:"available" db:"available"`
	CategoryID  *int64          `json:"-" db:"category_id"`
	Category    *Category       `json:"category"`
	Image       *string         `json:"image" db:"image"`
	Timestamps
}

// InStock reports whether the product can currently be sold.
func (p Product) InStock() bool {
	return p.Stock > 0 && p.Available
}

// MarshalJSON renders the price with two fractional digits and adds the
// derived in_stock flag.
func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	return json.Marshal(struct {
		product
		Price   string `json:"price"`
		InStock bool   `json:"in_stock"`
	}{
		product: product(p),
		Price:   p.Price.StringFixed(2),
		InStock: p.InStock(),
	})
}

// ProductInput is the write payload for products. Nil fields are left
// untouched on partial updates.
type ProductInput struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Slug        *string          `json:"slug" validate:"omitempty,max=255,slug"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Available   *bool            `json:"available"`
	CategoryID  *int64           `json:"category_id"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID *int64
	Available  *bool
	Limit      int
	Offset     int
}

// ReduceStockRequest is the payload for a manual stock reduction.
type ReduceStockRequest struct {
	Quantity int `json:"quantity"`
}
