package model

// Category groups products in the catalogue.
type Category struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Slug        string `json:"slug" db:"slug"`
	Description string `json:"description" db:"description"`
	Timestamps  `json:"-"`
}

// CategorySummary is a category together with the number of products
// currently linked to it.
type CategorySummary struct {
	Category
	ProductCount int `json:"product_count"`
}

// CategoryInput is the write payload for categories. Nil fields are left
// untouched on partial updates.
type CategoryInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Slug        *string `json:"slug" validate:"omitempty,max=120,slug"`
	Description *string `json:"description"`
}
