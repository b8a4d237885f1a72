package model

import "github.com/google/uuid"

// User is an account able to place orders.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"-" db:"is_active"`
	Timestamps
}

// RegisterRequest represents the request payload for account creation.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest represents the request payload for token issuance.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the request payload for token refresh.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// TokenPair is returned on successful login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AccessToken is returned on successful refresh.
type AccessToken struct {
	Access string `json:"access"`
}
