// Package auth issues and verifies credentials for API users.
package auth

import (
	"errors"
	"fmt"
	"time"

	"shopfront/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "typ" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims are the JWT claims issued to a user.
type Claims struct {
	Username  string `json:"username"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenIssuer signs and verifies HS256 access and refresh tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates a token issuer.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuePair creates a new access and refresh token for user.
func (i *TokenIssuer) IssuePair(user *model.User) (*model.TokenPair, error) {
	access, err := i.sign(user.ID, user.Username, TokenTypeAccess, i.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := i.sign(user.ID, user.Username, TokenTypeRefresh, i.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &model.TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (i *TokenIssuer) Refresh(refreshToken string) (*model.AccessToken, error) {
	claims, err := i.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, model.ErrInvalidToken
	}
	access, err := i.sign(userID, claims.Username, TokenTypeAccess, i.accessTTL)
	if err != nil {
		return nil, err
	}
	return &model.AccessToken{Access: access}, nil
}

// Parse verifies tokenString and checks it is of the expected type.
// Any verification failure is reported as model.ErrInvalidToken.
func (i *TokenIssuer) Parse(tokenString, tokenType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, model.ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, model.ErrInvalidToken
	}
	return claims, nil
}

func (i *TokenIssuer) sign(userID uuid.UUID, username, tokenType string, ttl time.Duration) (string, error) {
	if len(i.secret) == 0 {
		return "", errors.New("token secret is not configured")
	}

	now := i.now()
	claims := &Claims{
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}
