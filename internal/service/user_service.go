package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shopfront/internal/auth"
	"shopfront/internal/model"
	"shopfront/internal/repository"
	"shopfront/internal/validate"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// userService implements UserService.
type userService struct {
	userRepo repository.UserRepository
	tokens   TokenIssuer
	logger   zerolog.Logger
	now      func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(userRepo repository.UserRepository, tokens TokenIssuer, logger zerolog.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger.With().Str("service", "user").Logger(),
		now:      time.Now,
	}
}

// Register creates a new account. The password is stored as a bcrypt hash
// and never returned.
func (s *userService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if req == nil {
		return nil, model.NewValidationError("username", "This field is required.")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
		Timestamps:   model.Timestamps{CreatedAt: now, UpdatedAt: now},
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Login verifies credentials and issues an access and refresh token.
func (s *userService) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenPair, error) {
	if req == nil {
		return nil, model.ErrInvalidCredentials
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to look up user")
		return nil, fmt.Errorf("failed to log in: %w", err)
	}
	if user == nil || !user.IsActive {
		s.logger.Debug().Str("username", req.Username).Msg("login for unknown or inactive user")
		return nil, model.ErrInvalidCredentials
	}

	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to verify password")
		return nil, fmt.Errorf("failed to log in: %w", err)
	}
	if !ok {
		s.logger.Debug().Str("user_id", user.ID.String()).Msg("wrong password")
		return nil, model.ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to issue tokens")
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return pair, nil
}

// Refresh exchanges a refresh token for a new access token, provided the
// account is still active.
func (s *userService) Refresh(ctx context.Context, req *model.RefreshRequest) (*model.AccessToken, error) {
	if req == nil {
		return nil, model.ErrInvalidToken
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	claims, err := s.tokens.Parse(req.Refresh, auth.TokenTypeRefresh)
	if err != nil {
		return nil, model.ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, model.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to look up user")
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, model.ErrInvalidToken
	}

	return s.tokens.Refresh(req.Refresh)
}
