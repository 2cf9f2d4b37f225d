package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// Session is a signed-in user with their bearer token.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     logger.Named("auth"),
	}
}

// Register creates a USER account. A guest that registers with the same
// email keeps its id and tickets and becomes a USER.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", map[string]any{"field": "password"})
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && user.Role != domain.RoleGuest:
		return nil, apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
	case err == nil:
		user.Name = name
		user.PasswordHash = hash
		user.Role = domain.RoleUser
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
	case errors.Is(err, pgx.ErrNoRows):
		user = &domain.User{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Role:         domain.RoleUser,
			IsActive:     true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return s.session(user)
}

// Login authenticates by email and password. Guests have no password and
// can never log in this way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.IsActive {
		return nil, apperrors.NewForbidden("account disabled")
	}
	return s.session(user)
}

// SeedAdmin makes sure an active ADMIN exists for email. An existing account
// is promoted and its password replaced.
func (s *AuthService) SeedAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		user.Role = domain.RoleAdmin
		user.IsActive = true
		user.PasswordHash = hash
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
	case errors.Is(err, pgx.ErrNoRows):
		user = &domain.User{Name: name, Email: email, PasswordHash: hash, Role: domain.RoleAdmin, IsActive: true}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	s.logger.Info("admin account ready", zap.String("user_id", user.ID), zap.String("email", email))
	return user, nil
}

func (s *AuthService) session(user *domain.User) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
