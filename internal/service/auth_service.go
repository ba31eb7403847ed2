package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/prohmpiriya/event-invitations/internal/auth"
	"github.com/prohmpiriya/event-invitations/internal/domain"
	"github.com/prohmpiriya/event-invitations/internal/dto"
	"github.com/prohmpiriya/event-invitations/internal/repository"
)

// AuthService is the built-in identity provider
type AuthService interface {
	// Register creates an account and signs the caller in
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error)
	// Login verifies credentials and issues a token
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Logout revokes the caller's token until it would have expired
	Logout(ctx context.Context, p *auth.Principal) error
	// Me returns the signed-in user
	Me(ctx context.Context, p *auth.Principal) (*dto.UserResponse, error)
}

// AuthServiceConfig holds token settings
type AuthServiceConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	BcryptCost     int
}

type authService struct {
	users       repository.UserRepository
	revocations auth.RevocationStore
	cfg         AuthServiceConfig
	now         func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(users repository.UserRepository, revocations auth.RevocationStore, cfg *AuthServiceConfig) AuthService {
	c := *cfg
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = 24 * time.Hour
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	return &authService{users: users, revocations: revocations, cfg: c, now: time.Now}
}

const maxPasswordBytes = 72

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error) {
	email := domain.NormalizeEmail(req.Email)
	if err := domain.ValidateEmail("email", email); err != nil {
		return nil, err
	}
	if len(req.Password) < 8 {
		return nil, domain.NewValidationError("password", "must be at least 8 characters")
	}
	// bcrypt counts bytes, not characters
	if len(req.Password) > maxPasswordBytes {
		return nil, domain.NewValidationError("password", "must be at most 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         req.Name,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issueToken(user)
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	return s.issueToken(user)
}

func (s *authService) Logout(ctx context.Context, p *auth.Principal) error {
	if _, err := p.CurrentUser(s.now()); err != nil {
		return err
	}
	if p.TokenID == "" {
		return nil
	}
	return s.revocations.Revoke(ctx, p.TokenID, p.ExpiresAt)
}

func (s *authService) Me(ctx context.Context, p *auth.Principal) (*dto.UserResponse, error) {
	email, err := p.CurrentUser(s.now())
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return &dto.UserResponse{ID: user.ID, Email: user.Email, Name: user.Name}, nil
}

func (s *authService) issueToken(user *domain.User) (*dto.TokenResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTokenTTL)

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"jti":     uuid.New().String(),
		"iat":     now.Unix(),
		"exp":     expiresAt.Unix(),
	}
	if s.cfg.Issuer != "" {
		claims["iss"] = s.cfg.Issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &dto.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   time.Unix(expiresAt.Unix(), 0).UTC(),
		User:        dto.UserResponse{ID: user.ID, Email: user.Email, Name: user.Name},
	}, nil
}
