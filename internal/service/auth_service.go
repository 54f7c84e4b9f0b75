package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/helpdesk-kit/helpdesk-api/internal/auth"
	"github.com/helpdesk-kit/helpdesk-api/internal/config"
	"github.com/helpdesk-kit/helpdesk-api/internal/domain"
	"github.com/helpdesk-kit/helpdesk-api/internal/repository"
	apperrors "github.com/helpdesk-kit/helpdesk-api/pkg/util/errorutil"
)

// invalidCredentials is returned for unknown usernames and wrong passwords
// alike, so login failures never reveal which usernames exist.
const invalidCredentials = "invalid username or password"

// AuthService coordinates registration, login and credential recovery.
type AuthService struct {
	store      repository.Store
	sessions   *auth.SessionStore
	tokens     *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, store repository.Store, sessions *auth.SessionStore) *AuthService {
	return &AuthService{
		store:      store,
		sessions:   sessions,
		tokens:     auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL()),
		bcryptCost: cfg.BcryptCost,
		resetTTL:   cfg.PasswordResetTTL(),
	}
}

// RegisterInput describes a new account request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// Register creates a new account. Username and email must both be unique.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(role)})
	}

	if _, err := s.store.Users().GetByUsername(ctx, input.Username); err == nil {
		return nil, apperrors.NewConflict("username already exists", nil)
	} else if !apperrors.IsCode(err, "NOT_FOUND") {
		return nil, err
	}
	if _, err := s.store.Users().GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already exists", nil)
	} else if !apperrors.IsCode(err, "NOT_FOUND") {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates a user, opens a session and returns a token bound to
// it.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, time.Time, error) {
	user, err := s.store.Users().GetByUsername(ctx, username)
	if err != nil {
		if apperrors.IsCode(err, "NOT_FOUND") {
			return nil, "", time.Time{}, apperrors.NewUnauthorized(invalidCredentials)
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized(invalidCredentials)
	}

	session, err := s.sessions.Create(ctx, user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role, session.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, expiresAt, nil
}

// Logout destroys the session; the issued token stops working immediately.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Destroy(ctx, sessionID)
}

// RequestPasswordReset issues a single-use recovery token for the account
// holding the given email.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.store.PasswordResets().Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// ConfirmPasswordReset validates the token and rewrites the credential.
// Token consumption and the password change commit together.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		token, err := tx.PasswordResets().GetByToken(ctx, tokenStr)
		if err != nil {
			return err
		}
		if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
			return apperrors.NewInvalidOperation("reset token expired or already used")
		}
		user, err := tx.Users().GetByID(ctx, token.UserID)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		return tx.PasswordResets().MarkUsed(ctx, token.ID)
	})
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}
