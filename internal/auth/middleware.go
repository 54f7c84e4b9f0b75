package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-kit/helpdesk-api/internal/domain"
	"github.com/helpdesk-kit/helpdesk-api/internal/repository"
	apperrors "github.com/helpdesk-kit/helpdesk-api/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. Role comes from the fresh
// user row, not the token, so role changes take effect on the next request.
type Principal struct {
	User      *domain.User
	SessionID string
}

// Actor returns the identity pair threaded into core operations.
func (p *Principal) Actor() domain.Actor {
	return domain.Actor{UserID: p.User.ID, Role: p.User.Role}
}

// Middleware validates bearer tokens, checks the session is still alive and
// loads the acting user.
type Middleware struct {
	tokens   *TokenManager
	sessions *SessionStore
	store    repository.Store
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, sessions *SessionStore, store repository.Store) *Middleware {
	return &Middleware{tokens: tokens, sessions: sessions, store: store}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	if _, err := m.sessions.Get(c.UserContext(), claims.SessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return apperrors.NewUnauthorized("session expired")
		}
		return apperrors.ToDomainError(err)
	}

	user, err := m.store.Users().GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		if apperrors.IsCode(err, "NOT_FOUND") {
			return apperrors.NewUnauthorized("user no longer exists")
		}
		return apperrors.ToDomainError(err)
	}

	c.Locals(principalKey, &Principal{User: user, SessionID: claims.SessionID})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
