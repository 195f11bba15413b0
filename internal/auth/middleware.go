package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/repository"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// ErrNoCredentials is returned when the request carries no Authorization header.
var ErrNoCredentials = errors.New("missing authorization header")

// Principal represents the authenticated caller.
type Principal struct {
	User  *domain.User
	Token domain.Token
}

// Authenticator validates bearer tokens and loads principals.
type Authenticator struct {
	tokens      *TokenManager
	users       repository.UserRepository
	revocations RevocationStore
}

// NewAuthenticator constructs the authenticator.
func NewAuthenticator(tokens *TokenManager, users repository.UserRepository, revocations RevocationStore) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, revocations: revocations}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", ErrNoCredentials
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// Authenticate resolves an Authorization header into a principal. An absent
// header yields a 401 that wraps ErrNoCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*Principal, error) {
	raw, err := BearerToken(header)
	if errors.Is(err, ErrNoCredentials) {
		return nil, &apperrors.DomainError{
			Code:       apperrors.CodeAuthentication,
			Message:    ErrNoCredentials.Error(),
			HTTPStatus: http.StatusUnauthorized,
			Err:        ErrNoCredentials,
		}
	}
	if err != nil {
		return nil, err
	}

	claims, err := a.tokens.ParseAccessToken(raw)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid or expired token")
	}

	revoked, err := a.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, apperrors.NewUnauthorized("token has been revoked")
	}

	user, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("user not found")
		}
		return nil, fmt.Errorf("load principal: %w", err)
	}

	return &Principal{User: user, Token: claims.Token()}, nil
}

// Require authenticates the request and stores the principal; any failure is returned.
func (a *Authenticator) Require(c *fiber.Ctx) error {
	principal, err := a.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return nil
}

// Optional authenticates when an Authorization header is present. A missing
// header is fine; a present but invalid one is rejected.
func (a *Authenticator) Optional(c *fiber.Ctx) error {
	principal, err := a.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if errors.Is(err, ErrNoCredentials) {
		return nil
	}
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
