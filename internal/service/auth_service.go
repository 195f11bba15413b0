package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/config"
	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/events"
	"github.com/spec-kit/issue-tracker/internal/repository"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

// AuthService coordinates registration, login and token lifecycle flows.
type AuthService struct {
	publisher
	users         repository.UserRepository
	tokenMgr      *auth.TokenManager
	revocations   auth.RevocationStore
	authenticator *auth.Authenticator
	bcryptCost    int
	now           func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	Revocations auth.RevocationStore
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// RegisterInput is the payload of a registration.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// AuthResult is returned by every flow that issues tokens.
type AuthResult struct {
	User   *domain.User
	Tokens *auth.TokenPair
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	revocations := deps.Revocations
	if revocations == nil {
		revocations = auth.NewMemoryRevocationStore()
	}
	tokenMgr := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), cfg.Auth.RefreshTokenTTL())
	return &AuthService{
		publisher:     publisher{dispatcher: deps.Dispatcher, logger: logger},
		users:         deps.UserRepo,
		tokenMgr:      tokenMgr,
		revocations:   revocations,
		authenticator: auth.NewAuthenticator(tokenMgr, deps.UserRepo, revocations),
		bcryptCost:    cfg.Auth.BcryptCost,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a PENDING_VERIFICATION account and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.TrimSpace(input.Email)
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	role := domain.UserRoleEndUser
	if r := strings.TrimSpace(input.Role); r != "" {
		role = domain.UserRole(strings.ToUpper(r))
	}

	var v violations
	if !validEmail(email) {
		v.add("a valid email is required")
	}
	if utf8.RuneCountInString(input.Password) < minPasswordLength {
		v.add(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if len(input.Password) > auth.MaxPasswordBytes {
		v.add(fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes))
	}
	if firstName == "" {
		v.add("firstName is required")
	}
	if lastName == "" {
		v.add("lastName is required")
	}
	if !role.Valid() {
		v.add("role must be one of ADMIN, SUPPORT_STAFF, END_USER")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.UserStatusPendingVerification,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", nil)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.tokenMgr.IssuePair(user)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventUserRegistered,
		SubjectID: user.ID,
		ActorID:   user.ID,
		Payload:   events.UserRegisteredPayload{Email: user.Email, Status: user.Status},
	})
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Login verifies credentials for an ACTIVE account and issues a new token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)

	var v violations
	if !validEmail(email) {
		v.add("a valid email is required")
	}
	if password == "" {
		v.add("password is required")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid email or password")
	}
	if user.Status != domain.UserStatusActive {
		return nil, apperrors.NewUnauthorized("account is not active")
	}

	now := s.now()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	tokens, err := s.tokenMgr.IssuePair(user)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented refresh
// token is revoked so it cannot be replayed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apperrors.NewValidationError("refreshToken is required", nil)
	}

	claims, err := s.tokenMgr.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid or expired refresh token")
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("user not found")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	// only the caller that revokes the token first may rotate it
	first, err := s.revocations.RevokeOnce(ctx, claims.ID, claims.Token().ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	if !first {
		return nil, apperrors.NewUnauthorized("refresh token has been revoked")
	}

	tokens, err := s.tokenMgr.IssuePair(user)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Me resolves the bearer header to the current account.
func (s *AuthService) Me(ctx context.Context, authorization string) (*domain.User, error) {
	principal, err := s.authenticator.Authenticate(ctx, authorization)
	if err != nil {
		return nil, err
	}
	return principal.User, nil
}

// Logout revokes whichever tokens can be verified and always succeeds.
func (s *AuthService) Logout(ctx context.Context, authorization, refreshToken string) error {
	if raw, err := auth.BearerToken(authorization); err == nil {
		if claims, err := s.tokenMgr.ParseAccessToken(raw); err == nil {
			s.revoke(ctx, claims)
		}
	}
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken != "" {
		if claims, err := s.tokenMgr.ParseRefreshToken(refreshToken); err == nil {
			s.revoke(ctx, claims)
		}
	}
	return nil
}

func (s *AuthService) revoke(ctx context.Context, claims *auth.Claims) {
	token := claims.Token()
	if err := s.revocations.Revoke(ctx, token.ID, token.ExpiresAt); err != nil {
		s.logger.Warn("token revocation failed",
			zap.String("user_id", token.UserID),
			zap.String("token_type", string(token.Type)),
			zap.Error(err))
	}
}

// ActivateUser moves an account to ACTIVE so it can log in.
func (s *AuthService) ActivateUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}
	if user.Status == domain.UserStatusActive {
		return user, nil
	}
	user.Status = domain.UserStatusActive
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("activate user: %w", err)
	}
	return user, nil
}

// Authenticator exposes the bearer authenticator for the HTTP dispatcher.
func (s *AuthService) Authenticator() *auth.Authenticator {
	return s.authenticator
}

// TokenManager exposes the underlying token manager.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
