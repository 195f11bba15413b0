package dto

import (
	"time"

	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/service"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest payload for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest optionally names the refresh token to revoke.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	UserID      string            `json:"userId"`
	Email       string            `json:"email"`
	FirstName   string            `json:"firstName"`
	LastName    string            `json:"lastName"`
	Role        domain.UserRole   `json:"role"`
	Status      domain.UserStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	LastLoginAt *time.Time        `json:"lastLoginAt"`
}

// AuthPayload is the data of every token-issuing auth response.
type AuthPayload struct {
	User         UserResponse `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
}

// MePayload wraps the current account.
type MePayload struct {
	User UserResponse `json:"user"`
}

// NewUserResponse maps a domain user; the password hash never leaves the service.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		UserID:      u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.Role,
		Status:      u.Status,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// NewAuthPayload maps a service result.
func NewAuthPayload(res *service.AuthResult) AuthPayload {
	return AuthPayload{
		User:         NewUserResponse(res.User),
		Token:        res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		ExpiresIn:    expiresIn(res.Tokens),
	}
}

func expiresIn(pair *auth.TokenPair) int64 {
	if pair == nil {
		return 0
	}
	return pair.ExpiresIn()
}
