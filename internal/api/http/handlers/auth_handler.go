package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/api/dto"
	"github.com/spec-kit/issue-tracker/internal/api/http/response"
	"github.com/spec-kit/issue-tracker/internal/router"
	"github.com/spec-kit/issue-tracker/internal/service"
)

// AuthHandler exposes the /auth endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx, _ router.Params) error {
	var req dto.RegisterRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusCreated, dto.NewAuthPayload(res), "registration successful")
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx, _ router.Params) error {
	var req dto.LoginRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, dto.NewAuthPayload(res), "login successful")
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx, _ router.Params) error {
	var req dto.RefreshRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, dto.NewAuthPayload(res), "token refreshed")
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx, _ router.Params) error {
	user, err := h.auth.Me(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, dto.MePayload{User: dto.NewUserResponse(user)}, "")
}

// Logout handles POST /auth/logout. It succeeds even for garbage input.
func (h *AuthHandler) Logout(c *fiber.Ctx, _ router.Params) error {
	var req dto.LogoutRequest
	// an unreadable body only means there is no refresh token to revoke
	_ = decodeBody(c, &req)
	if err := h.auth.Logout(c.UserContext(), c.Get(fiber.HeaderAuthorization), req.RefreshToken); err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, nil, "logged out")
}
