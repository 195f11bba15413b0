// Package response writes every HTTP response the service produces.
//
// Two body contracts coexist. The auth family wraps payloads as
// {success, data, message}; the issue family returns bare payloads. Errors
// from every family share {success:false, error, message}.
package response

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

const (
	allowOrigin  = "*"
	allowHeaders = "Content-Type,Authorization"
	allowMethods = "GET,POST,PUT,DELETE,OPTIONS"
)

// Envelope is the wrapped body of the auth family and of every error.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ApplyHeaders sets the CORS and content-type headers shared by every response.
func ApplyHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set(fiber.HeaderAccessControlAllowOrigin, allowOrigin)
	c.Set(fiber.HeaderAccessControlAllowHeaders, allowHeaders)
	c.Set(fiber.HeaderAccessControlAllowMethods, allowMethods)
}

// Success writes a wrapped success body.
func Success(c *fiber.Ctx, status int, data any, message string) error {
	return write(c, status, Envelope{Success: true, Data: data, Message: message})
}

// JSON writes a bare payload.
func JSON(c *fiber.Ctx, status int, payload any) error {
	return write(c, status, payload)
}

// NoContent writes a 204 with headers and no body.
func NoContent(c *fiber.Ctx) error {
	ApplyHeaders(c)
	c.Status(fiber.StatusNoContent)
	c.Response().ResetBody()
	return nil
}

// Error writes the uniform error envelope for err.
func Error(c *fiber.Ctx, err *apperrors.DomainError) error {
	return write(c, err.HTTPStatus, Envelope{Success: false, Error: err.Code, Message: err.Message})
}

func write(c *fiber.Ctx, status int, body any) error {
	ApplyHeaders(c)
	raw, err := c.App().Config().JSONEncoder(body)
	if err != nil {
		return err
	}
	c.Status(status)
	return c.Send(raw)
}
