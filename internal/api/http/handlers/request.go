package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

// decodeBody parses a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(c *fiber.Ctx, dst any) error {
	body := c.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := c.App().Config().JSONDecoder(body, dst); err != nil {
		return apperrors.NewValidationError("invalid JSON payload", nil)
	}
	return nil
}

// queryLimit reads ?limit=. Absent means 0 (no paging).
func queryLimit(c *fiber.Ctx) (int, error) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, apperrors.NewValidationError("limit must be a positive integer", nil)
	}
	return limit, nil
}
