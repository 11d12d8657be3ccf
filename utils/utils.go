package utils

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Pointer returns a pointer to the given value
func Pointer[T any](v T) *T {
	return &v
}

// ErrorResponse writes the standard {"detail": ...} error body.
// Client errors also carry the underlying reason; server errors never do.
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	response := fiber.Map{
		"detail": message,
	}
	if err != nil && status < fiber.StatusInternalServerError {
		response["error"] = err.Error()
	}
	return c.Status(status).JSON(response)
}

// OKResponse is the body returned by command-style endpoints
func OKResponse() fiber.Map {
	return fiber.Map{"ok": true}
}

// ParseID parses a positive numeric path id
func ParseID(s string) (uint, error) {
	i, err := strconv.ParseUint(s, 10, 32)
	if err != nil || i == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(i), nil
}
