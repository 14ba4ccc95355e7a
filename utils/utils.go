package utils

import (
	"github.com/gofiber/fiber/v2"
)

// ErrorResponse writes a JSON error body with a consistent shape across
// controllers.
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	body := fiber.Map{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	return c.Status(status).JSON(body)
}

// Pointer returns a pointer to the given value
func Pointer[T any](v T) *T {
	return &v
}
