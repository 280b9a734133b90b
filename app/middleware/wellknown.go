package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// IgnoreWellKnown гасит запросы браузеров к /.well-known/ без записи в лог ошибок.
func IgnoreWellKnown() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/.well-known/") {
			return c.JSON(fiber.Map{
				"status": "ignored",
			})
		}
		return c.Next()
	}
}
