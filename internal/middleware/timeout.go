package middleware

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/logging"
	"github.com/gofiber/fiber/v2"
)

// RequestTimeout bounds the context handed to services.
func RequestTimeout(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// RequestLogContext puts the request id assigned by the requestid
// middleware on the user context so slog records carry it.
func RequestLogContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _ := c.Locals("requestid").(string)
		c.SetUserContext(logging.WithRequestID(c.UserContext(), id))
		return c.Next()
	}
}

// StoreUnavailable answers every request while the record store is not
// configured.
func StoreUnavailable() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: "record store is not configured",
		})
	}
}
