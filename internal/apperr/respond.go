package apperr

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

// Respond writes err as the JSON error body. Server-side failures are logged
// and reported with their cause; the client only sees the message.
func Respond(c *fiber.Ctx, err error) error {
	status := Status(err)
	if status >= fiber.StatusInternalServerError {
		slog.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err.Error(),
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: Message(err)})
}
