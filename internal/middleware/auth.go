package middleware

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/config"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/ownership"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/session"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// JWTProtected accepts the session cookie or a bearer header and rejects
// tokens revoked by logout.
func JWTProtected(cfg *config.Config, sessions session.Store) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:  jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		TokenLookup: "cookie:" + cfg.CookieName + ",header:Authorization",
		AuthScheme:  "Bearer",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return apperr.Respond(c, apperr.New(apperr.ErrUnauthenticated, "invalid or expired session"))
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			tokenID, _ := ownership.SessionFromContext(c)
			revoked, err := sessions.IsRevoked(c.UserContext(), tokenID)
			if err != nil {
				slog.ErrorContext(c.UserContext(), "session revocation check failed", "error", err)
				return apperr.Respond(c, apperr.Store("failed to verify session", err))
			}
			if revoked {
				return apperr.Respond(c, apperr.New(apperr.ErrUnauthenticated, "session has been revoked"))
			}
			return c.Next()
		},
	})
}
