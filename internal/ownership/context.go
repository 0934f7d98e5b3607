package ownership

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	userLocal      = "user"
	characterLocal = "character"
)

// GetUserID extracts the caller's id from the verified JWT in context.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals(userLocal).(*jwt.Token)
	if !ok {
		return uuid.Nil, apperr.New(apperr.ErrUnauthenticated, "invalid token in context")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, apperr.New(apperr.ErrUnauthenticated, "invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, apperr.New(apperr.ErrUnauthenticated, "missing sub claim")
	}

	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, apperr.New(apperr.ErrUnauthenticated, "invalid sub claim")
	}
	return id, nil
}

// CheckUserParam enforces that an explicit userId filter names the caller.
// An absent filter means the caller.
func CheckUserParam(param string, caller uuid.UUID) error {
	if param == "" {
		return nil
	}
	id, err := uuid.Parse(param)
	if err != nil || id != caller {
		return apperr.ErrForbidden
	}
	return nil
}

// SessionFromContext returns the verified token's id and expiry.
func SessionFromContext(c *fiber.Ctx) (string, time.Time) {
	token, ok := c.Locals(userLocal).(*jwt.Token)
	if !ok {
		return "", time.Time{}
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", time.Time{}
	}
	jti, _ := claims["jti"].(string)
	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}
	return jti, expiresAt
}
