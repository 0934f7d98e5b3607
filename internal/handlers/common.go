package handlers

import (
	"strconv"
	"strings"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/ownership"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/services"
	"github.com/gofiber/fiber/v2"
)

func requestMeta(c *fiber.Ctx) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

// verifiedCharacter is the character RequireOwner loaded for this request.
func verifiedCharacter(c *fiber.Ctx) (*models.Character, error) {
	ch := ownership.CharacterFrom(c)
	if ch == nil {
		return nil, apperr.ErrForbidden
	}
	return ch, nil
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Invalid("invalid id")
	}
	return uint(n), nil
}

func optionalUint(raw, name string) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.Invalid("invalid %s", name)
	}
	return uint(n), nil
}
