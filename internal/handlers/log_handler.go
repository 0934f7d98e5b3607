package handlers

import (
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/listquery"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/ownership"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/services"
	"github.com/gofiber/fiber/v2"
)

type LogHandler struct {
	usage *services.UsageLogService
}

func NewLogHandler(usage *services.UsageLogService) *LogHandler {
	return &LogHandler{usage: usage}
}

func (h *LogHandler) List(c *fiber.Ctx) error {
	params, err := listquery.Parse(c.Queries())
	if err != nil {
		return apperr.Respond(c, err)
	}

	page, err := h.usage.List(c.UserContext(), params)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(page)
}

// Characters lists usage attributed to the caller's own characters.
func (h *LogHandler) Characters(c *fiber.Ctx) error {
	userID, err := ownership.GetUserID(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	params, err := listquery.Parse(c.Queries())
	if err != nil {
		return apperr.Respond(c, err)
	}
	characterID, err := optionalUint(c.Query("characterId"), "characterId")
	if err != nil {
		return apperr.Respond(c, err)
	}

	page, err := h.usage.ListForCharacters(c.UserContext(), userID, params, services.CharacterLogFilter{
		CharacterID: characterID,
		AbilityType: c.Query("abilityType"),
	})
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(page)
}
