package handlers

import (
	"strconv"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/listquery"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/ownership"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/services"
	"github.com/gofiber/fiber/v2"
)

// CharacterHandler serves the character collection. Routes with an :id are
// mounted behind middleware.RequireOwner, which leaves the verified record in
// the request locals.
type CharacterHandler struct {
	characters *services.CharacterService
}

func NewCharacterHandler(characters *services.CharacterService) *CharacterHandler {
	return &CharacterHandler{characters: characters}
}

func (h *CharacterHandler) List(c *fiber.Ctx) error {
	userID, err := ownership.GetUserID(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if err := ownership.CheckUserParam(c.Query("userId"), userID); err != nil {
		return apperr.Respond(c, err)
	}

	params, err := listquery.Parse(c.Queries())
	if err != nil {
		return apperr.Respond(c, err)
	}

	filter := services.CharacterFilter{Role: c.Query("role")}
	if raw := c.Query("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return apperr.Respond(c, apperr.Invalid("invalid isActive"))
		}
		filter.IsActive = &active
	}

	page, err := h.characters.List(c.UserContext(), userID, params, filter)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(page)
}

func (h *CharacterHandler) Get(c *fiber.Ctx) error {
	ch, err := verifiedCharacter(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(ch)
}

func (h *CharacterHandler) Create(c *fiber.Ctx) error {
	userID, err := ownership.GetUserID(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req dto.CharacterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Invalid("invalid request body"))
	}

	ch, err := h.characters.Create(c.UserContext(), userID, &req, requestMeta(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ch)
}

func (h *CharacterHandler) Update(c *fiber.Ctx) error {
	ch, err := verifiedCharacter(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req dto.CharacterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Invalid("invalid request body"))
	}

	updated, err := h.characters.Update(c.UserContext(), ch, &req, requestMeta(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(updated)
}

func (h *CharacterHandler) Delete(c *fiber.Ctx) error {
	ch, err := verifiedCharacter(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if err := h.characters.Delete(c.UserContext(), ch, requestMeta(c)); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

func (h *CharacterHandler) GetImages(c *fiber.Ctx) error {
	ch, err := verifiedCharacter(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(h.characters.Images(ch))
}

func (h *CharacterHandler) PutImages(c *fiber.Ctx) error {
	ch, err := verifiedCharacter(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req dto.ImagesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Invalid("invalid request body"))
	}

	resp, err := h.characters.UpdateImages(c.UserContext(), ch, &req, requestMeta(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(resp)
}

func (h *CharacterHandler) PutSingleImages(c *fiber.Ctx) error {
	ch, err := verifiedCharacter(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req dto.SingleImagesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Invalid("invalid request body"))
	}

	updated, err := h.characters.UpdateSingleImages(c.UserContext(), ch, &req, requestMeta(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(updated)
}
