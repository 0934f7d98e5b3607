package handlers

import (
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/listquery"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/services"
	"github.com/gofiber/fiber/v2"
)

type MessageHandler struct {
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

func (h *MessageHandler) List(c *fiber.Ctx) error {
	params, err := listquery.Parse(c.Queries())
	if err != nil {
		return apperr.Respond(c, err)
	}

	page, err := h.messages.List(c.UserContext(), params)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(page)
}

func (h *MessageHandler) Create(c *fiber.Ctx) error {
	var req dto.MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Invalid("invalid request body"))
	}

	msg, err := h.messages.Create(c.UserContext(), req.Messages)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *MessageHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req dto.MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Invalid("invalid request body"))
	}

	msg, err := h.messages.Update(c.UserContext(), id, req.Messages)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(msg)
}

func (h *MessageHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apperr.Respond(c, err)
	}
	if err := h.messages.Delete(c.UserContext(), id); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "message deleted"})
}
