package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/config"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/ownership"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Respond(c, apperr.Invalid("invalid request body"))
	}

	resp, sess, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return apperr.Respond(c, err)
	}

	c.Cookie(h.cookie(sess.Token, sess.ExpiresAt))
	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	tokenID, expiresAt := ownership.SessionFromContext(c)
	if err := h.authService.Logout(c.UserContext(), tokenID, expiresAt); err != nil {
		return apperr.Respond(c, err)
	}

	c.Cookie(h.cookie("", time.Unix(0, 0)))
	return c.JSON(dto.MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := ownership.GetUserID(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	user, err := h.authService.Me(c.UserContext(), userID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(user)
}

func (h *AuthHandler) cookie(value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
