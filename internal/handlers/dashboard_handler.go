package handlers

import (
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/ownership"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/services"
	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
}

func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	userID, err := ownership.GetUserID(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	stats, err := h.dashboard.Stats(c.UserContext(), userID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(stats)
}

func (h *DashboardHandler) Activity(c *fiber.Ctx) error {
	userID, err := ownership.GetUserID(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	limit, err := optionalUint(c.Query("limit"), "limit")
	if err != nil {
		return apperr.Respond(c, err)
	}

	rows, err := h.dashboard.RecentActivity(c.UserContext(), userID, int(limit))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(rows)
}
