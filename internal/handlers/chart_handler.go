package handlers

import (
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/ownership"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ChartHandler struct {
	charts *services.ChartService
}

func NewChartHandler(charts *services.ChartService) *ChartHandler {
	return &ChartHandler{charts: charts}
}

func (h *ChartHandler) Usage(c *fiber.Ctx) error {
	userID, err := ownership.GetUserID(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if err := ownership.CheckUserParam(c.Query("userId"), userID); err != nil {
		return apperr.Respond(c, err)
	}

	points, err := h.charts.Usage(c.UserContext(), c.Query("period", services.PeriodDaily))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(points)
}
