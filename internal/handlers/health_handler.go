package handlers

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/database"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/storage"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HealthHandler reports backend reachability. Either dependency may be nil
// when it is not configured.
type HealthHandler struct {
	db    *gorm.DB
	store storage.ObjectStore
}

func NewHealthHandler(db *gorm.DB, store storage.ObjectStore) *HealthHandler {
	return &HealthHandler{db: db, store: store}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	dbStatus := "not configured"
	if h.db != nil {
		dbStatus = "ok"
		if err := database.Ping(ctx, h.db); err != nil {
			dbStatus = "unhealthy: " + err.Error()
		}
	}

	storageStatus := "not configured"
	if h.store != nil {
		storageStatus = "ok"
		if err := h.store.Ping(ctx); err != nil {
			storageStatus = "unhealthy: " + err.Error()
		}
	}

	status := "ok"
	if h.db == nil {
		status = "degraded"
	}

	return c.JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Storage:   storageStatus,
	})
}
