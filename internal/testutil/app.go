package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/activity"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/config"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/ownership"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/routes"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/services"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/session"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// App is the full API mounted on an in-memory store.
type App struct {
	Fiber    *fiber.App
	Config   *config.Config
	Store    *storage.Memory
	Sessions *session.MemoryStore
}

type nopActivity struct{}

func (nopActivity) Record(context.Context, activity.Entry) {}

// NewApp mounts every route on db. Activity is discarded.
func NewApp(t testing.TB, db *gorm.DB) *App {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:          "test-secret",
		SessionTTL:         time.Hour,
		CookieName:         "session",
		RequestTimeout:     5 * time.Second,
		RateLimitPerMinute: 1000,
		CORSOrigins:        "http://localhost:3000",
	}
	store := storage.NewMemory("https://cdn.test/character")
	sessions := session.NewMemoryStore()

	app := fiber.New()
	routes.Setup(app, cfg, routes.Handlers{
		Auth:       handlers.NewAuthHandler(services.NewAuthService(db, cfg, sessions), cfg),
		Health:     handlers.NewHealthHandler(db, store),
		Characters: handlers.NewCharacterHandler(services.NewCharacterService(db, nopActivity{})),
		Uploads:    handlers.NewUploadHandler(services.NewUploadService(store)),
		Logs:       handlers.NewLogHandler(services.NewUsageLogService(db)),
		Messages:   handlers.NewMessageHandler(services.NewMessageService(db)),
		Charts:     handlers.NewChartHandler(services.NewChartService(db, time.UTC)),
		Dashboard:  handlers.NewDashboardHandler(services.NewDashboardService(db)),
	}, ownership.NewGuard(db), sessions, nil)

	return &App{Fiber: app, Config: cfg, Store: store, Sessions: sessions}
}

// Token signs a session token for user the way login does.
func (a *App) Token(t testing.TB, user models.User) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"role":  user.Role,
		"jti":   uuid.NewString(),
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.Config.JWTSecret))
	require.NoError(t, err)
	return signed
}
