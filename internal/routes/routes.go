package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/config"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/ownership"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything mounted under /api.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Health     *handlers.HealthHandler
	Characters *handlers.CharacterHandler
	Uploads    *handlers.UploadHandler
	Logs       *handlers.LogHandler
	Messages   *handlers.MessageHandler
	Charts     *handlers.ChartHandler
	Dashboard  *handlers.DashboardHandler
}

// Setup mounts the full API. limiterStorage may be nil, in which case rate
// limit counters stay in process memory.
func Setup(
	app *fiber.App,
	cfg *config.Config,
	h Handlers,
	guard *ownership.Guard,
	sessions session.Store,
	limiterStorage fiber.Storage,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// General API rate limiter, per IP
	api.Use(limiter.New(limiter.Config{
		Max:               cfg.RateLimitPerMinute,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		Storage:           limiterStorage,
	}))

	api.Get("/health", h.Health.Check)

	// Login gets a stricter limit
	auth := api.Group("/auth")
	auth.Post("/login", limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return "login:" + c.IP() },
		Storage:           limiterStorage,
	}), h.Auth.Login)

	protected := middleware.JWTProtected(cfg, sessions)
	timeout := middleware.RequestTimeout(cfg.RequestTimeout)

	auth.Post("/logout", protected, h.Auth.Logout)
	auth.Get("/me", protected, h.Auth.Me)

	owner := middleware.RequireOwner(guard, middleware.ParamID("id"))

	chars := api.Group("/characters", protected, timeout)
	chars.Get("/", h.Characters.List)
	chars.Post("/", h.Characters.Create)
	chars.Get("/:id", owner, h.Characters.Get)
	chars.Put("/:id", owner, h.Characters.Update)
	chars.Delete("/:id", owner, h.Characters.Delete)
	chars.Get("/:id/images", owner, h.Characters.GetImages)
	chars.Put("/:id/images", owner, h.Characters.PutImages)
	chars.Put("/:id/single-images", owner, h.Characters.PutSingleImages)

	upload := api.Group("/upload", protected, timeout)
	upload.Post("/character-images", middleware.RequireOwner(guard, middleware.FormID("characterId")), h.Uploads.Upload)
	upload.Delete("/character-images", middleware.RequireOwner(guard, middleware.ImageCharacterID("characterId", "url")), h.Uploads.Delete)

	logs := api.Group("/logs", protected, timeout)
	logs.Get("/", h.Logs.List)
	logs.Get("/characters", h.Logs.Characters)

	messages := api.Group("/messages", protected, timeout)
	messages.Get("/", h.Messages.List)
	messages.Post("/", h.Messages.Create)
	messages.Put("/:id", h.Messages.Update)
	messages.Delete("/:id", h.Messages.Delete)

	api.Get("/charts/usage", protected, timeout, h.Charts.Usage)
	api.Get("/dashboard/stats", protected, timeout, h.Dashboard.Stats)
	api.Get("/activity", protected, timeout, h.Dashboard.Activity)
}

// SetupDegraded serves health only; every other /api route answers 503.
func SetupDegraded(app *fiber.App, health *handlers.HealthHandler) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Get("/health", health.Check)
	api.Use(middleware.StoreUnavailable())
}
