// Package server assembles the HTTP application from configuration.
package server

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/activity"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/cache"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/config"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/database"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/logging"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/ownership"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/routes"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/services"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/session"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/storage"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server owns the Fiber app and every background worker it depends on.
type Server struct {
	App *fiber.App

	cfg         *config.Config
	db          *gorm.DB
	redis       *redis.Client
	recorder    *activity.Recorder
	sink        *activity.AMQPSink
	pgHandler   *logging.PGHandler
	cleanupDone chan struct{}
}

// Deps are the already-connected backends for a full server. Redis and
// Sink are optional.
type Deps struct {
	DB       *gorm.DB
	Store    storage.ObjectStore
	Redis    *redis.Client
	Sessions session.Store
	Sink     *activity.AMQPSink
}

// NewApp builds the Fiber app with the global middleware stack and no routes.
func NewApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    8 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogContext())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.Metrics())
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})
	return app
}

// New wires services, handlers and routes onto a fresh app.
func New(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:         cfg,
		db:          deps.DB,
		redis:       deps.Redis,
		sink:        deps.Sink,
		cleanupDone: make(chan struct{}),
	}

	// ERROR+ records are also persisted to system_logs
	s.pgHandler = logging.NewPGHandler(deps.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewHandler(os.Stdout, cfg.LogLevel, cfg.LogEncoding),
		s.pgHandler,
	)))
	logging.StartCleanup(deps.DB, cfg.LogRetentionDays, s.cleanupDone)

	var opts []activity.Option
	if deps.Sink != nil {
		opts = append(opts, activity.WithSink(deps.Sink))
	}
	s.recorder = activity.NewRecorder(deps.DB, opts...)

	authService := services.NewAuthService(deps.DB, cfg, deps.Sessions)
	characterService := services.NewCharacterService(deps.DB, s.recorder)
	uploadService := services.NewUploadService(deps.Store)
	usageService := services.NewUsageLogService(deps.DB)
	messageService := services.NewMessageService(deps.DB)
	chartService := services.NewChartService(deps.DB, cfg.Location())
	dashboardService := services.NewDashboardService(deps.DB)

	var limiterStorage fiber.Storage
	if deps.Redis != nil {
		limiterStorage = cache.NewFiberStorage(deps.Redis, "dashboard:limiter:")
	}

	s.App = NewApp(cfg)
	routes.Setup(s.App, cfg, routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService, cfg),
		Health:     handlers.NewHealthHandler(deps.DB, deps.Store),
		Characters: handlers.NewCharacterHandler(characterService),
		Uploads:    handlers.NewUploadHandler(uploadService),
		Logs:       handlers.NewLogHandler(usageService),
		Messages:   handlers.NewMessageHandler(messageService),
		Charts:     handlers.NewChartHandler(chartService),
		Dashboard:  handlers.NewDashboardHandler(dashboardService),
	}, ownership.NewGuard(deps.DB), deps.Sessions, limiterStorage)

	return s
}

// NewDegraded serves health checks only. It is used when no record store
// is configured.
func NewDegraded(cfg *config.Config, store storage.ObjectStore) *Server {
	s := &Server{cfg: cfg, App: NewApp(cfg)}
	routes.SetupDegraded(s.App, handlers.NewHealthHandler(nil, store))
	return s
}

func (s *Server) Listen() error {
	return s.App.Listen(":" + s.cfg.Port)
}

// Shutdown stops accepting requests, then drains background work in
// dependency order.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.App.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, err)
	}

	if s.recorder != nil {
		s.recorder.Stop()
	}
	if s.sink != nil {
		if err := s.sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.cleanupDone != nil {
		close(s.cleanupDone)
		s.cleanupDone = nil
	}
	if s.pgHandler != nil {
		s.pgHandler.Stop()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// errorHandler answers errors that escaped a handler, mostly fiber's own
// (404 route, body too large).
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	// Only expose error details for client errors (4xx)
	if code >= fiber.StatusInternalServerError {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: message})
}

// ShutdownTimeout bounds how long Shutdown may wait for in-flight requests.
const ShutdownTimeout = 10 * time.Second
