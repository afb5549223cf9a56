package hosting

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/contre95/musicdex/src/features/concerts"
	"github.com/contre95/musicdex/src/features/config"
	"github.com/contre95/musicdex/src/features/enrich"
	"github.com/contre95/musicdex/src/features/jobs"
	"github.com/contre95/musicdex/src/features/library"
	"github.com/contre95/musicdex/src/features/metrics"
	"github.com/contre95/musicdex/src/features/playlists"
	"github.com/contre95/musicdex/src/features/scanning"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services groups the feature services exposed over HTTP.
type Services struct {
	Library   *library.Service
	Playlists *playlists.Service
	Concerts  *concerts.Service
	Scanning  *scanning.Service
	Enrich    *enrich.Service
	Metrics   *metrics.Service
	Jobs      *jobs.Service
}

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Manager, svc Services) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		AppName:               "musicdex",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
		BodyLimit:             16 * 1024 * 1024, // M3U imports
	})

	app.Use(LogAllRequestsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	library.RegisterRoutes(app, svc.Library)
	playlists.RegisterRoutes(app, svc.Playlists)
	concerts.RegisterRoutes(app, svc.Concerts)
	scanning.RegisterRoutes(app, svc.Scanning)
	enrich.RegisterRoutes(app, svc.Enrich)
	metrics.RegisterRoutes(app, metrics.NewHandler(svc.Metrics, svc.Jobs))
	jobs.RegisterRoutes(app, svc.Jobs)
	config.RegisterRoutes(app, cfg)

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// errorHandler renders errors returned by handlers as JSON.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("Internal Server Error", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
