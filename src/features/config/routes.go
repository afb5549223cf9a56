package config

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the config feature.
func RegisterRoutes(app *fiber.App, configManager *Manager) {
	handler := NewHandler(configManager)

	app.Get("/api/config", handler.GetConfig)
	app.Get("/api/config/database/download", handler.DownloadDatabase)
}
