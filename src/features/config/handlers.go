package config

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the config feature.
type Handler struct {
	configManager *Manager
}

// NewHandler creates a new handler for the config feature.
func NewHandler(configManager *Manager) *Handler {
	return &Handler{
		configManager: configManager,
	}
}

// GetConfig returns the current configuration in the requested format.
func (h *Handler) GetConfig(c *fiber.Ctx) error {
	format := c.Query("fmt", "yaml")
	slog.Debug("GetConfig handler called", "format", format)

	switch format {
	case "yaml":
		c.Set("Content-Type", "text/yaml")
		return c.SendString(h.configManager.GetYAML())
	case "json":
		c.Set("Content-Type", "application/json")
		return c.SendString(h.configManager.GetJSON())
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid format, use 'json' or 'yaml'"})
	}
}

// DownloadDatabase serves the database file for download.
func (h *Handler) DownloadDatabase(c *fiber.Ctx) error {
	slog.Debug("DownloadDatabase handler called")

	dbPath := h.configManager.Get().Database.Path
	if dbPath == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "database path not configured"})
	}

	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filepath.Base(dbPath)))
	c.Set("Content-Type", "application/octet-stream")
	return c.SendFile(dbPath)
}
