package metrics

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the metrics routes with the Fiber app.
func RegisterRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api/metrics")
	api.Get("/", handler.GetOverview)
	api.Post("/recalculate", handler.StartRecalculation)
}
