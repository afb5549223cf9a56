package enrich

import "github.com/gofiber/fiber/v2"

// RegisterRoutes registers the enrichment routes with the Fiber app.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)
	api := app.Group("/api/enrich")
	api.Post("/songs/:id", handler.EnrichSong)
	api.Post("/artists/:id", handler.EnrichArtist)
	api.Post("/:type", handler.StartJob)
}
