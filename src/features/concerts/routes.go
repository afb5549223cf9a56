package concerts

import "github.com/gofiber/fiber/v2"

// RegisterRoutes registers the routes for the concerts feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	concerts := app.Group("/api/concerts")
	concerts.Get("/", handler.GetUpcoming)
	concerts.Get("/artists", handler.GetFollowed)
	concerts.Post("/refresh", handler.Refresh)
}
