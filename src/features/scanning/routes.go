package scanning

import "github.com/gofiber/fiber/v2"

// RegisterRoutes registers the scanning routes with the Fiber app.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)
	app.Post("/api/scan", handler.StartScan)
}
