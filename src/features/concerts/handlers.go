package concerts

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler handles HTTP requests for concerts
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetUpcoming handles GET /api/concerts?artist=<id>&days=90
func (h *Handler) GetUpcoming(c *fiber.Ctx) error {
	concerts, err := h.service.Upcoming(c.Context(), c.Query("artist"), c.QueryInt("days", 0))
	if err != nil {
		slog.Error("Failed to list concerts", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"concerts": concerts, "count": len(concerts)})
}

func (h *Handler) GetFollowed(c *fiber.Ctx) error {
	artists, err := h.service.FollowedArtists(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"artists": artists})
}

func (h *Handler) Refresh(c *fiber.Ctx) error {
	jobID, err := h.service.StartRefresh()
	if err != nil {
		slog.Error("Failed to start concert refresh", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": jobID})
}
