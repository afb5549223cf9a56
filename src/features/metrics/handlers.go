package metrics

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler handles HTTP requests for the metrics feature.
type Handler struct {
	service *Service
	jobs    JobStarter
}

// JobStarter starts background jobs.
type JobStarter interface {
	StartJob(jobType string, name string, metadata map[string]any) (string, error)
}

// NewHandler creates a new metrics handler.
func NewHandler(service *Service, jobs JobStarter) *Handler {
	return &Handler{service: service, jobs: jobs}
}

// GetOverview returns the library metrics as JSON.
func (h *Handler) GetOverview(c *fiber.Ctx) error {
	data, err := h.service.GetAllMetrics(c.Context())
	if err != nil {
		slog.Error("Error loading metrics", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "error loading metrics"})
	}
	return c.JSON(data)
}

// StartRecalculation starts the stats job.
func (h *Handler) StartRecalculation(c *fiber.Ctx) error {
	jobID, err := h.jobs.StartJob(JobType, "Calculate library stats", map[string]any{})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": jobID})
}
