package jobs

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

// JobResponse is a wrapper for the Job struct to include API links
type JobResponse struct {
	*Job
	Links map[string]string `json:"_links"`
}

// startJobRequest is the optional body of POST /jobs/start/:type.
type startJobRequest struct {
	Name  string `json:"name"`
	Force bool   `json:"force"`
	Limit int    `json:"limit"`
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func newJobResponse(baseURL string, job *Job) *JobResponse {
	return &JobResponse{
		Job: job,
		Links: map[string]string{
			"self":     fmt.Sprintf("%s/jobs/%s", baseURL, job.ID),
			"progress": fmt.Sprintf("%s/jobs/%s/progress", baseURL, job.ID),
			"logs":     fmt.Sprintf("%s/jobs/%s/logs", baseURL, job.ID),
		},
	}
}

func (h *Handler) HandleStartJob(c *fiber.Ctx) error {
	jobType := c.Params("type")
	var req startJobRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}
	if req.Limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must not be negative"})
	}
	name := req.Name
	if name == "" {
		name = c.Query("name", jobType)
	}
	metadata := map[string]any{"force": req.Force || c.QueryBool("force")}
	if req.Limit > 0 {
		metadata["limit"] = req.Limit
	} else if limit := c.QueryInt("limit"); limit > 0 {
		metadata["limit"] = limit
	}

	jobID, err := h.service.StartJob(jobType, name, metadata)
	if errors.Is(err, ErrUnknownJobType) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error(), "types": h.service.JobTypes()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": jobID})
}

func (h *Handler) HandleJobStatus(c *fiber.Ctx) error {
	job, exists := h.service.GetJob(c.Params("id"))
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrJobNotFound.Error()})
	}
	return c.JSON(newJobResponse(c.BaseURL(), job))
}

func (h *Handler) HandleJobProgress(c *fiber.Ctx) error {
	job, exists := h.service.GetJob(c.Params("id"))
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrJobNotFound.Error()})
	}
	return c.JSON(fiber.Map{
		"id":       job.ID,
		"status":   job.Status,
		"progress": job.Progress,
		"message":  job.Message,
		"done":     job.Finished(),
	})
}

func (h *Handler) HandleJobLogs(c *fiber.Ctx) error {
	job, exists := h.service.GetJob(c.Params("id"))
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrJobNotFound.Error()})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	if job.LogPath == "" {
		return c.SendString("No logs for this job.")
	}
	logContent, err := os.ReadFile(job.LogPath)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to read log file.")
	}
	return c.Send(logContent)
}

func (h *Handler) HandleJobList(c *fiber.Ctx) error {
	status := JobStatus(c.Query("status"))
	baseURL := c.BaseURL()
	responses := make([]*JobResponse, 0)
	for _, job := range h.service.GetJobs() {
		if status != "" && job.Status != status {
			continue
		}
		responses = append(responses, newJobResponse(baseURL, job))
	}
	return c.JSON(responses)
}

func (h *Handler) HandleJobTypes(c *fiber.Ctx) error {
	return c.JSON(h.service.JobTypes())
}

func (h *Handler) HandleCancelJob(c *fiber.Ctx) error {
	jobID := c.Params("id")
	if err := h.service.CancelJob(jobID); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	job, _ := h.service.GetJob(jobID)
	return c.JSON(newJobResponse(c.BaseURL(), job))
}

func (h *Handler) HandleCleanupJobs(c *fiber.Ctx) error {
	removed := h.service.CleanupOldJobs(24 * time.Hour)
	return c.JSON(fiber.Map{"status": "cleanup completed", "removed": removed})
}

func (h *Handler) HandleClearFinishedJobs(c *fiber.Ctx) error {
	removed := h.service.ClearFinishedJobs()
	return c.JSON(fiber.Map{"status": "finished jobs cleared", "removed": removed})
}
