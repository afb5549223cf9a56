package enrich

import (
	"errors"

	"github.com/contre95/musicdex/src/infra/metadata"
	"github.com/gofiber/fiber/v2"
)

// Handler exposes the enrichment jobs and single item lookups over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates a new enrichment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// StartJob handles POST /api/enrich/:type?force=true&limit=N
func (h *Handler) StartJob(c *fiber.Ctx) error {
	limit := c.QueryInt("limit")
	if limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must not be negative"})
	}
	jobID, err := h.service.StartJob(c.Params("type"), c.QueryBool("force"), limit)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": jobID})
}

// EnrichSong handles POST /api/enrich/songs/:id and matches one song right away.
func (h *Handler) EnrichSong(c *fiber.Ctx) error {
	song, err := h.service.library.GetSong(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if song == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "song not found"})
	}
	updated, err := h.service.EnrichSong(c.Context(), song, true)
	if err != nil {
		return c.Status(providerStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"updated": updated, "mbid": song.MBID, "isrc": song.ISRC})
}

// EnrichArtist handles POST /api/enrich/artists/:id and fetches the Discogs profile.
func (h *Handler) EnrichArtist(c *fiber.Ctx) error {
	artist, err := h.service.library.GetArtist(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if artist == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "artist not found"})
	}
	updated, err := h.service.EnrichArtist(c.Context(), artist, true)
	if err != nil {
		return c.Status(providerStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"updated": updated, "attributes": artist.Attributes})
}

func providerStatus(err error) int {
	switch {
	case errors.Is(err, metadata.ErrDisabled):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, metadata.ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusBadGateway
	}
}
