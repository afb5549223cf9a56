package playlists

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// Handler handles HTTP requests for playlists
type Handler struct {
	service *Service
}

// NewHandler creates a new playlists handler
func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

type playlistRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
}

type songRequest struct {
	SongID string `json:"song_id" validate:"required"`
}

type importRequest struct {
	playlistRequest
	Content string `json:"content" validate:"required"`
}

func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, ErrInvalid):
		status = fiber.StatusBadRequest
	default:
		slog.Error("Playlist request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// GetPlaylists returns a list of playlists
func (h *Handler) GetPlaylists(c *fiber.Ctx) error {
	playlists, err := h.service.GetAllPlaylists(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"playlists": playlists})
}

func (h *Handler) GetPlaylist(c *fiber.Ctx) error {
	playlist, err := h.service.GetPlaylist(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"playlist": playlist, "duration": playlist.TotalDuration()})
}

func (h *Handler) CreatePlaylist(c *fiber.Ctx) error {
	var req playlistRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	playlist, err := h.service.CreatePlaylist(c.Context(), req.Name, req.Description)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(playlist)
}

func (h *Handler) UpdatePlaylist(c *fiber.Ctx) error {
	var req playlistRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	playlist, err := h.service.UpdatePlaylist(c.Context(), c.Params("id"), req.Name, req.Description)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(playlist)
}

func (h *Handler) DeletePlaylist(c *fiber.Ctx) error {
	if err := h.service.DeletePlaylist(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddSong adds a song to a playlist
func (h *Handler) AddSong(c *fiber.Ctx) error {
	var req songRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.service.AddSong(c.Context(), c.Params("id"), req.SongID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveSong removes a song from a playlist
func (h *Handler) RemoveSong(c *fiber.Ctx) error {
	if err := h.service.RemoveSong(c.Context(), c.Params("id"), c.Params("songId")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ExportM3U downloads a playlist as an .m3u file
func (h *Handler) ExportM3U(c *fiber.Ctx) error {
	playlist, err := h.service.GetPlaylist(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "audio/x-mpegurl")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", playlist.Name+".m3u"))
	return c.SendString(GenerateM3U(playlist.Songs))
}

// ImportM3U creates a playlist from M3U content sent in the body
func (h *Handler) ImportM3U(c *fiber.Ctx) error {
	var req importRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.service.ImportM3U(c.Context(), req.Name, req.Description, req.Content)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetPlaylistsForSong lists the playlists containing a song
func (h *Handler) GetPlaylistsForSong(c *fiber.Ctx) error {
	playlists, err := h.service.GetPlaylistsContainingSong(c.Context(), c.Params("songId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"playlists": playlists})
}
