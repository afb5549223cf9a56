package library

import (
	"errors"
	"log/slog"

	"github.com/contre95/musicdex/src/features/search"
	"github.com/contre95/musicdex/src/infra/artwork"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// Handler is the handler for the library feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the library feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Pagination represents pagination information
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalCount int  `json:"totalCount"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination creates a new Pagination instance with calculated values
func NewPagination(page, limit, totalCount int) Pagination {
	totalPages := (totalCount + limit - 1) / limit
	return Pagination{
		Page:       page,
		Limit:      limit,
		TotalCount: totalCount,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// pageParams reads ?page= and ?limit=, clamping them to sane values.
func pageParams(c *fiber.Ctx) (page, limit, offset int) {
	page = max(1, c.QueryInt("page", 1))
	limit = c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	return page, limit, (page - 1) * limit
}

type rateRequest struct {
	Rating int `json:"rating" validate:"gte=0,lte=10"`
}

type linkRequest struct {
	Service string `json:"service" validate:"required,max=50"`
	URL     string `json:"url" validate:"required,url"`
}

type followRequest struct {
	Followed bool `json:"followed"`
}

type artistRequest struct {
	Name   string `json:"name" validate:"required,max=500"`
	Follow bool   `json:"follow"`
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoCover), errors.Is(err, artwork.ErrNoArtwork):
		return fiber.StatusNotFound
	case errors.Is(err, search.ErrInvalidYear), errors.Is(err, search.ErrInvalidRating), errors.Is(err, search.ErrUnclosedQuote):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		slog.Error("Library request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// bind parses and validates the request body. Failures surface as 400s
// through the app error handler.
func bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// GetArtists is the handler for listing artists.
func (h *Handler) GetArtists(c *fiber.Ctx) error {
	page, limit, offset := pageParams(c)
	artists, err := h.service.GetArtistsPaginated(c.Context(), limit, offset)
	if err != nil {
		return fail(c, err)
	}
	total, err := h.service.GetArtistsCount(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"artists": artists, "pagination": NewPagination(page, limit, total)})
}

func (h *Handler) GetArtist(c *fiber.Ctx) error {
	artist, err := h.service.GetArtist(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(artist)
}

// CreateArtist adds an artist by name, optionally following it right away.
func (h *Handler) CreateArtist(c *fiber.Ctx) error {
	var req artistRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	artist, err := h.service.FindOrCreateArtist(c.Context(), req.Name)
	if err != nil {
		return fail(c, err)
	}
	if req.Follow && !artist.Followed {
		if artist, err = h.service.SetFollowed(c.Context(), artist.ID, true); err != nil {
			return fail(c, err)
		}
	}
	return c.Status(fiber.StatusCreated).JSON(artist)
}

func (h *Handler) FollowArtist(c *fiber.Ctx) error {
	var req followRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	artist, err := h.service.SetFollowed(c.Context(), c.Params("id"), req.Followed)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(artist)
}

func (h *Handler) GetAlbums(c *fiber.Ctx) error {
	page, limit, offset := pageParams(c)
	albums, err := h.service.GetAlbumsPaginated(c.Context(), limit, offset)
	if err != nil {
		return fail(c, err)
	}
	total, err := h.service.GetAlbumsCount(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"albums": albums, "pagination": NewPagination(page, limit, total)})
}

func (h *Handler) GetAlbum(c *fiber.Ctx) error {
	album, err := h.service.GetAlbum(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(album)
}

// GetAlbumCover serves the JPEG thumbnail of the album cover.
func (h *Handler) GetAlbumCover(c *fiber.Ctx) error {
	path, err := h.service.AlbumCover(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=604800")
	return c.SendFile(path)
}

func (h *Handler) StartCoverPrefetch(c *fiber.Ctx) error {
	jobID, err := h.service.StartCoverPrefetch()
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": jobID})
}

func (h *Handler) GetSongs(c *fiber.Ctx) error {
	page, limit, offset := pageParams(c)
	songs, err := h.service.GetSongsPaginated(c.Context(), limit, offset)
	if err != nil {
		return fail(c, err)
	}
	total, err := h.service.GetSongsCount(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"songs": songs, "pagination": NewPagination(page, limit, total)})
}

func (h *Handler) GetSong(c *fiber.Ctx) error {
	song, err := h.service.GetSong(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(song)
}

// SearchSongs handles GET /api/library/search?q=a:radiohead y:1990-1999
func (h *Handler) SearchSongs(c *fiber.Ctx) error {
	page, limit, offset := pageParams(c)
	result, err := h.service.Search(c.Context(), c.Query("q"), limit, offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"query":      result.Query,
		"songs":      result.Songs,
		"pagination": NewPagination(page, limit, result.Total),
	})
}

func (h *Handler) RateSong(c *fiber.Ctx) error {
	var req rateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	song, err := h.service.RateSong(c.Context(), c.Params("id"), req.Rating)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"id": song.ID, "rating": song.Rating})
}

func (h *Handler) GetSongLinks(c *fiber.Ctx) error {
	links, err := h.service.GetSongLinks(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"links": links})
}

func (h *Handler) AddSongLink(c *fiber.Ctx) error {
	var req linkRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.service.AddSongLink(c.Context(), c.Params("id"), req.Service, req.URL); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) GetScrobbles(c *fiber.Ctx) error {
	page, limit, offset := pageParams(c)
	scrobbles, total, err := h.service.GetScrobbles(c.Context(), limit, offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"scrobbles": scrobbles, "pagination": NewPagination(page, limit, total)})
}

// GetTopArtists handles GET /api/library/scrobbles/top?days=30&limit=10
func (h *Handler) GetTopArtists(c *fiber.Ctx) error {
	top, err := h.service.TopArtists(c.Context(), c.QueryInt("days", 30), c.QueryInt("limit", 10))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"artists": top})
}

func (h *Handler) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.GetStats(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(stats)
}
