package library

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the library feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	library := app.Group("/api/library")
	library.Get("/stats", handler.GetStats)
	library.Get("/search", handler.SearchSongs)

	library.Get("/artists", handler.GetArtists)
	library.Post("/artists", handler.CreateArtist)
	library.Get("/artists/:id", handler.GetArtist)
	library.Put("/artists/:id/follow", handler.FollowArtist)

	library.Get("/albums", handler.GetAlbums)
	library.Get("/albums/:id", handler.GetAlbum)
	library.Get("/albums/:id/cover", handler.GetAlbumCover)
	library.Post("/covers/prefetch", handler.StartCoverPrefetch)

	library.Get("/songs", handler.GetSongs)
	library.Get("/songs/:id", handler.GetSong)
	library.Put("/songs/:id/rating", handler.RateSong)
	library.Get("/songs/:id/links", handler.GetSongLinks)
	library.Post("/songs/:id/links", handler.AddSongLink)

	library.Get("/scrobbles", handler.GetScrobbles)
	library.Get("/scrobbles/top", handler.GetTopArtists)
}
