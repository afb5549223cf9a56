package playlists

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the playlists feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	playlists := app.Group("/api/playlists")
	playlists.Get("/", handler.GetPlaylists)
	playlists.Post("/", handler.CreatePlaylist)
	playlists.Post("/import", handler.ImportM3U)
	playlists.Get("/song/:songId", handler.GetPlaylistsForSong)
	playlists.Get("/:id", handler.GetPlaylist)
	playlists.Put("/:id", handler.UpdatePlaylist)
	playlists.Delete("/:id", handler.DeletePlaylist)
	playlists.Get("/:id/m3u", handler.ExportM3U)
	playlists.Post("/:id/songs", handler.AddSong)
	playlists.Delete("/:id/songs/:songId", handler.RemoveSong)
}
