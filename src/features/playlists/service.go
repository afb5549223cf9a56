// Package playlists manages ordered song collections and their M3U form.
package playlists

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/contre95/musicdex/src/music"
)

var (
	// ErrNotFound is returned for unknown playlists and songs.
	ErrNotFound = errors.New("not found")
	// ErrInvalid wraps playlist validation failures.
	ErrInvalid = errors.New("invalid playlist")
)

// ImportResult reports how many M3U entries matched catalogued songs.
type ImportResult struct {
	Playlist *music.Playlist `json:"playlist"`
	Entries  int             `json:"entries"`
	Matched  int             `json:"matched"`
	Missing  []string        `json:"missing,omitempty"`
}

// Service is the domain service for the playlists feature.
type Service struct {
	playlistRepo music.PlaylistRepository
	library      music.Library
}

// NewService creates a new playlists service.
func NewService(playlistRepo music.PlaylistRepository, lib music.Library) *Service {
	return &Service{
		playlistRepo: playlistRepo,
		library:      lib,
	}
}

// CreatePlaylist creates a new empty playlist.
func (s *Service) CreatePlaylist(ctx context.Context, name, description string) (*music.Playlist, error) {
	now := time.Now()
	playlist := &music.Playlist{
		ID:           music.GeneratePlaylistID(),
		Name:         name,
		Description:  description,
		Songs:        []*music.Song{},
		CreatedDate:  now,
		ModifiedDate: now,
	}
	if err := playlist.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.playlistRepo.CreatePlaylist(ctx, playlist); err != nil {
		slog.Error("CreatePlaylist failed", "name", name, "error", err)
		return nil, err
	}
	slog.Debug("Playlist created", "id", playlist.ID, "name", name)
	return playlist, nil
}

// GetPlaylist returns a playlist with its songs.
func (s *Service) GetPlaylist(ctx context.Context, id string) (*music.Playlist, error) {
	playlist, err := s.playlistRepo.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	if playlist == nil {
		return nil, fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	}
	return playlist, nil
}

// GetAllPlaylists returns every playlist, without songs.
func (s *Service) GetAllPlaylists(ctx context.Context) ([]*music.Playlist, error) {
	return s.playlistRepo.GetPlaylists(ctx)
}

// UpdatePlaylist renames a playlist and replaces its description.
func (s *Service) UpdatePlaylist(ctx context.Context, id, name, description string) (*music.Playlist, error) {
	playlist, err := s.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	playlist.Name = name
	playlist.Description = description
	playlist.ModifiedDate = time.Now()
	if err := playlist.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.playlistRepo.UpdatePlaylist(ctx, playlist); err != nil {
		slog.Error("UpdatePlaylist failed", "id", id, "error", err)
		return nil, err
	}
	return playlist, nil
}

// DeletePlaylist deletes a playlist. Its songs stay in the library.
func (s *Service) DeletePlaylist(ctx context.Context, id string) error {
	if _, err := s.GetPlaylist(ctx, id); err != nil {
		return err
	}
	if err := s.playlistRepo.DeletePlaylist(ctx, id); err != nil {
		slog.Error("DeletePlaylist failed", "id", id, "error", err)
		return err
	}
	slog.Info("Playlist deleted", "id", id)
	return nil
}

// AddSong appends a catalogued song to a playlist. Adding a song that is
// already present is a no-op.
func (s *Service) AddSong(ctx context.Context, playlistID, songID string) error {
	if _, err := s.GetPlaylist(ctx, playlistID); err != nil {
		return err
	}
	song, err := s.library.GetSong(ctx, songID)
	if err != nil {
		return fmt.Errorf("failed to get song %s: %w", songID, err)
	}
	if song == nil {
		return fmt.Errorf("song %s: %w", songID, ErrNotFound)
	}
	if err := s.playlistRepo.AddSongToPlaylist(ctx, playlistID, songID); err != nil {
		slog.Error("AddSong failed", "playlistID", playlistID, "songID", songID, "error", err)
		return err
	}
	slog.Debug("Song added to playlist", "playlistID", playlistID, "songID", songID)
	return nil
}

// RemoveSong removes a song from a playlist.
func (s *Service) RemoveSong(ctx context.Context, playlistID, songID string) error {
	playlist, err := s.GetPlaylist(ctx, playlistID)
	if err != nil {
		return err
	}
	if !playlist.ContainsSong(songID) {
		return fmt.Errorf("song %s in playlist %s: %w", songID, playlistID, ErrNotFound)
	}
	return s.playlistRepo.RemoveSongFromPlaylist(ctx, playlistID, songID)
}

// ExportM3U renders a playlist as extended M3U.
func (s *Service) ExportM3U(ctx context.Context, playlistID string) (string, error) {
	playlist, err := s.GetPlaylist(ctx, playlistID)
	if err != nil {
		return "", err
	}
	return GenerateM3U(playlist.Songs), nil
}

// ImportM3U creates a playlist from M3U content. Entries are matched to
// catalogued songs by path; unmatched entries are reported, not fatal.
func (s *Service) ImportM3U(ctx context.Context, name, description, content string) (*ImportResult, error) {
	paths, err := ParseM3U(content)
	if err != nil {
		return nil, err
	}
	playlist, err := s.CreatePlaylist(ctx, name, description)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Entries: len(paths)}
	for _, path := range paths {
		song, err := s.library.FindSongByPath(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s: %w", path, err)
		}
		if song == nil {
			result.Missing = append(result.Missing, path)
			continue
		}
		if err := s.playlistRepo.AddSongToPlaylist(ctx, playlist.ID, song.ID); err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", path, err)
		}
		result.Matched++
	}
	slog.Info("M3U import completed", "playlist", name, "entries", result.Entries, "matched", result.Matched)

	if result.Playlist, err = s.GetPlaylist(ctx, playlist.ID); err != nil {
		return nil, err
	}
	return result, nil
}

// GetPlaylistsContainingSong returns the playlists a song belongs to.
func (s *Service) GetPlaylistsContainingSong(ctx context.Context, songID string) ([]*music.Playlist, error) {
	all, err := s.playlistRepo.GetPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	var containing []*music.Playlist
	for _, p := range all {
		full, err := s.playlistRepo.GetPlaylist(ctx, p.ID)
		if err != nil || full == nil {
			slog.Warn("Failed to load playlist", "playlistID", p.ID, "error", err)
			continue
		}
		if full.ContainsSong(songID) {
			containing = append(containing, full)
		}
	}
	return containing, nil
}
