package music

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Playlist represents an ordered collection of songs.
type Playlist struct {
	ID           string
	Name         string
	Description  string
	Songs        []*Song
	CreatedDate  time.Time
	ModifiedDate time.Time
}

// TotalDuration returns the total duration of all songs in the playlist in seconds.
func (p *Playlist) TotalDuration() int {
	total := 0
	for _, song := range p.Songs {
		total += song.Metadata.Duration
	}
	return total
}

// Validate validates the playlist fields.
func (p *Playlist) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("playlist name cannot be empty")
	}
	if len(p.Name) > 200 {
		return fmt.Errorf("playlist name cannot exceed 200 characters, got %d: name -> %s", len(p.Name), p.Name)
	}
	if len(p.Description) > 1000 {
		return fmt.Errorf("playlist description cannot exceed 1000 characters, got %d", len(p.Description))
	}
	for i, song := range p.Songs {
		if song == nil {
			return fmt.Errorf("playlist song at index %d cannot be nil", i)
		}
	}
	return nil
}

// AddSong appends a song to the playlist if it's not already present.
func (p *Playlist) AddSong(song *Song) error {
	if song == nil {
		return fmt.Errorf("cannot add nil song to playlist")
	}
	if p.ContainsSong(song.ID) {
		return fmt.Errorf("song %s is already in playlist", song.Title)
	}
	p.Songs = append(p.Songs, song)
	p.ModifiedDate = time.Now()
	return nil
}

// RemoveSong removes a song from the playlist by ID.
func (p *Playlist) RemoveSong(songID string) error {
	for i, song := range p.Songs {
		if song.ID == songID {
			p.Songs = append(p.Songs[:i], p.Songs[i+1:]...)
			p.ModifiedDate = time.Now()
			return nil
		}
	}
	return fmt.Errorf("song with ID %s not found in playlist", songID)
}

// ContainsSong checks if a song is in the playlist.
func (p *Playlist) ContainsSong(songID string) bool {
	for _, song := range p.Songs {
		if song.ID == songID {
			return true
		}
	}
	return false
}

// PlaylistRepository defines the interface for playlist data access operations.
type PlaylistRepository interface {
	CreatePlaylist(ctx context.Context, playlist *Playlist) error
	GetPlaylist(ctx context.Context, id string) (*Playlist, error)
	GetPlaylists(ctx context.Context) ([]*Playlist, error)
	UpdatePlaylist(ctx context.Context, playlist *Playlist) error
	DeletePlaylist(ctx context.Context, id string) error
	AddSongToPlaylist(ctx context.Context, playlistID, songID string) error
	RemoveSongFromPlaylist(ctx context.Context, playlistID, songID string) error
	GetPlaylistSongs(ctx context.Context, playlistID string) ([]*Song, error)
}

// GeneratePlaylistID creates a UUID for a playlist.
func GeneratePlaylistID() string {
	return uuid.New().String()
}
