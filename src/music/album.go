package music

import (
	"fmt"
	"strings"
	"time"
)

type AlbumType string

const (
	AlbumTypeCompilation AlbumType = "compilation"
	AlbumTypeSoundtrack  AlbumType = "soundtrack"
	AlbumTypeEP          AlbumType = "ep"
	AlbumTypeSingle      AlbumType = "single"
	AlbumTypeDefault     AlbumType = "default"
)

// Album represents a release grouping songs.
type Album struct {
	ID      string
	Title   string
	Type    AlbumType
	Artists []ArtistRole
	Year    int
	// MBID is the MusicBrainz release-group identifier, used for cover art.
	MBID         string
	Label        string
	Country      string
	Genre        string
	Attributes   map[string]string
	AddedDate    time.Time
	ModifiedDate time.Time
}

// Validate validates the album fields.
func (a *Album) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("album title cannot be empty")
	}
	if len(a.Title) > 500 {
		return fmt.Errorf("album title cannot exceed 500 characters")
	}
	if len(a.Artists) == 0 {
		return fmt.Errorf("album must have at least one artist")
	}
	for _, artistRole := range a.Artists {
		if artistRole.Artist == nil {
			return fmt.Errorf("album artist cannot be nil")
		}
		if err := artistRole.Artist.Validate(); err != nil {
			return fmt.Errorf("invalid artist in album: %w", err)
		}
	}
	if a.Year < 0 {
		return fmt.Errorf("year cannot be negative, got %d", a.Year)
	}
	if a.MBID != "" && !IsMBID(a.MBID) {
		return fmt.Errorf("album MBID is not a valid UUID: %s", a.MBID)
	}
	if a.Label != "" && len(a.Label) > 200 {
		return fmt.Errorf("label cannot exceed 200 characters")
	}
	if a.Country != "" && len(a.Country) > 2 {
		return fmt.Errorf("country code cannot exceed 2 characters")
	}
	if a.Genre != "" && len(a.Genre) > 100 {
		return fmt.Errorf("genre cannot exceed 100 characters")
	}
	return nil
}
