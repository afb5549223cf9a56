package music

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxRating is the upper bound of the personal 0-10 song rating.
const MaxRating = 10

// Song represents a single catalogued recording, usually backed by a file.
type Song struct {
	ID           string
	Path         string
	Title        string
	Artists      []ArtistRole
	Album        *Album
	Metadata     Metadata
	MBID         string
	ISRC         string
	Format       string
	Bitrate      int
	Rating       int
	PlayCount    int
	LastPlayed   time.Time
	Attributes   map[string]string
	Links        []SongLink
	AddedDate    time.Time
	ModifiedDate time.Time
}

type Metadata struct {
	Genre       string
	Year        int
	Duration    int
	TrackNumber int
	DiscNumber  int
	BPM         float64
}

// SongLink points a song to an external service page.
type SongLink struct {
	SongID  string
	Service string // musicbrainz, spotify, youtube, bandcamp...
	URL     string
}

// Validate validates the song fields.
func (s *Song) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("song title cannot be empty")
	}
	if len(s.Title) > 500 {
		return fmt.Errorf("title cannot exceed 500 characters, got %d: title -> %s", len(s.Title), s.Title)
	}
	if len(s.Path) > 1000 {
		return fmt.Errorf("song path cannot exceed 1000 characters, got %d: path -> %s", len(s.Path), s.Path)
	}
	if len(s.Artists) == 0 {
		return fmt.Errorf("song must have at least one artist: title -> %s", s.Title)
	}
	for i, artistRole := range s.Artists {
		if artistRole.Artist == nil {
			return fmt.Errorf("song artist at index %d cannot be nil", i)
		}
		if err := artistRole.Artist.Validate(); err != nil {
			return fmt.Errorf("invalid artist in song: %w", err)
		}
	}
	if s.Album != nil {
		if err := s.Album.Validate(); err != nil {
			return fmt.Errorf("invalid album in song: %w", err)
		}
	}
	if s.MBID != "" && !IsMBID(s.MBID) {
		return fmt.Errorf("song MBID is not a valid UUID: %s", s.MBID)
	}
	if s.ISRC != "" && len(s.ISRC) > 12 {
		return fmt.Errorf("ISRC cannot exceed 12 characters, got %d: isrc -> %s", len(s.ISRC), s.ISRC)
	}
	if s.Rating < 0 || s.Rating > MaxRating {
		return fmt.Errorf("rating must be between 0 and %d, got %d", MaxRating, s.Rating)
	}
	if s.PlayCount < 0 {
		return fmt.Errorf("play count cannot be negative, got %d", s.PlayCount)
	}
	if s.Metadata.Duration < 0 {
		return fmt.Errorf("duration cannot be negative, got %d", s.Metadata.Duration)
	}
	if s.Metadata.TrackNumber < 0 {
		return fmt.Errorf("track number cannot be negative, got %d", s.Metadata.TrackNumber)
	}
	if s.Metadata.DiscNumber < 0 {
		return fmt.Errorf("disc number cannot be negative, got %d", s.Metadata.DiscNumber)
	}
	if s.Metadata.Year < 0 {
		return fmt.Errorf("year cannot be negative, got %d", s.Metadata.Year)
	}
	if s.Metadata.BPM < 0 {
		return fmt.Errorf("BPM cannot be negative, got %f", s.Metadata.BPM)
	}
	if s.Metadata.Genre != "" && len(s.Metadata.Genre) > 100 {
		s.Metadata.Genre = s.Metadata.Genre[:100]
	}
	return nil
}

// PrimaryArtist returns the first artist credited on the song, or nil.
func (s *Song) PrimaryArtist() *Artist {
	for _, ar := range s.Artists {
		if ar.Artist != nil {
			return ar.Artist
		}
	}
	return nil
}

// EnsureMetadataDefaults adds fallback values for missing metadata fields
func (s *Song) EnsureMetadataDefaults() {
	if len(s.Artists) == 0 || s.Artists[0].Artist == nil || s.Artists[0].Artist.Name == "" {
		s.Artists = []ArtistRole{{
			Artist: &Artist{Name: "Unknown Artist"},
			Role:   "main",
		}}
	}
	if s.Album == nil || s.Album.Title == "" {
		s.Album = &Album{Title: "Unknown Album"}
	}
	if len(s.Album.Artists) == 0 {
		s.Album.Artists = []ArtistRole{{Artist: s.Artists[0].Artist, Role: "main"}}
	}
}

// GenerateSongID creates a deterministic UUID for a song from its file path.
func GenerateSongID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path)).String()
}

// IsMBID reports whether s looks like a MusicBrainz identifier.
func IsMBID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}
