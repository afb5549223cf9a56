package music

import (
	"fmt"
	"strings"
	"time"
)

// Scrobble is a timestamped play reported by Last.fm.
type Scrobble struct {
	ID          int64
	SongID      string // empty when no catalogued song matched
	Artist      string
	Album       string
	Title       string
	MBID        string
	ScrobbledAt time.Time
	Source      string
}

// Validate validates the scrobble fields.
func (s *Scrobble) Validate() error {
	if strings.TrimSpace(s.Artist) == "" {
		return fmt.Errorf("scrobble artist cannot be empty")
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("scrobble title cannot be empty")
	}
	if s.ScrobbledAt.IsZero() {
		return fmt.Errorf("scrobble timestamp cannot be zero: %s - %s", s.Artist, s.Title)
	}
	return nil
}

// ArtistPlays is an aggregate row for the most played artists.
type ArtistPlays struct {
	Artist string
	Plays  int
}
