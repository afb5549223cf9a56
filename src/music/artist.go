package music

import (
	"fmt"
	"strings"
	"time"
)

// VariousArtistsName is the standard name for compilation albums
const VariousArtistsName = "Various Artists"

// Well known artist attribute keys written by the enrichment jobs.
const (
	AttrDiscogsID       = "discogs_id"
	AttrDiscogsURL      = "discogs_url"
	AttrDiscogsProfile  = "discogs_profile"
	AttrDiscogsRealName = "discogs_realname"
)

// Artist represents a music artist.
type Artist struct {
	ID         string
	Name       string
	SortName   string
	MBID       string
	Followed   bool // concerts are only refreshed for followed artists
	Attributes map[string]string
	AddedDate  time.Time
}

// Validate validates the artist fields.
func (a *Artist) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("artist name cannot be empty")
	}
	if len(a.Name) > 500 {
		return fmt.Errorf("artist name cannot exceed 500 characters")
	}
	if a.SortName != "" && len(a.SortName) > 500 {
		return fmt.Errorf("artist sort name cannot exceed 500 characters")
	}
	if a.MBID != "" && !IsMBID(a.MBID) {
		return fmt.Errorf("artist MBID is not a valid UUID: %s", a.MBID)
	}
	return nil
}

// ArtistRole represents the role of an artist on a song or album
type ArtistRole struct {
	Artist *Artist
	Role   string // main, featured, remixer, etc.
}

// ArtistNames joins the names of the given roles with ", ".
func ArtistNames(artists []ArtistRole) string {
	var names []string
	for _, ar := range artists {
		if ar.Artist != nil {
			names = append(names, ar.Artist.Name)
		}
	}
	return strings.Join(names, ", ")
}
