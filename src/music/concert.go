package music

import (
	"fmt"
	"strings"
	"time"
)

// Concert is an upcoming live event for an artist.
type Concert struct {
	ID         string // provider event id
	ArtistID   string
	ArtistName string
	Name       string
	Venue      string
	City       string
	Country    string
	StartsAt   time.Time
	URL        string
	Source     string
	UpdatedAt  time.Time
}

// Validate validates the concert fields.
func (c *Concert) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("concert id cannot be empty")
	}
	if strings.TrimSpace(c.ArtistName) == "" {
		return fmt.Errorf("concert artist cannot be empty: id -> %s", c.ID)
	}
	if c.StartsAt.IsZero() {
		return fmt.Errorf("concert start time cannot be zero: id -> %s", c.ID)
	}
	return nil
}
