// Package concerts lists upcoming live events of followed artists.
package concerts

import (
	"context"
	"fmt"
	"time"

	"github.com/contre95/musicdex/src/music"
)

// RefreshJobType is the job type that refreshes concerts from Ticketmaster.
const RefreshJobType = "refresh_concerts"

// Refresher enqueues metadata jobs.
type Refresher interface {
	StartJob(jobType string, force bool, limit int) (string, error)
}

// Service is the domain service for the concerts feature.
type Service struct {
	store     music.ConcertStore
	library   music.Library
	refresher Refresher
	now       func() time.Time
}

// NewService creates a new concerts service.
func NewService(store music.ConcertStore, lib music.Library, refresher Refresher) *Service {
	return &Service{store: store, library: lib, refresher: refresher, now: time.Now}
}

// Upcoming returns concerts from today on, soonest first. A non-empty
// artistID restricts the list to that artist and days > 0 caps how far
// ahead to look.
func (s *Service) Upcoming(ctx context.Context, artistID string, days int) ([]*music.Concert, error) {
	y, m, d := s.now().UTC().Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	concerts, err := s.store.GetUpcomingConcerts(ctx, from, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get concerts: %w", err)
	}
	if days <= 0 {
		return concerts, nil
	}
	until := from.AddDate(0, 0, days)
	var within []*music.Concert
	for _, c := range concerts {
		if c.StartsAt.Before(until) {
			within = append(within, c)
		}
	}
	return within, nil
}

// FollowedArtists returns the artists concerts are refreshed for.
func (s *Service) FollowedArtists(ctx context.Context) ([]*music.Artist, error) {
	return s.library.GetFollowedArtists(ctx)
}

// StartRefresh enqueues a concert refresh for every followed artist.
func (s *Service) StartRefresh() (string, error) {
	return s.refresher.StartJob(RefreshJobType, false, 0)
}
