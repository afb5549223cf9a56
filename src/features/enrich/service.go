// Package enrich fills the catalogue with data scraped from MusicBrainz,
// Discogs, Last.fm and Ticketmaster.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/contre95/musicdex/src/features/config"
	"github.com/contre95/musicdex/src/infra/metadata"
	"github.com/contre95/musicdex/src/music"
)

// Job types registered by this feature.
const (
	JobTypeMBID      = "enrich_mbid"
	JobTypeDiscogs   = "enrich_discogs"
	JobTypeScrobbles = "import_scrobbles"
	JobTypeConcerts  = "refresh_concerts"
)

const batchSize = 100

// RecordingFinder looks up recordings on MusicBrainz.
type RecordingFinder interface {
	SearchRecording(ctx context.Context, artist, title string) (*metadata.Recording, error)
}

// ArtistDirectory looks up artist profiles on Discogs.
type ArtistDirectory interface {
	SearchArtist(ctx context.Context, name string) ([]metadata.DiscogsResult, error)
	GetArtist(ctx context.Context, id int) (*metadata.DiscogsArtist, error)
}

// ScrobbleSource pages through a user's listening history.
type ScrobbleSource interface {
	RecentTracks(ctx context.Context, user string, from time.Time, page int) (*metadata.RecentTracksPage, error)
}

// EventFinder searches upcoming concerts.
type EventFinder interface {
	UpcomingEvents(ctx context.Context, keyword, country string) ([]*music.Concert, error)
}

// Service holds the enrichment logic shared by the job tasks.
type Service struct {
	library    music.Library
	scrobbles  music.ScrobbleStore
	concerts   music.ConcertStore
	recordings RecordingFinder
	artists    ArtistDirectory
	history    ScrobbleSource
	events     EventFinder
	config     *config.Manager
	jobService music.JobService
}

// NewService creates a new enrichment service.
func NewService(
	library music.Library,
	scrobbles music.ScrobbleStore,
	concerts music.ConcertStore,
	recordings RecordingFinder,
	artists ArtistDirectory,
	history ScrobbleSource,
	events EventFinder,
	cfg *config.Manager,
	jobService music.JobService,
) *Service {
	return &Service{
		library:    library,
		scrobbles:  scrobbles,
		concerts:   concerts,
		recordings: recordings,
		artists:    artists,
		history:    history,
		events:     events,
		config:     cfg,
		jobService: jobService,
	}
}

// StartJob enqueues one of the enrichment job types.
func (s *Service) StartJob(jobType string, force bool, limit int) (string, error) {
	switch jobType {
	case JobTypeMBID, JobTypeDiscogs, JobTypeScrobbles, JobTypeConcerts:
	default:
		return "", fmt.Errorf("unknown enrichment job type: %s", jobType)
	}
	metadata := map[string]any{"force": force}
	if limit > 0 {
		metadata["limit"] = limit
	}
	return s.jobService.StartJob(jobType, jobNames[jobType], metadata)
}

var jobNames = map[string]string{
	JobTypeMBID:      "MusicBrainz matching",
	JobTypeDiscogs:   "Discogs artist info",
	JobTypeScrobbles: "Last.fm scrobble import",
	JobTypeConcerts:  "Concert refresh",
}

// EnrichSong matches a song on MusicBrainz and stores its MBID, ISRC and
// release group. It reports false when nothing was updated.
func (s *Service) EnrichSong(ctx context.Context, song *music.Song, force bool) (bool, error) {
	if song.MBID != "" && !force {
		return false, nil
	}
	artist := song.PrimaryArtist()
	if artist == nil {
		return false, fmt.Errorf("song %s has no artist", song.ID)
	}

	rec, err := s.recordings.SearchRecording(ctx, artist.Name, song.Title)
	if errors.Is(err, metadata.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	song.MBID = rec.MBID
	if (song.ISRC == "" || force) && len(rec.ISRCs) > 0 {
		song.ISRC = rec.ISRCs[0]
	}
	if song.Metadata.Year == 0 {
		song.Metadata.Year = rec.Year
	}
	if err := s.library.UpdateSong(ctx, song); err != nil {
		return false, fmt.Errorf("failed to update song: %w", err)
	}
	if err := s.library.AddSongLink(ctx, music.SongLink{
		SongID:  song.ID,
		Service: "musicbrainz",
		URL:     "https://musicbrainz.org/recording/" + rec.MBID,
	}); err != nil {
		return true, fmt.Errorf("failed to add song link: %w", err)
	}

	if album := song.Album; album != nil && rec.ReleaseGroupMBID != "" && (album.MBID == "" || force) {
		album.MBID = rec.ReleaseGroupMBID
		if album.Year == 0 {
			album.Year = rec.Year
		}
		if err := s.library.UpdateAlbum(ctx, album); err != nil {
			return true, fmt.Errorf("failed to update album: %w", err)
		}
	}
	return true, nil
}

// EnrichArtist stores the Discogs profile of an artist as attributes.
func (s *Service) EnrichArtist(ctx context.Context, artist *music.Artist, force bool) (bool, error) {
	if artist.Attributes[music.AttrDiscogsID] != "" && !force {
		return false, nil
	}
	results, err := s.artists.SearchArtist(ctx, artist.Name)
	if err != nil {
		return false, err
	}
	best := metadata.BestDiscogsMatch(results, artist.Name)
	if best == nil {
		return false, nil
	}
	info, err := s.artists.GetArtist(ctx, best.ID)
	if err != nil {
		return false, err
	}

	if artist.Attributes == nil {
		artist.Attributes = map[string]string{}
	}
	artist.Attributes[music.AttrDiscogsID] = strconv.Itoa(info.ID)
	artist.Attributes[music.AttrDiscogsURL] = info.DiscogsURL()
	setOrDelete(artist.Attributes, music.AttrDiscogsProfile, info.Profile)
	setOrDelete(artist.Attributes, music.AttrDiscogsRealName, info.RealName)
	if err := s.library.UpdateArtist(ctx, artist); err != nil {
		return false, fmt.Errorf("failed to update artist: %w", err)
	}
	return true, nil
}

func setOrDelete(attrs map[string]string, key, value string) {
	if value == "" {
		delete(attrs, key)
		return
	}
	attrs[key] = value
}

// RefreshArtistConcerts stores the upcoming events found for artist and
// returns how many were saved.
func (s *Service) RefreshArtistConcerts(ctx context.Context, artist *music.Artist) (int, error) {
	events, err := s.events.UpcomingEvents(ctx, artist.Name, "")
	if err != nil {
		return 0, err
	}
	now := time.Now()
	saved := 0
	for _, c := range events {
		if c.StartsAt.Before(now.Truncate(24 * time.Hour)) {
			continue
		}
		c.ArtistID = artist.ID
		c.ArtistName = artist.Name
		if err := s.concerts.UpsertConcert(ctx, c); err != nil {
			slog.Warn("Failed to store concert", "concert", c.ID, "error", err)
			continue
		}
		saved++
	}
	return saved, nil
}
