package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/contre95/musicdex/src/features/config"
	"github.com/contre95/musicdex/src/features/search"
	"github.com/contre95/musicdex/src/music"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the requested item is not catalogued.
	ErrNotFound = errors.New("not found")
	// ErrNoCover is returned for albums without a release group MBID.
	ErrNoCover = errors.New("album has no release group MBID")
)

// CoverProvider serves album cover thumbnails by release group MBID.
type CoverProvider interface {
	Thumbnail(ctx context.Context, releaseGroupMBID string) (string, error)
	Prefetch(ctx context.Context, mbids []string, workers int) (int, error)
}

// SearchResult is one page of songs matching a query.
type SearchResult struct {
	Query string        `json:"query"`
	Total int           `json:"total"`
	Songs []*music.Song `json:"songs"`
}

// Stats summarizes the catalogue.
type Stats struct {
	Songs     int `json:"songs"`
	Artists   int `json:"artists"`
	Albums    int `json:"albums"`
	Scrobbles int `json:"scrobbles"`
}

// Service is the domain service for the library feature.
type Service struct {
	library       music.Library
	scrobbles     music.ScrobbleStore
	covers        CoverProvider
	configManager *config.Manager
	jobService    music.JobService
}

// NewService creates a new library service.
func NewService(lib music.Library, scrobbles music.ScrobbleStore, covers CoverProvider, cfgManager *config.Manager, jobService music.JobService) *Service {
	return &Service{
		library:       lib,
		scrobbles:     scrobbles,
		covers:        covers,
		configManager: cfgManager,
		jobService:    jobService,
	}
}

// GetArtistsPaginated returns paginated artists from the library.
func (s *Service) GetArtistsPaginated(ctx context.Context, limit, offset int) ([]*music.Artist, error) {
	slog.Debug("GetArtistsPaginated service called", "limit", limit, "offset", offset)
	return s.library.GetArtistsPaginated(ctx, limit, offset)
}

func (s *Service) GetArtistsCount(ctx context.Context) (int, error) {
	return s.library.GetArtistsCount(ctx)
}

// GetAlbumsPaginated returns paginated albums from the library.
func (s *Service) GetAlbumsPaginated(ctx context.Context, limit, offset int) ([]*music.Album, error) {
	slog.Debug("GetAlbumsPaginated service called", "limit", limit, "offset", offset)
	return s.library.GetAlbumsPaginated(ctx, limit, offset)
}

func (s *Service) GetAlbumsCount(ctx context.Context) (int, error) {
	return s.library.GetAlbumsCount(ctx)
}

// GetSongsPaginated returns paginated songs from the library.
func (s *Service) GetSongsPaginated(ctx context.Context, limit, offset int) ([]*music.Song, error) {
	slog.Debug("GetSongsPaginated service called", "limit", limit, "offset", offset)
	return s.library.GetSongsPaginated(ctx, limit, offset)
}

func (s *Service) GetSongsCount(ctx context.Context) (int, error) {
	return s.library.GetSongsCount(ctx)
}

// GetArtist returns a single artist by ID.
func (s *Service) GetArtist(ctx context.Context, id string) (*music.Artist, error) {
	artist, err := s.library.GetArtist(ctx, id)
	if err != nil {
		return nil, err
	}
	if artist == nil {
		return nil, fmt.Errorf("artist %s: %w", id, ErrNotFound)
	}
	return artist, nil
}

// GetAlbum returns a single album by ID.
func (s *Service) GetAlbum(ctx context.Context, id string) (*music.Album, error) {
	album, err := s.library.GetAlbum(ctx, id)
	if err != nil {
		return nil, err
	}
	if album == nil {
		return nil, fmt.Errorf("album %s: %w", id, ErrNotFound)
	}
	return album, nil
}

// GetSong returns a single song by ID.
func (s *Service) GetSong(ctx context.Context, id string) (*music.Song, error) {
	song, err := s.library.GetSong(ctx, id)
	if err != nil {
		return nil, err
	}
	if song == nil {
		return nil, fmt.Errorf("song %s: %w", id, ErrNotFound)
	}
	return song, nil
}

// Search parses query and returns one page of matching songs. Parse errors
// are returned unwrapped so callers can match the search sentinels.
func (s *Service) Search(ctx context.Context, query string, limit, offset int) (*SearchResult, error) {
	q, err := search.Parse(query)
	if err != nil {
		return nil, err
	}
	where, args := q.Where()
	slog.Debug("Search service called", "query", q.String(), "where", where)

	total, err := s.library.CountSearchSongs(ctx, where, args)
	if err != nil {
		return nil, fmt.Errorf("failed to count search results: %w", err)
	}
	songs, err := s.library.SearchSongs(ctx, where, args, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search songs: %w", err)
	}
	return &SearchResult{Query: q.String(), Total: total, Songs: songs}, nil
}

// RateSong sets the personal 0-10 rating of a song.
func (s *Service) RateSong(ctx context.Context, id string, rating int) (*music.Song, error) {
	if rating < 0 || rating > music.MaxRating {
		return nil, fmt.Errorf("rating must be between 0 and %d, got %d", music.MaxRating, rating)
	}
	song, err := s.GetSong(ctx, id)
	if err != nil {
		return nil, err
	}
	song.Rating = rating
	if err := s.library.UpdateSong(ctx, song); err != nil {
		return nil, fmt.Errorf("failed to update song: %w", err)
	}
	return song, nil
}

// GetSongLinks returns the external pages linked to a song.
func (s *Service) GetSongLinks(ctx context.Context, songID string) ([]music.SongLink, error) {
	if _, err := s.GetSong(ctx, songID); err != nil {
		return nil, err
	}
	return s.library.GetSongLinks(ctx, songID)
}

// AddSongLink links a song to a page on an external service, replacing any
// previous link for that service.
func (s *Service) AddSongLink(ctx context.Context, songID, service, url string) error {
	if _, err := s.GetSong(ctx, songID); err != nil {
		return err
	}
	return s.library.AddSongLink(ctx, music.SongLink{
		SongID:  songID,
		Service: strings.ToLower(strings.TrimSpace(service)),
		URL:     strings.TrimSpace(url),
	})
}

// SetFollowed marks an artist as followed, which includes it in concert refreshes.
func (s *Service) SetFollowed(ctx context.Context, artistID string, followed bool) (*music.Artist, error) {
	artist, err := s.GetArtist(ctx, artistID)
	if err != nil {
		return nil, err
	}
	artist.Followed = followed
	if err := s.library.UpdateArtist(ctx, artist); err != nil {
		return nil, fmt.Errorf("failed to update artist: %w", err)
	}
	slog.Info("Artist follow state changed", "artist", artist.Name, "followed", followed)
	return artist, nil
}

// FindOrCreateArtist returns the artist with the given name, adding it when
// it is not catalogued yet.
func (s *Service) FindOrCreateArtist(ctx context.Context, name string) (*music.Artist, error) {
	name = strings.TrimSpace(name)
	artist, err := s.library.GetArtistByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if artist != nil {
		return artist, nil
	}
	artist = &music.Artist{
		ID:         uuid.New().String(),
		Name:       name,
		Attributes: map[string]string{},
	}
	if err := artist.Validate(); err != nil {
		return nil, err
	}
	if err := s.library.AddArtist(ctx, artist); err != nil {
		return nil, fmt.Errorf("failed to add artist: %w", err)
	}
	return artist, nil
}

// GetScrobbles returns the most recent scrobbles first.
func (s *Service) GetScrobbles(ctx context.Context, limit, offset int) ([]*music.Scrobble, int, error) {
	scrobbles, err := s.scrobbles.GetScrobbles(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.scrobbles.GetScrobblesCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return scrobbles, total, nil
}

// TopArtists returns the most played artists over the last days.
func (s *Service) TopArtists(ctx context.Context, days, limit int) ([]music.ArtistPlays, error) {
	var since time.Time
	if days > 0 {
		since = time.Now().AddDate(0, 0, -days)
	}
	return s.scrobbles.TopArtists(ctx, since, limit)
}

// GetStats counts the catalogued items.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	var err error
	if st.Songs, err = s.library.GetSongsCount(ctx); err != nil {
		return st, err
	}
	if st.Artists, err = s.library.GetArtistsCount(ctx); err != nil {
		return st, err
	}
	if st.Albums, err = s.library.GetAlbumsCount(ctx); err != nil {
		return st, err
	}
	if st.Scrobbles, err = s.scrobbles.GetScrobblesCount(ctx); err != nil {
		return st, err
	}
	return st, nil
}

// AlbumCover returns the path of the album's cover thumbnail.
func (s *Service) AlbumCover(ctx context.Context, albumID string) (string, error) {
	album, err := s.GetAlbum(ctx, albumID)
	if err != nil {
		return "", err
	}
	if album.MBID == "" {
		return "", ErrNoCover
	}
	return s.covers.Thumbnail(ctx, album.MBID)
}

// StartCoverPrefetch enqueues a job that downloads every missing cover.
func (s *Service) StartCoverPrefetch() (string, error) {
	return s.jobService.StartJob(CoverJobType, "Cover prefetch", map[string]any{})
}
