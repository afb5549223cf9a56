package music

import (
	"context"
	"time"
)

// Library is the interface for managing the music library.
// It's our primary repository interface for the library domain.
type Library interface {
	// Song methods
	AddSong(ctx context.Context, song *Song) error
	UpdateSong(ctx context.Context, song *Song) error
	GetSong(ctx context.Context, id string) (*Song, error)
	DeleteSong(ctx context.Context, id string) error
	GetSongsPaginated(ctx context.Context, limit, offset int) ([]*Song, error)
	GetSongsCount(ctx context.Context) (int, error)
	FindSongByPath(ctx context.Context, path string) (*Song, error)
	FindSongByArtistAndTitle(ctx context.Context, artistName, title string) (*Song, error)
	GetSongsWithoutMBID(ctx context.Context, limit, offset int) ([]*Song, error)
	SearchSongs(ctx context.Context, where string, args []any, limit, offset int) ([]*Song, error)
	CountSearchSongs(ctx context.Context, where string, args []any) (int, error)
	AddSongLink(ctx context.Context, link SongLink) error
	GetSongLinks(ctx context.Context, songID string) ([]SongLink, error)

	// Album methods
	AddAlbum(ctx context.Context, album *Album) error
	UpdateAlbum(ctx context.Context, album *Album) error
	GetAlbum(ctx context.Context, id string) (*Album, error)
	GetAlbumsPaginated(ctx context.Context, limit, offset int) ([]*Album, error)
	GetAlbumsCount(ctx context.Context) (int, error)
	FindOrCreateAlbum(ctx context.Context, artist *Artist, albumTitle string, year int) (*Album, error)

	// Artist methods
	AddArtist(ctx context.Context, artist *Artist) error
	UpdateArtist(ctx context.Context, artist *Artist) error
	GetArtist(ctx context.Context, id string) (*Artist, error)
	GetArtistByName(ctx context.Context, name string) (*Artist, error)
	GetArtistsPaginated(ctx context.Context, limit, offset int) ([]*Artist, error)
	GetArtistsCount(ctx context.Context) (int, error)
	GetArtistsWithoutAttribute(ctx context.Context, key string, limit, offset int) ([]*Artist, error)
	GetFollowedArtists(ctx context.Context) ([]*Artist, error)
	FindOrCreateArtist(ctx context.Context, artistName string) (*Artist, error)
}

// ScrobbleStore persists the Last.fm listening history.
type ScrobbleStore interface {
	// AddScrobbles inserts the batch, skipping plays already stored, and
	// returns how many rows were new.
	AddScrobbles(ctx context.Context, scrobbles []*Scrobble) (int, error)
	LatestScrobbleTime(ctx context.Context) (time.Time, error)
	GetScrobbles(ctx context.Context, limit, offset int) ([]*Scrobble, error)
	GetScrobblesCount(ctx context.Context) (int, error)
	TopArtists(ctx context.Context, since time.Time, limit int) ([]ArtistPlays, error)
}

// ConcertStore persists upcoming concerts.
type ConcertStore interface {
	UpsertConcert(ctx context.Context, concert *Concert) error
	GetUpcomingConcerts(ctx context.Context, from time.Time, artistID string) ([]*Concert, error)
	DeleteConcertsBefore(ctx context.Context, before time.Time) (int, error)
}
