package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/contre95/musicdex/src/music"
	"github.com/google/uuid"
)

const artistColumns = "a.id, a.name, a.sort_name, a.mbid, a.followed, a.added_date"

// AddArtist adds an artist to the database.
func (d *SqliteLibrary) AddArtist(ctx context.Context, artist *music.Artist) error {
	if err := artist.Validate(); err != nil {
		slog.Error("AddArtist: validation failed", "error", err, "artistID", artist.ID)
		return err
	}
	if artist.ID == "" {
		artist.ID = uuid.New().String()
	}
	if artist.AddedDate.IsZero() {
		artist.AddedDate = time.Now()
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artists (id, name, sort_name, mbid, followed, name_search, added_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, artist.ID, artist.Name, nullIfEmpty(artist.SortName), nullIfEmpty(artist.MBID), artist.Followed,
		music.SearchKey(artist.Name), formatTime(artist.AddedDate))
	if err != nil {
		return err
	}
	if err := replaceAttributes(ctx, tx, "artist_attributes", "artist_id", artist.ID, artist.Attributes); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateArtist updates an artist and replaces its attributes.
func (d *SqliteLibrary) UpdateArtist(ctx context.Context, artist *music.Artist) error {
	if err := artist.Validate(); err != nil {
		slog.Error("UpdateArtist: validation failed", "error", err, "artistID", artist.ID)
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE artists SET name = ?, sort_name = ?, mbid = ?, followed = ?, name_search = ?
		WHERE id = ?
	`, artist.Name, nullIfEmpty(artist.SortName), nullIfEmpty(artist.MBID), artist.Followed,
		music.SearchKey(artist.Name), artist.ID)
	if err != nil {
		return err
	}
	if err := checkAffected(res, "artist", artist.ID); err != nil {
		return err
	}
	if err := replaceAttributes(ctx, tx, "artist_attributes", "artist_id", artist.ID, artist.Attributes); err != nil {
		return err
	}
	return tx.Commit()
}

func scanArtist(row interface{ Scan(...any) error }) (*music.Artist, error) {
	artist := &music.Artist{}
	var sortName, mbid, added sql.NullString
	if err := row.Scan(&artist.ID, &artist.Name, &sortName, &mbid, &artist.Followed, &added); err != nil {
		return nil, err
	}
	artist.SortName = sortName.String
	artist.MBID = mbid.String
	artist.AddedDate = parseTime(added)
	return artist, nil
}

// queryArtists runs a query selecting artistColumns and loads each artist's attributes.
func (d *SqliteLibrary) queryArtists(ctx context.Context, query string, args ...any) ([]*music.Artist, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var artists []*music.Artist
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		artists = append(artists, artist)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, artist := range artists {
		if artist.Attributes, err = loadAttributes(ctx, d.db, "artist_attributes", "artist_id", artist.ID); err != nil {
			return nil, err
		}
	}
	return artists, nil
}

func (d *SqliteLibrary) queryArtist(ctx context.Context, query string, args ...any) (*music.Artist, error) {
	artists, err := d.queryArtists(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(artists) == 0 {
		return nil, nil
	}
	return artists[0], nil
}

// GetArtist returns an artist by ID, or nil if it does not exist.
func (d *SqliteLibrary) GetArtist(ctx context.Context, id string) (*music.Artist, error) {
	return d.queryArtist(ctx, "SELECT "+artistColumns+" FROM artists a WHERE a.id = ?", id)
}

// GetArtistByName returns the artist with exactly this name, or nil.
func (d *SqliteLibrary) GetArtistByName(ctx context.Context, name string) (*music.Artist, error) {
	return d.queryArtist(ctx, "SELECT "+artistColumns+" FROM artists a WHERE a.name = ? AND a.name != ''", name)
}

func (d *SqliteLibrary) GetArtistsPaginated(ctx context.Context, limit, offset int) ([]*music.Artist, error) {
	return d.queryArtists(ctx, "SELECT "+artistColumns+" FROM artists a ORDER BY a.name_search, a.id LIMIT ? OFFSET ?", limit, offset)
}

func (d *SqliteLibrary) GetArtistsCount(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM artists").Scan(&count)
	return count, err
}

// GetArtistsWithoutAttribute returns artists that have no attribute named key.
func (d *SqliteLibrary) GetArtistsWithoutAttribute(ctx context.Context, key string, limit, offset int) ([]*music.Artist, error) {
	return d.queryArtists(ctx, `
		SELECT `+artistColumns+` FROM artists a
		WHERE NOT EXISTS (SELECT 1 FROM artist_attributes aa WHERE aa.artist_id = a.id AND aa.key = ?)
		ORDER BY a.name_search, a.id
		LIMIT ? OFFSET ?
	`, key, limit, offset)
}

func (d *SqliteLibrary) GetFollowedArtists(ctx context.Context) ([]*music.Artist, error) {
	return d.queryArtists(ctx, "SELECT "+artistColumns+" FROM artists a WHERE a.followed = 1 ORDER BY a.name_search, a.id")
}

func (d *SqliteLibrary) FindOrCreateArtist(ctx context.Context, artistName string) (*music.Artist, error) {
	artistName = strings.TrimSpace(artistName)
	if artistName == "" {
		return nil, fmt.Errorf("artist name cannot be empty")
	}

	artist, err := d.GetArtistByName(ctx, artistName)
	if err != nil {
		return nil, err
	}
	if artist != nil {
		return artist, nil
	}

	newArtist := &music.Artist{
		ID:         uuid.New().String(),
		Name:       artistName,
		Attributes: map[string]string{},
	}
	if err := d.AddArtist(ctx, newArtist); err != nil {
		return nil, err
	}
	return newArtist, nil
}
