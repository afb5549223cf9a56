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

const albumColumns = "al.id, al.title, al.type, al.year, al.mbid, al.label, al.country, al.genre, al.added_date, al.modified_date"

// AddAlbum adds an album and its artist credits.
func (d *SqliteLibrary) AddAlbum(ctx context.Context, album *music.Album) error {
	if err := album.Validate(); err != nil {
		slog.Error("AddAlbum: validation failed", "error", err, "albumID", album.ID)
		return err
	}
	if album.ID == "" {
		album.ID = uuid.New().String()
	}
	now := time.Now()
	if album.AddedDate.IsZero() {
		album.AddedDate = now
	}
	album.ModifiedDate = now

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO albums (id, title, type, year, mbid, label, country, genre, title_search, added_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, album.ID, album.Title, nullIfEmpty(string(album.Type)), album.Year, nullIfEmpty(album.MBID),
		nullIfEmpty(album.Label), nullIfEmpty(album.Country), nullIfEmpty(album.Genre),
		music.SearchKey(album.Title), formatTime(album.AddedDate), formatTime(album.ModifiedDate))
	if err != nil {
		return err
	}
	if err := insertAlbumArtists(ctx, tx, album); err != nil {
		return err
	}
	if err := replaceAttributes(ctx, tx, "album_attributes", "album_id", album.ID, album.Attributes); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateAlbum updates an album, replacing its artist credits and attributes.
func (d *SqliteLibrary) UpdateAlbum(ctx context.Context, album *music.Album) error {
	if err := album.Validate(); err != nil {
		slog.Error("UpdateAlbum: validation failed", "error", err, "albumID", album.ID)
		return err
	}
	album.ModifiedDate = time.Now()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE albums SET title = ?, type = ?, year = ?, mbid = ?, label = ?, country = ?, genre = ?,
			title_search = ?, modified_date = ?
		WHERE id = ?
	`, album.Title, nullIfEmpty(string(album.Type)), album.Year, nullIfEmpty(album.MBID), nullIfEmpty(album.Label),
		nullIfEmpty(album.Country), nullIfEmpty(album.Genre), music.SearchKey(album.Title),
		formatTime(album.ModifiedDate), album.ID)
	if err != nil {
		return err
	}
	if err := checkAffected(res, "album", album.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM album_artists WHERE album_id = ?", album.ID); err != nil {
		return err
	}
	if err := insertAlbumArtists(ctx, tx, album); err != nil {
		return err
	}
	if err := replaceAttributes(ctx, tx, "album_attributes", "album_id", album.ID, album.Attributes); err != nil {
		return err
	}
	return tx.Commit()
}

func insertAlbumArtists(ctx context.Context, tx execer, album *music.Album) error {
	for _, ar := range album.Artists {
		role := ar.Role
		if role == "" {
			role = "main"
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO album_artists (album_id, artist_id, role) VALUES (?, ?, ?)
		`, album.ID, ar.Artist.ID, role); err != nil {
			return err
		}
	}
	return nil
}

func scanAlbum(row interface{ Scan(...any) error }) (*music.Album, error) {
	album := &music.Album{}
	var albumType, mbid, label, country, genre, added, modified sql.NullString
	if err := row.Scan(&album.ID, &album.Title, &albumType, &album.Year, &mbid, &label, &country, &genre, &added, &modified); err != nil {
		return nil, err
	}
	album.Type = music.AlbumType(albumType.String)
	album.MBID = mbid.String
	album.Label = label.String
	album.Country = country.String
	album.Genre = genre.String
	album.AddedDate = parseTime(added)
	album.ModifiedDate = parseTime(modified)
	return album, nil
}

func (d *SqliteLibrary) queryAlbums(ctx context.Context, query string, args ...any) ([]*music.Album, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var albums []*music.Album
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		albums = append(albums, album)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, album := range albums {
		if err := d.loadAlbumRelations(ctx, album); err != nil {
			return nil, err
		}
	}
	return albums, nil
}

func (d *SqliteLibrary) loadAlbumRelations(ctx context.Context, album *music.Album) error {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+artistColumns+`, aa.role
		FROM album_artists aa
		JOIN artists a ON aa.artist_id = a.id
		WHERE aa.album_id = ?
		ORDER BY CASE aa.role WHEN 'main' THEN 0 ELSE 1 END, a.name
	`, album.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	album.Artists = nil
	for rows.Next() {
		artist := &music.Artist{}
		var sortName, mbid, added sql.NullString
		var role string
		if err := rows.Scan(&artist.ID, &artist.Name, &sortName, &mbid, &artist.Followed, &added, &role); err != nil {
			return err
		}
		artist.SortName = sortName.String
		artist.MBID = mbid.String
		artist.AddedDate = parseTime(added)
		album.Artists = append(album.Artists, music.ArtistRole{Artist: artist, Role: role})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	album.Attributes, err = loadAttributes(ctx, d.db, "album_attributes", "album_id", album.ID)
	return err
}

// GetAlbum returns an album by ID, or nil if it does not exist.
func (d *SqliteLibrary) GetAlbum(ctx context.Context, id string) (*music.Album, error) {
	albums, err := d.queryAlbums(ctx, "SELECT "+albumColumns+" FROM albums al WHERE al.id = ?", id)
	if err != nil || len(albums) == 0 {
		return nil, err
	}
	return albums[0], nil
}

func (d *SqliteLibrary) GetAlbumsPaginated(ctx context.Context, limit, offset int) ([]*music.Album, error) {
	return d.queryAlbums(ctx, "SELECT "+albumColumns+" FROM albums al ORDER BY al.title_search, al.id LIMIT ? OFFSET ?", limit, offset)
}

func (d *SqliteLibrary) GetAlbumsCount(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM albums").Scan(&count)
	return count, err
}

// GetAlbumByArtistAndTitle matches the title case- and accent-insensitively.
func (d *SqliteLibrary) GetAlbumByArtistAndTitle(ctx context.Context, artistID, title string) (*music.Album, error) {
	albums, err := d.queryAlbums(ctx, `
		SELECT `+albumColumns+` FROM albums al
		JOIN album_artists aa ON al.id = aa.album_id
		WHERE aa.artist_id = ? AND al.title_search = ?
		LIMIT 1
	`, artistID, music.SearchKey(title))
	if err != nil || len(albums) == 0 {
		return nil, err
	}
	return albums[0], nil
}

func (d *SqliteLibrary) FindOrCreateAlbum(ctx context.Context, artist *music.Artist, albumTitle string, year int) (*music.Album, error) {
	albumTitle = strings.TrimSpace(albumTitle)
	if albumTitle == "" {
		return nil, fmt.Errorf("album title cannot be empty")
	}
	album, err := d.GetAlbumByArtistAndTitle(ctx, artist.ID, albumTitle)
	if err != nil {
		return nil, err
	}
	if album != nil {
		return album, nil
	}

	newAlbum := &music.Album{
		ID:    uuid.New().String(),
		Title: albumTitle,
		Type:  music.AlbumTypeDefault,
		Artists: []music.ArtistRole{
			{Artist: artist, Role: "main"},
		},
		Year: year,
	}
	if err := d.AddAlbum(ctx, newAlbum); err != nil {
		return nil, err
	}
	return newAlbum, nil
}
