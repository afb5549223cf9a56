package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/contre95/musicdex/src/music"
)

const songColumns = `s.id, s.path, s.title, s.album_id, s.genre, s.year, s.duration, s.track_number, s.disc_number,
	s.bpm, s.mbid, s.isrc, s.format, s.bitrate, s.rating, s.play_count, s.last_played, s.added_date, s.modified_date`

// songFrom is the FROM clause every song query shares. Search fragments rely on the aliases.
const songFrom = " FROM songs s LEFT JOIN albums al ON al.id = s.album_id "

// AddSong adds a song. Its artists and album must already exist.
func (d *SqliteLibrary) AddSong(ctx context.Context, song *music.Song) error {
	if err := song.Validate(); err != nil {
		slog.Error("AddSong: validation failed", "error", err, "songID", song.ID)
		return err
	}
	if song.ID == "" {
		song.ID = music.GenerateSongID(song.Path)
	}
	now := time.Now()
	if song.AddedDate.IsZero() {
		song.AddedDate = now
	}
	song.ModifiedDate = now

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO songs (id, path, title, album_id, genre, year, duration, track_number, disc_number, bpm,
			mbid, isrc, format, bitrate, rating, play_count, last_played, title_search, genre_search,
			added_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, song.ID, song.Path, song.Title, albumID(song), nullIfEmpty(song.Metadata.Genre), song.Metadata.Year,
		song.Metadata.Duration, song.Metadata.TrackNumber, song.Metadata.DiscNumber, song.Metadata.BPM,
		nullIfEmpty(song.MBID), nullIfEmpty(song.ISRC), nullIfEmpty(song.Format), song.Bitrate, song.Rating,
		song.PlayCount, nullIfEmpty(formatTime(song.LastPlayed)), music.SearchKey(song.Title),
		music.SearchKey(song.Metadata.Genre), formatTime(song.AddedDate), formatTime(song.ModifiedDate))
	if err != nil {
		return err
	}
	if err := insertSongArtists(ctx, tx, song); err != nil {
		return err
	}
	if err := replaceAttributes(ctx, tx, "song_attributes", "song_id", song.ID, song.Attributes); err != nil {
		return err
	}
	for _, link := range song.Links {
		if _, err := tx.ExecContext(ctx, "INSERT INTO song_links (song_id, service, url) VALUES (?, ?, ?)",
			song.ID, link.Service, link.URL); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateSong updates a song, replacing its artist credits and attributes. Links are left as they are.
func (d *SqliteLibrary) UpdateSong(ctx context.Context, song *music.Song) error {
	if err := song.Validate(); err != nil {
		slog.Error("UpdateSong: validation failed", "error", err, "songID", song.ID)
		return err
	}
	song.ModifiedDate = time.Now()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE songs SET path = ?, title = ?, album_id = ?, genre = ?, year = ?, duration = ?, track_number = ?,
			disc_number = ?, bpm = ?, mbid = ?, isrc = ?, format = ?, bitrate = ?, rating = ?, play_count = ?,
			last_played = ?, title_search = ?, genre_search = ?, modified_date = ?
		WHERE id = ?
	`, song.Path, song.Title, albumID(song), nullIfEmpty(song.Metadata.Genre), song.Metadata.Year,
		song.Metadata.Duration, song.Metadata.TrackNumber, song.Metadata.DiscNumber, song.Metadata.BPM,
		nullIfEmpty(song.MBID), nullIfEmpty(song.ISRC), nullIfEmpty(song.Format), song.Bitrate, song.Rating,
		song.PlayCount, nullIfEmpty(formatTime(song.LastPlayed)), music.SearchKey(song.Title),
		music.SearchKey(song.Metadata.Genre), formatTime(song.ModifiedDate), song.ID)
	if err != nil {
		return err
	}
	if err := checkAffected(res, "song", song.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM song_artists WHERE song_id = ?", song.ID); err != nil {
		return err
	}
	if err := insertSongArtists(ctx, tx, song); err != nil {
		return err
	}
	if err := replaceAttributes(ctx, tx, "song_attributes", "song_id", song.ID, song.Attributes); err != nil {
		return err
	}
	return tx.Commit()
}

func albumID(song *music.Song) any {
	if song.Album == nil || song.Album.ID == "" {
		return nil
	}
	return song.Album.ID
}

func insertSongArtists(ctx context.Context, tx execer, song *music.Song) error {
	for _, ar := range song.Artists {
		if ar.Artist.ID == "" {
			return fmt.Errorf("artist %q has no ID", ar.Artist.Name)
		}
		role := ar.Role
		if role == "" {
			role = "main"
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO song_artists (song_id, artist_id, role) VALUES (?, ?, ?)
		`, song.ID, ar.Artist.ID, role); err != nil {
			return err
		}
	}
	return nil
}

// DeleteSong removes a song. Links, attributes, credits and playlist entries go with it.
func (d *SqliteLibrary) DeleteSong(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM songs WHERE id = ?", id)
	if err != nil {
		return err
	}
	return checkAffected(res, "song", id)
}

// querySongs runs a query selecting songColumns and loads artists, album, attributes and links.
func (d *SqliteLibrary) querySongs(ctx context.Context, query string, args ...any) ([]*music.Song, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var songs []*music.Song
	albumIDs := map[*music.Song]string{}
	for rows.Next() {
		song := &music.Song{}
		var album, genre, mbid, isrc, format, lastPlayed, added, modified sql.NullString
		err := rows.Scan(&song.ID, &song.Path, &song.Title, &album, &genre, &song.Metadata.Year,
			&song.Metadata.Duration, &song.Metadata.TrackNumber, &song.Metadata.DiscNumber, &song.Metadata.BPM,
			&mbid, &isrc, &format, &song.Bitrate, &song.Rating, &song.PlayCount, &lastPlayed, &added, &modified)
		if err != nil {
			rows.Close()
			return nil, err
		}
		song.Metadata.Genre = genre.String
		song.MBID = mbid.String
		song.ISRC = isrc.String
		song.Format = format.String
		song.LastPlayed = parseTime(lastPlayed)
		song.AddedDate = parseTime(added)
		song.ModifiedDate = parseTime(modified)
		if album.Valid {
			albumIDs[song] = album.String
		}
		songs = append(songs, song)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	albums := map[string]*music.Album{}
	for _, song := range songs {
		if id, ok := albumIDs[song]; ok {
			album, cached := albums[id]
			if !cached {
				if album, err = d.GetAlbum(ctx, id); err != nil {
					return nil, err
				}
				albums[id] = album
			}
			song.Album = album
		}
		if err := d.loadSongRelations(ctx, song); err != nil {
			return nil, err
		}
	}
	return songs, nil
}

func (d *SqliteLibrary) loadSongRelations(ctx context.Context, song *music.Song) error {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+artistColumns+`, sa.role
		FROM song_artists sa
		JOIN artists a ON sa.artist_id = a.id
		WHERE sa.song_id = ?
		ORDER BY CASE sa.role WHEN 'main' THEN 0 ELSE 1 END, a.name
	`, song.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		artist := &music.Artist{}
		var sortName, mbid, added sql.NullString
		var role string
		if err := rows.Scan(&artist.ID, &artist.Name, &sortName, &mbid, &artist.Followed, &added, &role); err != nil {
			rows.Close()
			return err
		}
		artist.SortName = sortName.String
		artist.MBID = mbid.String
		artist.AddedDate = parseTime(added)
		song.Artists = append(song.Artists, music.ArtistRole{Artist: artist, Role: role})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if song.Attributes, err = loadAttributes(ctx, d.db, "song_attributes", "song_id", song.ID); err != nil {
		return err
	}
	song.Links, err = d.GetSongLinks(ctx, song.ID)
	return err
}

func (d *SqliteLibrary) querySong(ctx context.Context, query string, args ...any) (*music.Song, error) {
	songs, err := d.querySongs(ctx, query, args...)
	if err != nil || len(songs) == 0 {
		return nil, err
	}
	return songs[0], nil
}

// GetSong returns a song by ID, or nil if it does not exist.
func (d *SqliteLibrary) GetSong(ctx context.Context, id string) (*music.Song, error) {
	return d.querySong(ctx, "SELECT "+songColumns+songFrom+"WHERE s.id = ?", id)
}

func (d *SqliteLibrary) FindSongByPath(ctx context.Context, path string) (*music.Song, error) {
	return d.querySong(ctx, "SELECT "+songColumns+songFrom+"WHERE s.path = ?", path)
}

// FindSongByArtistAndTitle matches on folded search keys, so case and accents are ignored.
func (d *SqliteLibrary) FindSongByArtistAndTitle(ctx context.Context, artistName, title string) (*music.Song, error) {
	return d.querySong(ctx, "SELECT "+songColumns+songFrom+`
		WHERE s.title_search = ?
			AND EXISTS (
				SELECT 1 FROM song_artists sa JOIN artists ar ON ar.id = sa.artist_id
				WHERE sa.song_id = s.id AND ar.name_search = ?
			)
		ORDER BY s.added_date
		LIMIT 1
	`, music.SearchKey(title), music.SearchKey(artistName))
}

func (d *SqliteLibrary) GetSongsPaginated(ctx context.Context, limit, offset int) ([]*music.Song, error) {
	return d.querySongs(ctx, "SELECT "+songColumns+songFrom+"ORDER BY s.title_search, s.id LIMIT ? OFFSET ?", limit, offset)
}

func (d *SqliteLibrary) GetSongsCount(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM songs").Scan(&count)
	return count, err
}

// GetSongsWithoutMBID returns songs that were never matched on MusicBrainz, oldest first.
func (d *SqliteLibrary) GetSongsWithoutMBID(ctx context.Context, limit, offset int) ([]*music.Song, error) {
	return d.querySongs(ctx, "SELECT "+songColumns+songFrom+`
		WHERE s.mbid IS NULL OR s.mbid = ''
		ORDER BY s.added_date, s.id
		LIMIT ? OFFSET ?
	`, limit, offset)
}

// SearchSongs filters songs with a WHERE fragment built by the search parser. An empty
// fragment matches every song.
func (d *SqliteLibrary) SearchSongs(ctx context.Context, where string, args []any, limit, offset int) ([]*music.Song, error) {
	query := "SELECT " + songColumns + songFrom + whereClause(where) + " ORDER BY s.title_search, s.id LIMIT ? OFFSET ?"
	return d.querySongs(ctx, query, append(append([]any{}, args...), limit, offset)...)
}

func (d *SqliteLibrary) CountSearchSongs(ctx context.Context, where string, args []any) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*)"+songFrom+whereClause(where), args...).Scan(&count)
	return count, err
}

func whereClause(where string) string {
	if strings.TrimSpace(where) == "" {
		return ""
	}
	return "WHERE " + where
}

// AddSongLink stores a link, replacing any previous link to the same service.
func (d *SqliteLibrary) AddSongLink(ctx context.Context, link music.SongLink) error {
	if link.SongID == "" || link.Service == "" || link.URL == "" {
		return fmt.Errorf("song link needs song id, service and url")
	}
	_, err := d.db.ExecContext(ctx, "INSERT INTO song_links (song_id, service, url) VALUES (?, ?, ?)",
		link.SongID, link.Service, link.URL)
	return err
}

func (d *SqliteLibrary) GetSongLinks(ctx context.Context, songID string) ([]music.SongLink, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT song_id, service, url FROM song_links WHERE song_id = ? ORDER BY service", songID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []music.SongLink
	for rows.Next() {
		var link music.SongLink
		if err := rows.Scan(&link.SongID, &link.Service, &link.URL); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}
