package database

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/contre95/musicdex/src/music"
)

// AddScrobbles inserts scrobbles in one transaction and returns how many were new.
// A scrobble with the same timestamp, artist and title as a stored one is skipped.
func (d *SqliteLibrary) AddScrobbles(ctx context.Context, scrobbles []*music.Scrobble) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO scrobbles (song_id, artist, album, title, mbid, scrobbled_at, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	added := 0
	for _, s := range scrobbles {
		if err := s.Validate(); err != nil {
			slog.Warn("Skipping invalid scrobble", "error", err)
			continue
		}
		res, err := stmt.ExecContext(ctx, nullIfEmpty(s.SongID), s.Artist, nullIfEmpty(s.Album), s.Title,
			nullIfEmpty(s.MBID), formatTime(s.ScrobbledAt), nullIfEmpty(s.Source))
		if err != nil {
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			id, _ := res.LastInsertId()
			s.ID = id
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

// LatestScrobbleTime returns the newest stored scrobble time, or the zero time when there is none.
func (d *SqliteLibrary) LatestScrobbleTime(ctx context.Context) (time.Time, error) {
	var latest sql.NullString
	if err := d.db.QueryRowContext(ctx, "SELECT MAX(scrobbled_at) FROM scrobbles").Scan(&latest); err != nil {
		return time.Time{}, err
	}
	return parseTime(latest), nil
}

// GetScrobbles returns scrobbles newest first.
func (d *SqliteLibrary) GetScrobbles(ctx context.Context, limit, offset int) ([]*music.Scrobble, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, song_id, artist, album, title, mbid, scrobbled_at, source
		FROM scrobbles
		ORDER BY scrobbled_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scrobbles []*music.Scrobble
	for rows.Next() {
		s := &music.Scrobble{}
		var songID, album, mbid, at, source sql.NullString
		if err := rows.Scan(&s.ID, &songID, &s.Artist, &album, &s.Title, &mbid, &at, &source); err != nil {
			return nil, err
		}
		s.SongID = songID.String
		s.Album = album.String
		s.MBID = mbid.String
		s.ScrobbledAt = parseTime(at)
		s.Source = source.String
		scrobbles = append(scrobbles, s)
	}
	return scrobbles, rows.Err()
}

func (d *SqliteLibrary) GetScrobblesCount(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scrobbles").Scan(&count)
	return count, err
}

// TopArtists returns the most scrobbled artists since the given time. A zero since means all time.
func (d *SqliteLibrary) TopArtists(ctx context.Context, since time.Time, limit int) ([]music.ArtistPlays, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT artist, COUNT(*) AS plays
		FROM scrobbles
		WHERE scrobbled_at >= ?
		GROUP BY artist
		ORDER BY plays DESC, artist
		LIMIT ?
	`, formatTime(since), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var top []music.ArtistPlays
	for rows.Next() {
		var ap music.ArtistPlays
		if err := rows.Scan(&ap.Artist, &ap.Plays); err != nil {
			return nil, err
		}
		top = append(top, ap)
	}
	return top, rows.Err()
}
