package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/contre95/musicdex/src/music"
)

// CreatePlaylist stores a playlist and its songs in order.
func (d *SqliteLibrary) CreatePlaylist(ctx context.Context, playlist *music.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return err
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO playlists (id, name, description, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?)
	`, playlist.ID, playlist.Name, nullIfEmpty(playlist.Description), formatTime(playlist.CreatedDate), formatTime(playlist.ModifiedDate))
	if err != nil {
		return err
	}
	for i, song := range playlist.Songs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO playlist_songs (playlist_id, song_id, position) VALUES (?, ?, ?)
		`, playlist.ID, song.ID, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetPlaylist returns a playlist with its songs, or nil if it does not exist.
func (d *SqliteLibrary) GetPlaylist(ctx context.Context, id string) (*music.Playlist, error) {
	playlist := &music.Playlist{}
	var description, created, modified sql.NullString
	err := d.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_date, modified_date FROM playlists WHERE id = ?
	`, id).Scan(&playlist.ID, &playlist.Name, &description, &created, &modified)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	playlist.Description = description.String
	playlist.CreatedDate = parseTime(created)
	playlist.ModifiedDate = parseTime(modified)

	if playlist.Songs, err = d.GetPlaylistSongs(ctx, id); err != nil {
		return nil, err
	}
	return playlist, nil
}

// GetPlaylists returns every playlist without its songs.
func (d *SqliteLibrary) GetPlaylists(ctx context.Context) ([]*music.Playlist, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT id, name, description, created_date, modified_date FROM playlists ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []*music.Playlist
	for rows.Next() {
		p := &music.Playlist{}
		var description, created, modified sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &description, &created, &modified); err != nil {
			return nil, err
		}
		p.Description = description.String
		p.CreatedDate = parseTime(created)
		p.ModifiedDate = parseTime(modified)
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// UpdatePlaylist updates the name and description of a playlist.
func (d *SqliteLibrary) UpdatePlaylist(ctx context.Context, playlist *music.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx, `
		UPDATE playlists SET name = ?, description = ?, modified_date = ? WHERE id = ?
	`, playlist.Name, nullIfEmpty(playlist.Description), formatTime(playlist.ModifiedDate), playlist.ID)
	if err != nil {
		return err
	}
	return checkAffected(res, "playlist", playlist.ID)
}

func (d *SqliteLibrary) DeletePlaylist(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return err
	}
	return checkAffected(res, "playlist", id)
}

// AddSongToPlaylist appends a song at the end of a playlist. Adding a song twice is a no-op.
func (d *SqliteLibrary) AddSongToPlaylist(ctx context.Context, playlistID, songID string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO playlist_songs (playlist_id, song_id, position)
		SELECT ?, ?, COALESCE(MAX(position) + 1, 0) FROM playlist_songs WHERE playlist_id = ?
	`, playlistID, songID, playlistID)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE playlists SET modified_date = ? WHERE id = ?", formatTime(time.Now()), playlistID); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *SqliteLibrary) RemoveSongFromPlaylist(ctx context.Context, playlistID, songID string) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?", playlistID, songID)
	if err != nil {
		return err
	}
	return checkAffected(res, "playlist song", songID)
}

// GetPlaylistSongs returns the songs of a playlist in playlist order.
func (d *SqliteLibrary) GetPlaylistSongs(ctx context.Context, playlistID string) ([]*music.Song, error) {
	return d.querySongs(ctx, "SELECT "+songColumns+songFrom+`
		JOIN playlist_songs ps ON ps.song_id = s.id
		WHERE ps.playlist_id = ?
		ORDER BY ps.position
	`, playlistID)
}
