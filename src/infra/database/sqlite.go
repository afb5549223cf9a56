package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/contre95/musicdex/src/features/metrics"
	"github.com/contre95/musicdex/src/music"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by updates and deletes that match no row.
var ErrNotFound = errors.New("not found")

// SqliteLibrary is a SQLite implementation of the music repositories.
type SqliteLibrary struct {
	db *sql.DB
}

var (
	_ music.Library            = (*SqliteLibrary)(nil)
	_ music.ScrobbleStore      = (*SqliteLibrary)(nil)
	_ music.ConcertStore       = (*SqliteLibrary)(nil)
	_ music.PlaylistRepository = (*SqliteLibrary)(nil)
	_ metrics.LibraryMetrics   = (*SqliteLibrary)(nil)
)

// NewSqliteLibrary opens (or creates) the database at path and brings its schema up to date.
func NewSqliteLibrary(path string) (*SqliteLibrary, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	ctx := context.Background()
	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	if err := createIndexes(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	if n, err := backfillSearchKeys(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to backfill search keys: %w", err)
	} else if n > 0 {
		slog.Info("Backfilled search keys", "rows", n)
	}

	return &SqliteLibrary{db: db}, nil
}

// Close closes the underlying database.
func (d *SqliteLibrary) Close() error {
	return d.db.Close()
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS artists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			sort_name TEXT,
			mbid TEXT,
			followed INTEGER NOT NULL DEFAULT 0,
			name_search TEXT,
			added_date TEXT
		);

		CREATE TABLE IF NOT EXISTS artist_attributes (
			id INTEGER PRIMARY KEY,
			artist_id TEXT,
			key TEXT NOT NULL,
			value TEXT,
			UNIQUE(artist_id, key) ON CONFLICT REPLACE,
			FOREIGN KEY (artist_id) REFERENCES artists(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS albums (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			type TEXT,
			year INTEGER NOT NULL DEFAULT 0,
			mbid TEXT,
			label TEXT,
			country TEXT,
			genre TEXT,
			title_search TEXT,
			added_date TEXT,
			modified_date TEXT
		);

		CREATE TABLE IF NOT EXISTS album_artists (
			album_id TEXT,
			artist_id TEXT,
			role TEXT,
			PRIMARY KEY (album_id, artist_id, role),
			FOREIGN KEY (album_id) REFERENCES albums(id) ON DELETE CASCADE,
			FOREIGN KEY (artist_id) REFERENCES artists(id)
		);

		CREATE TABLE IF NOT EXISTS album_attributes (
			id INTEGER PRIMARY KEY,
			album_id TEXT,
			key TEXT NOT NULL,
			value TEXT,
			UNIQUE(album_id, key) ON CONFLICT REPLACE,
			FOREIGN KEY (album_id) REFERENCES albums(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS songs (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			album_id TEXT REFERENCES albums(id),
			genre TEXT,
			year INTEGER NOT NULL DEFAULT 0,
			duration INTEGER NOT NULL DEFAULT 0,
			track_number INTEGER NOT NULL DEFAULT 0,
			disc_number INTEGER NOT NULL DEFAULT 0,
			bpm REAL NOT NULL DEFAULT 0,
			mbid TEXT,
			isrc TEXT,
			format TEXT,
			bitrate INTEGER NOT NULL DEFAULT 0,
			rating INTEGER NOT NULL DEFAULT 0,
			play_count INTEGER NOT NULL DEFAULT 0,
			last_played TEXT,
			title_search TEXT,
			genre_search TEXT,
			added_date TEXT,
			modified_date TEXT
		);

		CREATE TABLE IF NOT EXISTS song_artists (
			song_id TEXT,
			artist_id TEXT,
			role TEXT,
			PRIMARY KEY (song_id, artist_id, role),
			FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE,
			FOREIGN KEY (artist_id) REFERENCES artists(id)
		);

		CREATE TABLE IF NOT EXISTS song_attributes (
			id INTEGER PRIMARY KEY,
			song_id TEXT,
			key TEXT NOT NULL,
			value TEXT,
			UNIQUE(song_id, key) ON CONFLICT REPLACE,
			FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS song_links (
			id INTEGER PRIMARY KEY,
			song_id TEXT NOT NULL,
			service TEXT NOT NULL,
			url TEXT NOT NULL,
			UNIQUE(song_id, service) ON CONFLICT REPLACE,
			FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS scrobbles (
			id INTEGER PRIMARY KEY,
			song_id TEXT REFERENCES songs(id) ON DELETE SET NULL,
			artist TEXT NOT NULL,
			album TEXT,
			title TEXT NOT NULL,
			mbid TEXT,
			scrobbled_at TEXT NOT NULL,
			source TEXT,
			UNIQUE(scrobbled_at, artist, title)
		);

		CREATE TABLE IF NOT EXISTS concerts (
			id TEXT PRIMARY KEY,
			artist_id TEXT REFERENCES artists(id) ON DELETE CASCADE,
			artist_name TEXT NOT NULL,
			name TEXT,
			venue TEXT,
			city TEXT,
			country TEXT,
			starts_at TEXT NOT NULL,
			url TEXT,
			source TEXT,
			updated_at TEXT
		);

		CREATE TABLE IF NOT EXISTS playlists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			created_date TEXT,
			modified_date TEXT
		);

		CREATE TABLE IF NOT EXISTS playlist_songs (
			playlist_id TEXT NOT NULL,
			song_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (playlist_id, song_id),
			FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
			FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS library_metrics (
			id INTEGER PRIMARY KEY,
			metric_type TEXT NOT NULL,
			metric_key TEXT,
			metric_value INTEGER,
			updated_at TEXT,
			UNIQUE(metric_type, metric_key)
		);
	`)
	return err
}

// createIndexes runs after migrate so that indexes on added columns never fail on old databases.
func createIndexes(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_song_artists_song ON song_artists(song_id);
		CREATE INDEX IF NOT EXISTS idx_song_artists_artist ON song_artists(artist_id);
		CREATE INDEX IF NOT EXISTS idx_album_artists_album ON album_artists(album_id);
		CREATE INDEX IF NOT EXISTS idx_album_artists_artist ON album_artists(artist_id);
		CREATE INDEX IF NOT EXISTS idx_song_attributes_song ON song_attributes(song_id);
		CREATE INDEX IF NOT EXISTS idx_album_attributes_album ON album_attributes(album_id);
		CREATE INDEX IF NOT EXISTS idx_artist_attributes_artist ON artist_attributes(artist_id);
		CREATE INDEX IF NOT EXISTS idx_song_links_song ON song_links(song_id);
		CREATE INDEX IF NOT EXISTS idx_songs_album ON songs(album_id);
		CREATE INDEX IF NOT EXISTS idx_songs_title_search ON songs(title_search);
		CREATE INDEX IF NOT EXISTS idx_artists_name_search ON artists(name_search);
		CREATE INDEX IF NOT EXISTS idx_scrobbles_scrobbled_at ON scrobbles(scrobbled_at);
		CREATE INDEX IF NOT EXISTS idx_concerts_starts_at ON concerts(starts_at);
	`)
	return err
}

// formatTime stores times as RFC3339 in UTC so that text ordering matches time ordering.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullIfEmpty maps "" to SQL NULL.
func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// replaceAttributes rewrites the key/value attributes of a row in one of the *_attributes tables.
func replaceAttributes(ctx context.Context, tx execer, table, ownerColumn, ownerID string, attrs map[string]string) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, ownerColumn), ownerID); err != nil {
		return err
	}
	for key, value := range attrs {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (%s, key, value) VALUES (?, ?, ?)", table, ownerColumn), ownerID, key, value); err != nil {
			return err
		}
	}
	return nil
}

func loadAttributes(ctx context.Context, q querier, table, ownerColumn, ownerID string) (map[string]string, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT key, value FROM %s WHERE %s = ?", table, ownerColumn), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attrs := make(map[string]string)
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		attrs[key] = value.String
	}
	return attrs, rows.Err()
}

func checkAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
