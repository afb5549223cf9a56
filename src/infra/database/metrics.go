package database

import (
	"context"
	"fmt"

	"github.com/contre95/musicdex/src/features/metrics"
)

func (d *SqliteLibrary) distribution(ctx context.Context, query string) (map[string]int, error) {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	distribution := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		distribution[key] = count
	}
	return distribution, rows.Err()
}

// GetGenreDistribution returns the number of songs per genre.
func (d *SqliteLibrary) GetGenreDistribution(ctx context.Context) (map[string]int, error) {
	return d.distribution(ctx, `
		SELECT COALESCE(NULLIF(genre, ''), 'Unknown') AS g, COUNT(*)
		FROM songs
		GROUP BY g
	`)
}

// GetFormatDistribution returns the number of songs per audio format.
func (d *SqliteLibrary) GetFormatDistribution(ctx context.Context) (map[string]int, error) {
	return d.distribution(ctx, `
		SELECT COALESCE(NULLIF(LOWER(format), ''), 'unknown') AS f, COUNT(*)
		FROM songs
		GROUP BY f
	`)
}

// GetYearDistribution returns the number of songs per decade, keyed like "1990s".
func (d *SqliteLibrary) GetYearDistribution(ctx context.Context) (map[string]int, error) {
	byDecade, err := d.distribution(ctx, `
		SELECT CAST((year / 10) * 10 AS TEXT), COUNT(*)
		FROM songs
		WHERE year > 0
		GROUP BY year / 10
	`)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(byDecade))
	for decade, count := range byDecade {
		out[fmt.Sprintf("%ss", decade)] = count
	}
	return out, nil
}

// GetMetadataCompleteness counts songs with full metadata and songs missing each field.
func (d *SqliteLibrary) GetMetadataCompleteness(ctx context.Context) (metrics.MetadataCompletenessStats, error) {
	var stats metrics.MetadataCompletenessStats
	err := d.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN s.album_id IS NOT NULL
				AND COALESCE(s.genre, '') != '' AND s.year > 0 AND COALESCE(s.mbid, '') != ''
				AND EXISTS (SELECT 1 FROM song_artists sa WHERE sa.song_id = s.id) THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN COALESCE(s.mbid, '') = '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN COALESCE(s.genre, '') = '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN s.year = 0 THEN 1 ELSE 0 END), 0)
		FROM songs s
	`).Scan(&stats.Complete, &stats.MissingMBID, &stats.MissingGenre, &stats.MissingYear)
	return stats, err
}

func (d *SqliteLibrary) count(ctx context.Context, table string) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
	return count, err
}

func (d *SqliteLibrary) GetTotalSongs(ctx context.Context) (int, error) {
	return d.count(ctx, "songs")
}

func (d *SqliteLibrary) GetTotalArtists(ctx context.Context) (int, error) {
	return d.count(ctx, "artists")
}

func (d *SqliteLibrary) GetTotalAlbums(ctx context.Context) (int, error) {
	return d.count(ctx, "albums")
}

func (d *SqliteLibrary) GetTotalScrobbles(ctx context.Context) (int, error) {
	return d.count(ctx, "scrobbles")
}

// StoreMetric stores a metric in the database.
func (d *SqliteLibrary) StoreMetric(ctx context.Context, metricType, key string, value int) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO library_metrics (metric_type, metric_key, metric_value, updated_at)
		VALUES (?, ?, ?, datetime('now'))
	`, metricType, key, value)
	return err
}

// GetStoredMetrics retrieves stored metrics of a specific type.
func (d *SqliteLibrary) GetStoredMetrics(ctx context.Context, metricType string) ([]metrics.StoredMetric, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT metric_key, metric_value
		FROM library_metrics
		WHERE metric_type = ?
		ORDER BY metric_value DESC
	`, metricType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stored []metrics.StoredMetric
	for rows.Next() {
		m := metrics.StoredMetric{Type: metricType}
		if err := rows.Scan(&m.Key, &m.Value); err != nil {
			return nil, err
		}
		stored = append(stored, m)
	}
	return stored, rows.Err()
}

// ClearStoredMetrics removes all stored metrics.
func (d *SqliteLibrary) ClearStoredMetrics(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, "DELETE FROM library_metrics")
	return err
}
