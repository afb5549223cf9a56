package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/contre95/musicdex/src/music"
)

// UpsertConcert inserts a concert or refreshes the stored copy of the same event.
func (d *SqliteLibrary) UpsertConcert(ctx context.Context, c *music.Concert) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO concerts (id, artist_id, artist_name, name, venue, city, country, starts_at, url, source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			artist_id = excluded.artist_id,
			artist_name = excluded.artist_name,
			name = excluded.name,
			venue = excluded.venue,
			city = excluded.city,
			country = excluded.country,
			starts_at = excluded.starts_at,
			url = excluded.url,
			source = excluded.source,
			updated_at = excluded.updated_at
	`, c.ID, nullIfEmpty(c.ArtistID), c.ArtistName, nullIfEmpty(c.Name), nullIfEmpty(c.Venue), nullIfEmpty(c.City),
		nullIfEmpty(c.Country), formatTime(c.StartsAt), nullIfEmpty(c.URL), nullIfEmpty(c.Source), formatTime(c.UpdatedAt))
	return err
}

// GetUpcomingConcerts returns concerts starting at or after from, soonest first.
// An empty artistID returns concerts for every artist.
func (d *SqliteLibrary) GetUpcomingConcerts(ctx context.Context, from time.Time, artistID string) ([]*music.Concert, error) {
	query := `
		SELECT id, artist_id, artist_name, name, venue, city, country, starts_at, url, source, updated_at
		FROM concerts
		WHERE starts_at >= ?`
	args := []any{formatTime(from)}
	if artistID != "" {
		query += " AND artist_id = ?"
		args = append(args, artistID)
	}
	query += " ORDER BY starts_at, artist_name"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var concerts []*music.Concert
	for rows.Next() {
		c := &music.Concert{}
		var artist, name, venue, city, country, starts, url, source, updated sql.NullString
		if err := rows.Scan(&c.ID, &artist, &c.ArtistName, &name, &venue, &city, &country, &starts, &url, &source, &updated); err != nil {
			return nil, err
		}
		c.ArtistID = artist.String
		c.Name = name.String
		c.Venue = venue.String
		c.City = city.String
		c.Country = country.String
		c.StartsAt = parseTime(starts)
		c.URL = url.String
		c.Source = source.String
		c.UpdatedAt = parseTime(updated)
		concerts = append(concerts, c)
	}
	return concerts, rows.Err()
}

// DeleteConcertsBefore removes concerts that started before the given time.
func (d *SqliteLibrary) DeleteConcertsBefore(ctx context.Context, before time.Time) (int, error) {
	res, err := d.db.ExecContext(ctx, "DELETE FROM concerts WHERE starts_at < ?", formatTime(before))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
