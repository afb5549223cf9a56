package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/contre95/musicdex/src/music"
)

// Column is a column that must exist on a table. Definition is everything after the
// column name in an ALTER TABLE ... ADD COLUMN statement.
type Column struct {
	Name       string
	Definition string
}

// columnsByTable lists columns added after the first schema release. Databases created by
// older versions get them through EnsureColumns on startup.
var columnsByTable = map[string][]Column{
	"artists": {
		{Name: "mbid", Definition: "TEXT"},
		{Name: "followed", Definition: "INTEGER NOT NULL DEFAULT 0"},
		{Name: "name_search", Definition: "TEXT"},
	},
	"albums": {
		{Name: "mbid", Definition: "TEXT"},
		{Name: "genre", Definition: "TEXT"},
		{Name: "title_search", Definition: "TEXT"},
	},
	"songs": {
		{Name: "mbid", Definition: "TEXT"},
		{Name: "isrc", Definition: "TEXT"},
		{Name: "rating", Definition: "INTEGER NOT NULL DEFAULT 0"},
		{Name: "play_count", Definition: "INTEGER NOT NULL DEFAULT 0"},
		{Name: "last_played", Definition: "TEXT"},
		{Name: "title_search", Definition: "TEXT"},
		{Name: "genre_search", Definition: "TEXT"},
	},
	"scrobbles": {
		{Name: "mbid", Definition: "TEXT"},
		{Name: "source", Definition: "TEXT"},
	},
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableColumns returns the column names of table in declaration order.
func TableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// EnsureColumns adds every column in want that table does not have yet and returns the
// names it added. Running it twice is a no-op.
func EnsureColumns(ctx context.Context, db *sql.DB, table string, want []Column) ([]string, error) {
	existing, err := TableColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, fmt.Errorf("table %s does not exist", table)
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[c] = true
	}

	var added []string
	for _, col := range want {
		if have[col.Name] {
			continue
		}
		if !identifier.MatchString(col.Name) {
			return added, fmt.Errorf("invalid column name %q", col.Name)
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, col.Name, col.Definition)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return added, fmt.Errorf("failed to add column %s.%s: %w", table, col.Name, err)
		}
		have[col.Name] = true
		added = append(added, col.Name)
	}
	return added, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	for table, columns := range columnsByTable {
		if _, err := EnsureColumns(ctx, db, table, columns); err != nil {
			return err
		}
	}
	return nil
}

// backfillSearchKeys fills the *_search columns that are NULL, which happens for rows
// written before the columns existed. Folding happens in Go because SQLite has no unidecode.
func backfillSearchKeys(ctx context.Context, db *sql.DB) (int, error) {
	targets := []struct {
		table, source, target string
	}{
		{"artists", "name", "name_search"},
		{"albums", "title", "title_search"},
		{"songs", "title", "title_search"},
		{"songs", "genre", "genre_search"},
	}

	total := 0
	for _, t := range targets {
		rows, err := db.QueryContext(ctx, fmt.Sprintf(
			"SELECT id, COALESCE(%s, '') FROM %s WHERE %s IS NULL", t.source, t.table, t.target))
		if err != nil {
			return total, err
		}
		pending := map[string]string{}
		for rows.Next() {
			var id, value string
			if err := rows.Scan(&id, &value); err != nil {
				rows.Close()
				return total, err
			}
			pending[id] = value
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return total, err
		}
		if len(pending) == 0 {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return total, err
		}
		stmt := fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", t.table, t.target)
		for id, value := range pending {
			if _, err := tx.ExecContext(ctx, stmt, music.SearchKey(value), id); err != nil {
				tx.Rollback()
				return total, err
			}
		}
		if err := tx.Commit(); err != nil {
			return total, err
		}
		total += len(pending)
	}
	return total, nil
}
