package search

import (
	"strings"
)

const artistMatch = `EXISTS (SELECT 1 FROM song_artists sa JOIN artists ar ON ar.id = sa.artist_id
	WHERE sa.song_id = s.id AND ar.name_search LIKE ? ESCAPE '\')`

// Where returns a parameterised SQL condition for the query, with every term joined by AND.
// The condition expects songs aliased as s and their album LEFT JOINed as al.
// An empty query returns "" and no arguments.
func (q Query) Where() (string, []any) {
	var (
		conditions []string
		args       []any
	)
	for _, t := range q.Terms {
		cond, condArgs := t.condition()
		if t.Negate {
			cond = "NOT (" + cond + ")"
		}
		conditions = append(conditions, cond)
		args = append(args, condArgs...)
	}
	return strings.Join(conditions, " AND "), args
}

func (t Term) condition() (string, []any) {
	like := "%" + escapeLike(t.Value) + "%"
	switch t.Field {
	case FieldArtist:
		return artistMatch, []any{like}
	case FieldAlbum:
		return `COALESCE(al.title_search, '') LIKE ? ESCAPE '\'`, []any{like}
	case FieldTitle:
		return `s.title_search LIKE ? ESCAPE '\'`, []any{like}
	case FieldGenre:
		return `COALESCE(s.genre_search, '') LIKE ? ESCAPE '\'`, []any{like}
	case FieldMBID:
		return "(LOWER(COALESCE(s.mbid, '')) = ? OR LOWER(COALESCE(al.mbid, '')) = ?)", []any{t.Value, t.Value}
	case FieldYear:
		return rangeCondition("s.year", t.Range)
	case FieldRating:
		return rangeCondition("s.rating", t.Range)
	default:
		return `(s.title_search LIKE ? ESCAPE '\' OR COALESCE(al.title_search, '') LIKE ? ESCAPE '\' OR ` + artistMatch + `)`,
			[]any{like, like, like}
	}
}

func rangeCondition(column string, r Range) (string, []any) {
	switch {
	case r.HasMin && r.HasMax && r.Min == r.Max:
		return column + " = ?", []any{r.Min}
	case r.HasMin && r.HasMax:
		return "(" + column + " BETWEEN ? AND ?)", []any{r.Min, r.Max}
	case r.HasMin:
		return column + " >= ?", []any{r.Min}
	default:
		return column + " <= ?", []any{r.Max}
	}
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
