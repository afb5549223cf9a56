// Package search turns the library search box syntax into SQL filters.
//
// A query is a list of whitespace separated terms that must all match:
//
//	a:bjork al:"homo genic" y:1990-1999 -g:pop r:>=8 hunter
//
// Prefixed terms filter one field, bare terms match the title, the album or any
// artist. A leading '-' negates a term and double quotes group words.
package search

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/contre95/musicdex/src/music"
)

var (
	ErrInvalidYear   = errors.New("invalid year filter")
	ErrInvalidRating = errors.New("invalid rating filter")
	ErrUnclosedQuote = errors.New("unclosed quote")
)

// Field is the column a term filters on.
type Field string

const (
	FieldAny    Field = ""
	FieldArtist Field = "artist"
	FieldAlbum  Field = "album"
	FieldTitle  Field = "title"
	FieldGenre  Field = "genre"
	FieldYear   Field = "year"
	FieldMBID   Field = "mbid"
	FieldRating Field = "rating"
)

var prefixes = map[string]Field{
	"a":      FieldArtist,
	"artist": FieldArtist,
	"al":     FieldAlbum,
	"album":  FieldAlbum,
	"t":      FieldTitle,
	"title":  FieldTitle,
	"g":      FieldGenre,
	"genre":  FieldGenre,
	"y":      FieldYear,
	"year":   FieldYear,
	"mbid":   FieldMBID,
	"r":      FieldRating,
	"rating": FieldRating,
}

// shortPrefix is used when rendering a query back to text.
var shortPrefix = map[Field]string{
	FieldArtist: "a",
	FieldAlbum:  "al",
	FieldTitle:  "t",
	FieldGenre:  "g",
	FieldYear:   "y",
	FieldMBID:   "mbid",
	FieldRating: "r",
}

// Range is an inclusive numeric interval. A side without HasMin or HasMax is unbounded.
type Range struct {
	Min, Max int
	HasMin   bool
	HasMax   bool
}

// Term is one parsed filter.
type Term struct {
	Field  Field
	Value  string // folded with music.SearchKey for text fields
	Range  Range  // numeric fields only
	Negate bool
	Quoted bool
}

// Query is a parsed search. The zero value matches everything.
type Query struct {
	Terms []Term
}

// IsEmpty reports whether the query has no terms.
func (q Query) IsEmpty() bool {
	return len(q.Terms) == 0
}

// Parse parses input into a Query.
func Parse(input string) (Query, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return Query{}, err
	}

	var q Query
	for _, tok := range tokens {
		term, ok, err := parseToken(tok)
		if err != nil {
			return Query{}, err
		}
		if ok {
			q.Terms = append(q.Terms, term)
		}
	}
	return q, nil
}

type token struct {
	text   string
	quoted bool
}

// tokenize splits on whitespace outside double quotes. Quotes are removed and may start
// mid-token, so al:"homo genic" is a single token.
func tokenize(input string) ([]token, error) {
	var (
		tokens  []token
		current strings.Builder
		inQuote bool
		quoted  bool
	)
	flush := func() {
		if current.Len() > 0 || quoted {
			tokens = append(tokens, token{text: current.String(), quoted: quoted})
		}
		current.Reset()
		quoted = false
	}
	for _, r := range input {
		switch {
		case r == '"':
			inQuote = !inQuote
			quoted = true
		case !inQuote && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	if inQuote {
		return nil, ErrUnclosedQuote
	}
	flush()
	return tokens, nil
}

func parseToken(tok token) (Term, bool, error) {
	text := tok.text
	term := Term{Quoted: tok.quoted}

	if strings.HasPrefix(text, "-") && len(text) > 1 {
		term.Negate = true
		text = text[1:]
	}

	if i := strings.IndexByte(text, ':'); i > 0 {
		if field, known := prefixes[strings.ToLower(text[:i])]; known {
			term.Field = field
			text = text[i+1:]
		}
	}

	switch term.Field {
	case FieldYear:
		r, err := parseRange(text)
		if err != nil {
			return Term{}, false, fmt.Errorf("%w: %q", ErrInvalidYear, text)
		}
		term.Range = r
		term.Value = text
		return term, true, nil
	case FieldRating:
		r, err := parseRange(text)
		if err != nil || (r.HasMin && r.Min > music.MaxRating) || (r.HasMax && r.Max < 0) {
			return Term{}, false, fmt.Errorf("%w: %q", ErrInvalidRating, text)
		}
		term.Range = r
		term.Value = text
		return term, true, nil
	case FieldMBID:
		term.Value = strings.ToLower(strings.TrimSpace(text))
	default:
		term.Value = music.SearchKey(text)
	}
	if term.Value == "" {
		return Term{}, false, nil
	}
	return term, true, nil
}

// parseRange accepts N, N-M, >N, >=N, <N and <=N.
func parseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	atoi := func(v string) (int, error) {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return 0, errors.New("not a non-negative integer")
		}
		return n, nil
	}

	switch {
	case strings.HasPrefix(s, ">="):
		n, err := atoi(s[2:])
		return Range{Min: n, HasMin: true}, err
	case strings.HasPrefix(s, "<="):
		n, err := atoi(s[2:])
		return Range{Max: n, HasMax: true}, err
	case strings.HasPrefix(s, ">"):
		n, err := atoi(s[1:])
		if err == nil && n == math.MaxInt {
			return Range{}, errors.New("empty range")
		}
		return Range{Min: n + 1, HasMin: true}, err
	case strings.HasPrefix(s, "<"):
		n, err := atoi(s[1:])
		if err == nil && n == 0 {
			return Range{}, errors.New("empty range")
		}
		return Range{Max: n - 1, HasMax: true}, err
	}

	if lo, hi, found := strings.Cut(s, "-"); found {
		from, err := atoi(lo)
		if err != nil {
			return Range{}, err
		}
		to, err := atoi(hi)
		if err != nil {
			return Range{}, err
		}
		if from > to {
			return Range{}, errors.New("range start after end")
		}
		return Range{Min: from, Max: to, HasMin: true, HasMax: true}, nil
	}

	n, err := atoi(s)
	return Range{Min: n, Max: n, HasMin: true, HasMax: true}, err
}

// String renders the normalised query.
func (q Query) String() string {
	parts := make([]string, 0, len(q.Terms))
	for _, t := range q.Terms {
		var b strings.Builder
		if t.Negate {
			b.WriteByte('-')
		}
		if p, ok := shortPrefix[t.Field]; ok {
			b.WriteString(p)
			b.WriteByte(':')
		}
		// Values never contain '"' since the tokenizer drops them.
		if strings.ContainsAny(t.Value, " \t") {
			b.WriteString(`"` + t.Value + `"`)
		} else {
			b.WriteString(t.Value)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, " ")
}
