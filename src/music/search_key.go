package music

import (
	"strings"

	"github.com/gosimple/unidecode"
)

// SearchKey folds s into the form stored in the *_search columns: accents
// transliterated to ASCII, lower case, runs of whitespace collapsed.
func SearchKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(unidecode.Unidecode(s))), " ")
}
