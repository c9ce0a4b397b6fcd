package books

import (
	"math"
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike lowercases s and escapes the LIKE wildcards in it, for use with
// `LOWER(col) LIKE ? ESCAPE '\'`.
func EscapeLike(s string) string {
	return likeEscaper.Replace(strings.ToLower(s))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
