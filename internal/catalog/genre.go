package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// UnknownGenre is the bucket for movies without any major genre.
const UnknownGenre = "Unknown"

// MajorGenres is the allowlist used to bucket movies for per-genre exports.
var MajorGenres = []string{
	"Action", "Adventure", "Comedy", "Drama", "Horror",
	"Sci-Fi", "Romance", "Thriller", "Animation",
	"Fantasy", "Crime", "Mystery", "Biography",
	"Documentary", "Family", "Musical",
}

var majorByFold = buildMajorIndex()

// foldCase builds a fresh Caser per call; a Caser is not safe for concurrent use.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

func buildMajorIndex() map[string]string {
	idx := make(map[string]string, len(MajorGenres))
	for _, g := range MajorGenres {
		idx[foldCase(g)] = g
	}
	return idx
}

// SplitGenres splits a comma-joined genre string, dropping empty entries.
func SplitGenres(genre string) []string {
	parts := strings.Split(genre, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MajorGenre returns the canonical allowlist name of the first genre that
// matches case-insensitively, or UnknownGenre.
func MajorGenre(genre string) string {
	for _, g := range SplitGenres(genre) {
		if major, ok := majorByFold[foldCase(g)]; ok {
			return major
		}
	}
	return UnknownGenre
}

// GroupByMajorGenre buckets movies by MajorGenre, keeping input order inside
// each bucket.
func GroupByMajorGenre(movies []Movie) map[string][]Movie {
	groups := make(map[string][]Movie)
	for _, m := range movies {
		major := MajorGenre(m.Genre)
		groups[major] = append(groups[major], m)
	}
	return groups
}

// HasGenre reports whether genre contains want as one of its entries,
// ignoring case.
func HasGenre(genre, want string) bool {
	want = foldCase(strings.TrimSpace(want))
	if want == "" {
		return true
	}
	for _, g := range SplitGenres(genre) {
		if foldCase(g) == want {
			return true
		}
	}
	return false
}
