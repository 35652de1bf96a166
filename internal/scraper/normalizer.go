package scraper

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/baxromumarov/movie-harvester/internal/catalog"
)

var (
	ordinalPrefix   = regexp.MustCompile(`^\s*\d+\.\s+`)
	durationPattern = regexp.MustCompile(`^(?:(\d+)h)?\s*(?:(\d+)m)?`)
)

// Normalize turns an enriched record into the persisted schema. The detail
// URL is dropped.
func Normalize(rec EnrichedRecord) catalog.Movie {
	return catalog.Movie{
		Title:    CleanTitle(rec.Title),
		Rating:   ParseRating(rec.Rating),
		Votes:    max(rec.Votes, 0),
		Genre:    strings.TrimSpace(rec.Genres),
		Duration: DurationToMinutes(rec.DurationRaw),
	}
}

// NormalizeAll normalizes records in one pass, preserving order.
func NormalizeAll(recs []EnrichedRecord) []catalog.Movie {
	out := make([]catalog.Movie, 0, len(recs))
	for _, r := range recs {
		out = append(out, Normalize(r))
	}
	return out
}

// NormalizeMovie re-applies normalization to an already persisted movie.
// It is the identity on any output of Normalize.
func NormalizeMovie(m catalog.Movie) catalog.Movie {
	rating := m.Rating
	if math.IsNaN(rating) || math.IsInf(rating, 0) {
		rating = 0
	}
	return catalog.Movie{
		Title:    CleanTitle(m.Title),
		Rating:   rating,
		Votes:    max(m.Votes, 0),
		Genre:    strings.TrimSpace(m.Genre),
		Duration: max(m.Duration, 0),
	}
}

// CleanTitle strips a leading "<n>. " list ordinal and surrounding space.
func CleanTitle(title string) string {
	return strings.TrimSpace(ordinalPrefix.ReplaceAllString(title, ""))
}

// DurationToMinutes converts "2h 15m", "45m" or "3h" into minutes. Empty or
// unrecognised input yields 0.
func DurationToMinutes(raw string) int {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	return hours*60 + minutes
}

// ParseRating parses a textual rating; anything unparsable yields 0.
func ParseRating(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
