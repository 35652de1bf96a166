package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/baxromumarov/movie-harvester/internal/catalog"
)

func TestDurationToMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"2h 15m", 135},
		{"2h15m", 135},
		{"45m", 45},
		{"3h", 180},
		{"", 0},
		{"   ", 0},
		{"PG-13", 0},
		{"90", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DurationToMinutes(tt.in), "input %q", tt.in)
	}
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Dune: Part Two", CleanTitle("1. Dune: Part Two"))
	assert.Equal(t, "Dune: Part Two", CleanTitle("  123.   Dune: Part Two  "))
	assert.Equal(t, "2001: A Space Odyssey", CleanTitle("2001: A Space Odyssey"))
	assert.Equal(t, "", CleanTitle(""))
}

func TestParseRating(t *testing.T) {
	assert.Equal(t, 8.5, ParseRating("8.5"))
	assert.Equal(t, 7.0, ParseRating(" 7 "))
	assert.Equal(t, 0.0, ParseRating(""))
	assert.Equal(t, 0.0, ParseRating("n/a"))
	assert.Equal(t, 0.0, ParseRating("NaN"))
}

func TestNormalize(t *testing.T) {
	rec := ListingRecord{
		Title:     "12. Civil War",
		Rating:    "7.0",
		Votes:     1234,
		DetailURL: "https://www.imdb.com/title/tt17279496/",
	}.Enrich(Details{Genres: "Action, Drama", DurationRaw: "1h 49m"})

	assert.Equal(t, catalog.Movie{
		Title:    "Civil War",
		Rating:   7.0,
		Votes:    1234,
		Genre:    "Action, Drama",
		Duration: 109,
	}, Normalize(rec))
}

func TestNormalize_Defaults(t *testing.T) {
	m := Normalize(EnrichedRecord{ListingRecord: ListingRecord{Title: "Untitled", Votes: -3}})
	assert.Equal(t, catalog.Movie{Title: "Untitled"}, m)
}

func TestNormalize_Idempotent(t *testing.T) {
	recs := []EnrichedRecord{
		ListingRecord{Title: "1. A", Rating: "8.1", Votes: 10}.Enrich(Details{Genres: "Drama", DurationRaw: "2h 1m"}),
		ListingRecord{Title: "B"}.Enrich(Details{}),
		ListingRecord{Title: " 3.  2046 ", Rating: "x"}.Enrich(Details{DurationRaw: "45m"}),
	}
	for _, m := range NormalizeAll(recs) {
		assert.Equal(t, m, NormalizeMovie(m))
		assert.Equal(t, m, NormalizeMovie(NormalizeMovie(m)))
	}
}
