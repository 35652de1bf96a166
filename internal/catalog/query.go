package catalog

import (
	"sort"
	"strings"
)

const (
	SortRating   = "rating"
	SortVotes    = "votes"
	SortDuration = "duration"
	SortTitle    = "title"

	DefaultPageSize = 50
	MaxPageSize     = 500
	TopRatedCount   = 10
)

// Filter mirrors the dashboard controls. Nil bounds are open.
type Filter struct {
	Genre       string
	MinRating   *float64
	MaxRating   *float64
	MinVotes    *int
	MaxVotes    *int
	MinDuration *int
	MaxDuration *int
	Sort        string
	Limit       int
	Offset      int
}

// Normalize clamps paging and falls back to rating order.
func (f Filter) Normalize() Filter {
	switch strings.ToLower(f.Sort) {
	case SortVotes, SortDuration, SortTitle:
		f.Sort = strings.ToLower(f.Sort)
	default:
		f.Sort = SortRating
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Genre = strings.TrimSpace(f.Genre)
	return f
}

func (f Filter) Match(m Movie) bool {
	if !HasGenre(m.Genre, f.Genre) {
		return false
	}
	if f.MinRating != nil && m.Rating < *f.MinRating {
		return false
	}
	if f.MaxRating != nil && m.Rating > *f.MaxRating {
		return false
	}
	if f.MinVotes != nil && m.Votes < *f.MinVotes {
		return false
	}
	if f.MaxVotes != nil && m.Votes > *f.MaxVotes {
		return false
	}
	if f.MinDuration != nil && m.Duration < *f.MinDuration {
		return false
	}
	if f.MaxDuration != nil && m.Duration > *f.MaxDuration {
		return false
	}
	return true
}

// Apply filters, sorts and pages movies without modifying the input.
func Apply(movies []Movie, f Filter) []Movie {
	f = f.Normalize()
	out := make([]Movie, 0, len(movies))
	for _, m := range movies {
		if f.Match(m) {
			out = append(out, m)
		}
	}
	SortMovies(out, f.Sort)

	if f.Offset >= len(out) {
		return []Movie{}
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// SortMovies orders by field, descending except for title. Ties break on
// title so results are stable across sinks.
func SortMovies(movies []Movie, field string) {
	less := func(a, b Movie) bool {
		switch field {
		case SortTitle:
			return a.Title < b.Title
		case SortVotes:
			if a.Votes != b.Votes {
				return a.Votes > b.Votes
			}
		case SortDuration:
			if a.Duration != b.Duration {
				return a.Duration > b.Duration
			}
		default:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		}
		return a.Title < b.Title
	}
	sort.SliceStable(movies, func(i, j int) bool { return less(movies[i], movies[j]) })
}

type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// CountGenres tallies individual genres, most frequent first.
func CountGenres(movies []Movie) []GenreCount {
	counts := make(map[string]int)
	for _, m := range movies {
		for _, g := range SplitGenres(m.Genre) {
			counts[g]++
		}
	}
	out := make([]GenreCount, 0, len(counts))
	for g, n := range counts {
		out = append(out, GenreCount{Genre: g, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Genre < out[j].Genre
	})
	return out
}

type Summary struct {
	Count       int     `json:"count"`
	AvgRating   float64 `json:"avg_rating"`
	AvgDuration float64 `json:"avg_duration"`
	MaxVotes    int     `json:"max_votes"`
	TopRated    []Movie `json:"top_rated"`
}

func Summarize(movies []Movie) Summary {
	s := Summary{Count: len(movies), TopRated: []Movie{}}
	if len(movies) == 0 {
		return s
	}
	var rating, duration float64
	for _, m := range movies {
		rating += m.Rating
		duration += float64(m.Duration)
		if m.Votes > s.MaxVotes {
			s.MaxVotes = m.Votes
		}
	}
	s.AvgRating = rating / float64(len(movies))
	s.AvgDuration = duration / float64(len(movies))

	top := append([]Movie(nil), movies...)
	SortMovies(top, SortRating)
	if len(top) > TopRatedCount {
		top = top[:TopRatedCount]
	}
	s.TopRated = top
	return s
}
