package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/baxromumarov/movie-harvester/internal/catalog"
)

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	f = f.Normalize()

	movies, err := s.repo.ListMovies(r.Context(), f)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch movies: "+err.Error())
		return
	}
	if movies == nil {
		movies = []catalog.Movie{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":  movies,
		"limit":  f.Limit,
		"offset": f.Offset,
		"sort":   f.Sort,
	})
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.repo.GenreCounts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch genres: "+err.Error())
		return
	}
	if genres == nil {
		genres = []catalog.GenreCount{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": genres})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.repo.Summary(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to build summary: "+err.Error())
		return
	}
	if sum.TopRated == nil {
		sum.TopRated = []catalog.Movie{}
	}
	respondJSON(w, http.StatusOK, sum)
}

func parseFilter(q url.Values) (catalog.Filter, error) {
	f := catalog.Filter{
		Genre: q.Get("genre"),
		Sort:  q.Get("sort"),
	}

	var err error
	if f.MinRating, err = floatParam(q, "min_rating"); err != nil {
		return f, err
	}
	if f.MaxRating, err = floatParam(q, "max_rating"); err != nil {
		return f, err
	}
	ints := []struct {
		key string
		dst **int
	}{
		{"min_votes", &f.MinVotes},
		{"max_votes", &f.MaxVotes},
		{"min_duration", &f.MinDuration},
		{"max_duration", &f.MaxDuration},
	}
	for _, p := range ints {
		if *p.dst, err = intParam(q, p.key); err != nil {
			return f, err
		}
	}

	if limit, err := intParam(q, "limit"); err != nil {
		return f, err
	} else if limit != nil {
		f.Limit = *limit
	}
	if offset, err := intParam(q, "offset"); err != nil {
		return f, err
	} else if offset != nil {
		f.Offset = *offset
	}
	return f, nil
}

func floatParam(q url.Values, key string) (*float64, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, v)
	}
	return &parsed, nil
}

func intParam(q url.Values, key string) (*int, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, v)
	}
	return &parsed, nil
}
