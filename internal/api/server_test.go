package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/movie-harvester/internal/catalog"
)

var fixture = []catalog.Movie{
	{Title: "Dune: Part Two", Rating: 8.5, Votes: 600000, Genre: "Action, Adventure, Drama", Duration: 166},
	{Title: "Inside Out 2", Rating: 7.6, Votes: 250000, Genre: "Animation, Comedy", Duration: 96},
	{Title: "Civil War", Rating: 7.0, Votes: 210000, Genre: "Action, Thriller", Duration: 109},
}

type failingRepo struct{}

func (failingRepo) ListMovies(context.Context, catalog.Filter) ([]catalog.Movie, error) {
	return nil, errors.New("db down")
}
func (failingRepo) GenreCounts(context.Context) ([]catalog.GenreCount, error) {
	return nil, errors.New("db down")
}
func (failingRepo) Summary(context.Context) (catalog.Summary, error) {
	return catalog.Summary{}, errors.New("db down")
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

type moviesPage struct {
	Items  []catalog.Movie `json:"items"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
	Sort   string          `json:"sort"`
}

func TestHealth(t *testing.T) {
	rec := get(t, NewServer(NewMemoryRepository(nil), nil).Router(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestListMovies(t *testing.T) {
	h := NewServer(NewMemoryRepository(fixture), nil).Router()

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"default sort by rating", "/movies", []string{"Dune: Part Two", "Inside Out 2", "Civil War"}},
		{"genre", "/movies?genre=Action", []string{"Dune: Part Two", "Civil War"}},
		{"rating range", "/movies?min_rating=7.1&max_rating=8", []string{"Inside Out 2"}},
		{"votes and duration", "/movies?min_votes=220000&max_duration=120", []string{"Inside Out 2"}},
		{"title order", "/movies?sort=title", []string{"Civil War", "Dune: Part Two", "Inside Out 2"}},
		{"paging", "/movies?sort=duration&limit=1&offset=1", []string{"Civil War"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var page moviesPage
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
			var titles []string
			for _, m := range page.Items {
				titles = append(titles, m.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestListMovies_BadParams(t *testing.T) {
	h := NewServer(NewMemoryRepository(fixture), nil).Router()
	for _, target := range []string{"/movies?min_rating=high", "/movies?min_votes=1.5", "/movies?limit=x"} {
		rec := get(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "invalid")
	}
}

func TestListMovies_EmptyIsArray(t *testing.T) {
	rec := get(t, NewServer(NewMemoryRepository(nil), nil).Router(), "/movies")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
}

func TestGenresAndSummary(t *testing.T) {
	h := NewServer(NewMemoryRepository(fixture), nil).Router()

	rec := get(t, h, "/genres")
	require.Equal(t, http.StatusOK, rec.Code)
	var genres struct {
		Items []catalog.GenreCount `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &genres))
	require.NotEmpty(t, genres.Items)
	assert.Equal(t, catalog.GenreCount{Genre: "Action", Count: 2}, genres.Items[0])

	rec = get(t, h, "/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum catalog.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, 600000, sum.MaxVotes)
	assert.Len(t, sum.TopRated, 3)
}

func TestRepositoryErrors(t *testing.T) {
	h := NewServer(failingRepo{}, nil).Router()
	for _, target := range []string{"/movies", "/genres", "/summary"} {
		rec := get(t, h, target)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "db down")
	}
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("harvester_up 1\n"))
	})
	rec := get(t, NewServer(NewMemoryRepository(nil), metrics).Router(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "harvester_up")

	rec = get(t, NewServer(NewMemoryRepository(nil), nil).Router(), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
