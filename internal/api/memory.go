package api

import (
	"context"

	"github.com/baxromumarov/movie-harvester/internal/catalog"
)

// MemoryRepository serves a fixed movie set, e.g. one read back from the
// CSV export when no database is configured.
type MemoryRepository struct {
	movies []catalog.Movie
}

func NewMemoryRepository(movies []catalog.Movie) *MemoryRepository {
	return &MemoryRepository{movies: movies}
}

func (m *MemoryRepository) ListMovies(_ context.Context, f catalog.Filter) ([]catalog.Movie, error) {
	return catalog.Apply(m.movies, f), nil
}

func (m *MemoryRepository) GenreCounts(context.Context) ([]catalog.GenreCount, error) {
	return catalog.CountGenres(m.movies), nil
}

func (m *MemoryRepository) Summary(context.Context) (catalog.Summary, error) {
	return catalog.Summarize(m.movies), nil
}
