package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/movie-harvester/internal/catalog"
)

var movies = []catalog.Movie{
	{Title: "Dune: Part Two", Rating: 8.5, Votes: 612000, Genre: "Action, Sci-Fi", Duration: 166},
	{Title: "Smile 2", Rating: 6.8, Votes: 90000, Genre: "Horror, Mystery", Duration: 127},
	{Title: `Say "Hi", Again`, Rating: 0, Votes: 0, Genre: "", Duration: 0},
	{Title: "A Real Pain", Rating: 7.1, Votes: 70000, Genre: "Comedy-drama, Sci-Fi", Duration: 90},
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "all.csv")
	require.NoError(t, WriteCSV(path, movies))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Title,Rating,Votes,Genre,Duration", lines[0])
	assert.Equal(t, `Dune: Part Two,8.5,612000,"Action, Sci-Fi",166`, lines[1])
	assert.Equal(t, `"Say ""Hi"", Again",0,0,,0`, lines[3])

	back, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, movies, back)
}

func TestWriteCSV_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, WriteCSV(path, nil))

	back, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Empty(t, back)
}

func TestWriteByGenre(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "IMDB_2024_by_genre")
	paths, err := WriteByGenre(dir, movies)
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{
		"Action_movies_2024.csv",
		"Horror_movies_2024.csv",
		"Sci_Fi_movies_2024.csv",
		"Unknown_movies_2024.csv",
	}, names)

	scifi, err := ReadCSV(filepath.Join(dir, "Sci_Fi_movies_2024.csv"))
	require.NoError(t, err)
	require.Len(t, scifi, 1)
	assert.Equal(t, "A Real Pain", scifi[0].Title)

	unknown, err := ReadCSV(filepath.Join(dir, "Unknown_movies_2024.csv"))
	require.NoError(t, err)
	require.Len(t, unknown, 1)
	assert.Equal(t, `Say "Hi", Again`, unknown[0].Title)
}

func TestReadCSV_ReorderedColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.csv")
	require.NoError(t, os.WriteFile(path, []byte("Genre,Title,Rating\nDrama,Anora,7.8\n"), 0o644))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Movie{{Title: "Anora", Rating: 7.8, Genre: "Drama"}}, got)

	require.NoError(t, os.WriteFile(path, []byte("Name\nAnora\n"), 0o644))
	_, err = ReadCSV(path)
	require.Error(t, err)
}

func TestSinks(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	csvSink := CSVSink{Path: filepath.Join(dir, "imdb_2024_all_movies.csv")}
	genreSink := GenreSink{Dir: filepath.Join(dir, "genres")}
	require.NoError(t, csvSink.Save(ctx, movies))
	require.NoError(t, genreSink.Save(ctx, movies))
	assert.Equal(t, "csv", csvSink.Name())
	assert.Equal(t, "genre_csv", genreSink.Name())

	assert.FileExists(t, csvSink.Path)
	assert.FileExists(t, filepath.Join(genreSink.Dir, "Horror_movies_2024.csv"))
}

func TestGenreFileName(t *testing.T) {
	assert.Equal(t, "Sci_Fi_movies_2024.csv", GenreFileName("Sci-Fi"))
	assert.Equal(t, "Unknown_movies_2024.csv", GenreFileName(catalog.UnknownGenre))
}
