package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/baxromumarov/movie-harvester/internal/catalog"
)

const genreFileSuffix = "_movies_2024.csv"

// WriteCSV writes movies with the persisted column header.
func WriteCSV(path string, movies []catalog.Movie) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	// Write to a temp file first so a failed run keeps the previous export.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(catalog.Columns); err != nil {
		tmp.Close()
		return err
	}
	for _, m := range movies {
		if err := w.Write(record(m)); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// WriteByGenre writes one file per major genre into dir and returns the
// paths written, sorted.
func WriteByGenre(dir string, movies []catalog.Movie) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create genre dir: %w", err)
	}
	groups := catalog.GroupByMajorGenre(movies)

	paths := make([]string, 0, len(groups))
	for genre, group := range groups {
		path := filepath.Join(dir, GenreFileName(genre))
		if err := WriteCSV(path, group); err != nil {
			return nil, fmt.Errorf("genre %s: %w", genre, err)
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

var fileNameReplacer = strings.NewReplacer(" ", "_", "-", "_")

func GenreFileName(genre string) string {
	return fileNameReplacer.Replace(genre) + genreFileSuffix
}

// ReadCSV loads a file written by WriteCSV. Columns are matched by header
// name so extra or reordered columns are tolerated.
func ReadCSV(path string) ([]catalog.Movie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return []catalog.Movie{}, nil
	}

	idx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		idx[strings.TrimSpace(h)] = i
	}
	col := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	if _, ok := idx[catalog.ColumnTitle]; !ok {
		return nil, fmt.Errorf("read csv: missing %s column", catalog.ColumnTitle)
	}

	movies := make([]catalog.Movie, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rating, _ := strconv.ParseFloat(col(row, catalog.ColumnRating), 64)
		votes, _ := strconv.Atoi(col(row, catalog.ColumnVotes))
		duration, _ := strconv.Atoi(col(row, catalog.ColumnDuration))
		movies = append(movies, catalog.Movie{
			Title:    col(row, catalog.ColumnTitle),
			Rating:   rating,
			Votes:    votes,
			Genre:    col(row, catalog.ColumnGenre),
			Duration: duration,
		})
	}
	return movies, nil
}

func record(m catalog.Movie) []string {
	return []string{
		m.Title,
		strconv.FormatFloat(m.Rating, 'f', -1, 64),
		strconv.Itoa(m.Votes),
		m.Genre,
		strconv.Itoa(m.Duration),
	}
}

// CSVSink writes the all-movies file.
type CSVSink struct {
	Path string
}

func (s CSVSink) Name() string { return "csv" }

func (s CSVSink) Save(_ context.Context, movies []catalog.Movie) error {
	return WriteCSV(s.Path, movies)
}

// GenreSink writes the per-major-genre files.
type GenreSink struct {
	Dir string
}

func (s GenreSink) Name() string { return "genre_csv" }

func (s GenreSink) Save(_ context.Context, movies []catalog.Movie) error {
	_, err := WriteByGenre(s.Dir, movies)
	return err
}
