package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/baxromumarov/movie-harvester/internal/catalog"
)

func (s *Store) Name() string { return "postgres" }

// Save implements the pipeline sink.
func (s *Store) Save(ctx context.Context, movies []catalog.Movie) error {
	if s.replace {
		return s.ReplaceMovies(ctx, movies)
	}
	return s.UpsertMovies(ctx, movies)
}

// UpsertMovies writes all movies in one transaction, keyed by title.
func (s *Store) UpsertMovies(ctx context.Context, movies []catalog.Movie) error {
	return s.writeMovies(ctx, movies, false)
}

// ReplaceMovies truncates the table and inserts movies in one transaction.
func (s *Store) ReplaceMovies(ctx context.Context, movies []catalog.Movie) error {
	return s.writeMovies(ctx, movies, true)
}

func (s *Store) writeMovies(ctx context.Context, movies []catalog.Movie, truncate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if truncate {
		if _, err := tx.ExecContext(ctx, "TRUNCATE "+s.ident); err != nil {
			return fmt.Errorf("truncate %s: %w", s.table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, upsertSQL(s.ident))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range movies {
		if _, err := stmt.ExecContext(ctx, m.Title, m.Rating, m.Votes, m.Genre, m.Duration); err != nil {
			return fmt.Errorf("upsert %q: %w", m.Title, err)
		}
	}
	return tx.Commit()
}

func upsertSQL(ident string) string {
	return `
INSERT INTO ` + ident + ` ("Title", "Rating", "Votes", "Genre", "Duration")
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT ("Title") DO UPDATE SET
    "Rating" = EXCLUDED."Rating",
    "Votes" = EXCLUDED."Votes",
    "Genre" = EXCLUDED."Genre",
    "Duration" = EXCLUDED."Duration"
`
}

func (s *Store) ListMovies(ctx context.Context, f catalog.Filter) ([]catalog.Movie, error) {
	query, args := listQuery(s.ident, f.Normalize())
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := []catalog.Movie{}
	for rows.Next() {
		var m catalog.Movie
		if err := rows.Scan(&m.Title, &m.Rating, &m.Votes, &m.Genre, &m.Duration); err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

var orderBy = map[string]string{
	catalog.SortRating:   `"Rating" DESC, "Title" ASC`,
	catalog.SortVotes:    `"Votes" DESC, "Title" ASC`,
	catalog.SortDuration: `"Duration" DESC, "Title" ASC`,
	catalog.SortTitle:    `"Title" ASC`,
}

// listQuery expects a normalized filter.
func listQuery(ident string, f catalog.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Genre != "" {
		add(`lower($%d) IN (SELECT lower(trim(g)) FROM unnest(string_to_array("Genre", ',')) AS g)`, f.Genre)
	}
	if f.MinRating != nil {
		add(`"Rating" >= $%d`, *f.MinRating)
	}
	if f.MaxRating != nil {
		add(`"Rating" <= $%d`, *f.MaxRating)
	}
	if f.MinVotes != nil {
		add(`"Votes" >= $%d`, *f.MinVotes)
	}
	if f.MaxVotes != nil {
		add(`"Votes" <= $%d`, *f.MaxVotes)
	}
	if f.MinDuration != nil {
		add(`"Duration" >= $%d`, *f.MinDuration)
	}
	if f.MaxDuration != nil {
		add(`"Duration" <= $%d`, *f.MaxDuration)
	}

	var b strings.Builder
	b.WriteString(`SELECT "Title", "Rating", "Votes", "Genre", "Duration" FROM `)
	b.WriteString(ident)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(orderBy[f.Sort])

	args = append(args, f.Limit, f.Offset)
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return b.String(), args
}

func (s *Store) GenreCounts(ctx context.Context) ([]catalog.GenreCount, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT trim(g) AS genre, count(*)
FROM `+s.ident+`, unnest(string_to_array("Genre", ',')) AS g
WHERE trim(g) <> ''
GROUP BY 1
ORDER BY 2 DESC, 1 ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []catalog.GenreCount{}
	for rows.Next() {
		var gc catalog.GenreCount
		if err := rows.Scan(&gc.Genre, &gc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, gc)
	}
	return counts, rows.Err()
}

func (s *Store) Summary(ctx context.Context) (catalog.Summary, error) {
	var sum catalog.Summary
	err := s.db.QueryRowContext(ctx, `
SELECT count(*), COALESCE(avg("Rating"), 0), COALESCE(avg("Duration"), 0), COALESCE(max("Votes"), 0)
FROM `+s.ident).Scan(&sum.Count, &sum.AvgRating, &sum.AvgDuration, &sum.MaxVotes)
	if err != nil {
		return catalog.Summary{}, err
	}

	top, err := s.ListMovies(ctx, catalog.Filter{Sort: catalog.SortRating, Limit: catalog.TopRatedCount})
	if err != nil {
		return catalog.Summary{}, err
	}
	sum.TopRated = top
	return sum, nil
}
