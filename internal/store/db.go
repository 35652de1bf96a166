package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"regexp"
	"time"

	"github.com/lib/pq"
)

const DefaultTable = "movies_2024"

//go:embed schema.sql
var schemaTemplate string

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

type Store struct {
	db      *sql.DB
	table   string
	// quoted table identifier, safe to splice into SQL
	ident   string
	// replace truncates before saving instead of upserting
	replace bool
}

type Option func(*Store)

// WithReplace makes Save swap the whole table contents in one transaction.
func WithReplace() Option {
	return func(s *Store) { s.replace = true }
}

func NewStore(connStr, table string, opts ...Option) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	s := &Store{db: db, table: table, ident: pq.QuoteIdentifier(table)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Table() string { return s.table }

func (s *Store) RunMigrations(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, schemaSQL(s.table)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func schemaSQL(table string) string {
	return fmt.Sprintf(schemaTemplate, pq.QuoteIdentifier(table), pq.QuoteIdentifier(table+"_rating_idx"))
}
