package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultSearchURL = "https://www.imdb.com/search/title/?title_type=feature&release_date=2024-01-01,2024-12-31"
	DefaultLimit     = 300
	DefaultWorkers   = 20
	MaxWorkers       = 64
)

type Config struct {
	SearchURL       string
	Limit           int
	Workers         int
	FetchTimeout    time.Duration
	FetchEngine     string
	UserAgent       string
	RespectRobots   bool
	PollInterval    time.Duration
	GrowthTimeout   time.Duration
	PresenceTimeout time.Duration
	ChromePath      string
	Headless        bool
	DatabaseURL     string
	Table           string
	CSVPath         string
	GenreDir        string
	Port            string
	LogLevel        slog.Level
}

// Error reports an environment value that could not be used.
type Error struct {
	Key   string
	Value string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s=%q: %v", e.Key, e.Value, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Unset keys take their defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}
	cfg := Config{
		SearchURL:       p.str("SEARCH_URL", DefaultSearchURL),
		Limit:           p.limit("SCRAPE_LIMIT", DefaultLimit),
		Workers:         p.integer("SCRAPE_WORKERS", DefaultWorkers),
		FetchTimeout:    p.duration("FETCH_TIMEOUT", 10*time.Second),
		FetchEngine:     strings.ToLower(p.str("FETCH_ENGINE", "colly")),
		UserAgent:       p.str("USER_AGENT", ""),
		RespectRobots:   p.boolean("RESPECT_ROBOTS", false),
		PollInterval:    p.duration("LOAD_POLL_INTERVAL", time.Second),
		GrowthTimeout:   p.duration("LOAD_GROWTH_TIMEOUT", 30*time.Second),
		PresenceTimeout: p.duration("LOAD_PRESENCE_TIMEOUT", 30*time.Second),
		ChromePath:      p.str("CHROME_PATH", ""),
		Headless:        p.boolean("HEADLESS", true),
		DatabaseURL:     p.str("DATABASE_URL", ""),
		Table:           p.str("MOVIES_TABLE", "movies_2024"),
		CSVPath:         p.optional("CSV_PATH", "imdb_2024_all_movies.csv"),
		GenreDir:        p.optional("GENRE_DIR", "IMDB_2024_by_genre"),
		Port:            p.str("PORT", "8080"),
		LogLevel:        p.level("LOG_LEVEL", slog.LevelInfo),
	}
	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field rules and clamps the worker count.
func (c *Config) Validate() error {
	if c.SearchURL == "" {
		return &Error{Key: "SEARCH_URL", Err: errors.New("must not be empty")}
	}
	if c.Limit < 0 {
		return &Error{Key: "SCRAPE_LIMIT", Value: strconv.Itoa(c.Limit), Err: errors.New("must not be negative")}
	}
	switch c.FetchEngine {
	case "colly", "http":
	default:
		return &Error{Key: "FETCH_ENGINE", Value: c.FetchEngine, Err: errors.New("must be colly or http")}
	}
	c.Workers = min(max(c.Workers, 1), MaxWorkers)
	return nil
}

type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) lookup(key string) (string, bool) {
	v := strings.TrimSpace(p.getenv(key))
	return v, v != ""
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = &Error{Key: key, Value: value, Err: err}
	}
}

func (p *parser) str(key, def string) string {
	if v, ok := p.lookup(key); ok {
		return v
	}
	return def
}

// optional lets "-" or "none" disable a path that has a default.
func (p *parser) optional(key, def string) string {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "-", "none", "off":
		return ""
	}
	return v
}

func (p *parser) integer(key string, def int) int {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

// limit accepts "0", "none" or "unbounded" for no limit.
func (p *parser) limit(key string, def int) int {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "none", "unbounded":
		return 0
	}
	return p.integer(key, def)
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	if d <= 0 {
		p.fail(key, v, errors.New("must be positive"))
		return def
	}
	return d
}

func (p *parser) boolean(key string, def bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		p.fail(key, v, err)
		return def
	}
	return lvl
}
