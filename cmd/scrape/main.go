package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/baxromumarov/movie-harvester/internal/browser"
	"github.com/baxromumarov/movie-harvester/internal/config"
	"github.com/baxromumarov/movie-harvester/internal/core"
	"github.com/baxromumarov/movie-harvester/internal/export"
	"github.com/baxromumarov/movie-harvester/internal/httpx"
	"github.com/baxromumarov/movie-harvester/internal/loader"
	"github.com/baxromumarov/movie-harvester/internal/observability"
	"github.com/baxromumarov/movie-harvester/internal/scraper"
	"github.com/baxromumarov/movie-harvester/internal/store"
)

type flags struct {
	limit     int
	workers   int
	searchURL string
	csvPath   string
	genreDir  string
	noDB      bool
	replace   bool
	metrics   string
}

func main() {
	var f flags
	cmd := &cobra.Command{
		Use:           "scrape",
		Short:         "Harvest the IMDb 2024 feature listing into CSV files and Postgres.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlags(cmd, f, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
			slog.SetDefault(logger)

			return run(cmd.Context(), cfg, f)
		},
	}
	bindFlags(cmd, &f)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func bindFlags(cmd *cobra.Command, f *flags) {
	cmd.Flags().IntVar(&f.limit, "limit", config.DefaultLimit, "Maximum number of movies to load (0 for no limit)")
	cmd.Flags().IntVar(&f.workers, "workers", config.DefaultWorkers, "Concurrent detail page fetches")
	cmd.Flags().StringVar(&f.searchURL, "search-url", config.DefaultSearchURL, "IMDb search results URL")
	cmd.Flags().StringVar(&f.csvPath, "csv", "", "All-movies CSV path (empty disables)")
	cmd.Flags().StringVar(&f.genreDir, "genre-dir", "", "Directory for per-genre CSV files (empty disables)")
	cmd.Flags().BoolVar(&f.noDB, "no-db", false, "Skip the Postgres sink")
	cmd.Flags().BoolVar(&f.replace, "replace", false, "Replace the table contents instead of upserting")
	cmd.Flags().StringVar(&f.metrics, "metrics-addr", "", "Serve Prometheus metrics on this address while scraping")
}

// applyFlags overrides env config with flags the user actually set.
func applyFlags(cmd *cobra.Command, f flags, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("limit") {
		cfg.Limit = f.limit
	}
	if set("workers") {
		cfg.Workers = f.workers
	}
	if set("search-url") {
		cfg.SearchURL = f.searchURL
	}
	if set("csv") {
		cfg.CSVPath = f.csvPath
	}
	if set("genre-dir") {
		cfg.GenreDir = f.genreDir
	}
	if f.noDB {
		cfg.DatabaseURL = ""
	}
}

func run(ctx context.Context, cfg config.Config, f flags) error {
	sinks, closeSinks, err := buildSinks(ctx, cfg, f.replace)
	if err != nil {
		return err
	}
	defer closeSinks()

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = httpx.DefaultUserAgent
	}

	session, err := browser.Start(ctx, browser.Options{
		ExecPath:         cfg.ChromePath,
		Headless:         cfg.Headless,
		UserAgent:        userAgent,
		LoadMoreSelector: scraper.LoadMoreSelector,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	slog.Info("opening search page", "url", cfg.SearchURL)
	if err := session.Open(ctx, cfg.SearchURL); err != nil {
		return fmt.Errorf("open search page: %w", err)
	}

	getter, err := httpx.NewGetter(cfg.FetchEngine, httpx.Options{
		UserAgent:     userAgent,
		Timeout:       cfg.FetchTimeout,
		MaxRetries:    2,
		RespectRobots: cfg.RespectRobots,
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	if f.metrics != "" {
		srv := &http.Server{Addr: f.metrics, Handler: observability.Handler(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
	}
	listing := loader.New(session, scraper.NewListingExtractor(cfg.SearchURL), loader.Config{
		Limit:           cfg.Limit,
		PollInterval:    cfg.PollInterval,
		GrowthTimeout:   cfg.GrowthTimeout,
		PresenceTimeout: cfg.PresenceTimeout,
	})
	scheduler := core.NewScheduler(scraper.NewHTTPDetailFetcher(getter, cfg.FetchTimeout), cfg.Workers, metrics)

	start := time.Now()
	res, err := core.NewPipeline(listing, scheduler, metrics, sinks...).Run(ctx)
	if err != nil {
		return err
	}
	if res.Skipped {
		return nil
	}
	slog.Info("scrape complete", "movies", len(res.Movies), "elapsed", time.Since(start).Round(time.Second))
	return nil
}

func buildSinks(ctx context.Context, cfg config.Config, replace bool) ([]core.Sink, func(), error) {
	var (
		sinks   []core.Sink
		closers []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.CSVPath != "" {
		sinks = append(sinks, export.CSVSink{Path: cfg.CSVPath})
	}
	if cfg.GenreDir != "" {
		sinks = append(sinks, export.GenreSink{Dir: cfg.GenreDir})
	}
	if cfg.DatabaseURL != "" {
		var opts []store.Option
		if replace {
			opts = append(opts, store.WithReplace())
		}
		db, err := store.NewStore(cfg.DatabaseURL, cfg.Table, opts...)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { db.Close() })
		if err := db.RunMigrations(ctx); err != nil {
			closeAll()
			return nil, func() {}, err
		}
		sinks = append(sinks, db)
	}
	if len(sinks) == 0 {
		slog.Warn("no sinks configured, results will only be logged")
	}
	return sinks, closeAll, nil
}
