package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/baxromumarov/movie-harvester/internal/api"
	"github.com/baxromumarov/movie-harvester/internal/config"
	"github.com/baxromumarov/movie-harvester/internal/export"
	"github.com/baxromumarov/movie-harvester/internal/observability"
	"github.com/baxromumarov/movie-harvester/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		slog.Error("failed to open movie repository", "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := api.NewServer(repo, observability.Handler(reg))
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}

// openRepository prefers Postgres and falls back to the CSV export.
func openRepository(cfg config.Config) (api.Repository, func(), error) {
	if cfg.DatabaseURL != "" {
		db, err := store.NewStore(cfg.DatabaseURL, cfg.Table)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(context.Background()); err != nil {
			db.Close()
			return nil, nil, err
		}
		slog.Info("serving movies from postgres", "table", db.Table())
		return db, func() { db.Close() }, nil
	}

	movies, err := export.ReadCSV(cfg.CSVPath)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("serving movies from csv", "path", cfg.CSVPath, "count", len(movies))
	return api.NewMemoryRepository(movies), func() {}, nil
}
