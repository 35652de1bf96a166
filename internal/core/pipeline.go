package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/baxromumarov/movie-harvester/internal/catalog"
	"github.com/baxromumarov/movie-harvester/internal/loader"
	"github.com/baxromumarov/movie-harvester/internal/observability"
	"github.com/baxromumarov/movie-harvester/internal/scraper"
)

// Sink persists the normalized record set.
type Sink interface {
	Name() string
	Save(ctx context.Context, movies []catalog.Movie) error
}

type ListingLoader interface {
	Load(ctx context.Context) (loader.Result, error)
}

type Enricher interface {
	Enrich(ctx context.Context, records []scraper.ListingRecord) []scraper.EnrichedRecord
}

type Result struct {
	Listings   int
	Reason     loader.StopReason
	Expansions int
	Movies     []catalog.Movie
	// Skipped is set when the listing was empty and nothing downstream ran.
	Skipped    bool
}

type Pipeline struct {
	loader   ListingLoader
	enricher Enricher
	sinks    []Sink
	metrics  observability.Recorder
}

func NewPipeline(l ListingLoader, e Enricher, metrics observability.Recorder, sinks ...Sink) *Pipeline {
	if metrics == nil {
		metrics = observability.Nop{}
	}
	return &Pipeline{loader: l, enricher: e, sinks: sinks, metrics: metrics}
}

// Run loads the listing, enriches and normalizes every record, then hands the
// set to each sink. All sinks are attempted; their errors are joined.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	loaded, err := p.loader.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load listing: %w", err)
	}
	p.metrics.ObserveLoad(string(loaded.Reason), loaded.Loaded, loaded.Expansions, time.Since(start))

	res := Result{
		Listings:   len(loaded.Records),
		Reason:     loaded.Reason,
		Expansions: loaded.Expansions,
	}
	if len(loaded.Records) == 0 {
		slog.Warn("no movies scraped", "reason", loaded.Reason)
		res.Skipped = true
		return res, nil
	}

	enriched := p.enricher.Enrich(ctx, loaded.Records)
	res.Movies = scraper.NormalizeAll(enriched)

	var errs []error
	for _, sink := range p.sinks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := sink.Save(ctx, res.Movies); err != nil {
			slog.Error("sink failed", "sink", sink.Name(), "error", err)
			p.metrics.IncError(observability.ErrorStore, sink.Name())
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		p.metrics.AddMoviesStored(sink.Name(), len(res.Movies))
		slog.Info("sink saved", "sink", sink.Name(), "count", len(res.Movies))
	}

	slog.Info("pipeline finished",
		"listings", res.Listings,
		"movies", len(res.Movies),
		"reason", res.Reason,
		"expansions", res.Expansions,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return res, errors.Join(errs...)
}
