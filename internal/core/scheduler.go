package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/baxromumarov/movie-harvester/internal/observability"
	"github.com/baxromumarov/movie-harvester/internal/scraper"
)

const (
	DefaultWorkers = 20
	MaxWorkers     = 64
)

// Scheduler enriches listing records with detail-page data using at most
// Workers concurrent fetches. A failed fetch degrades its record to empty
// details; it never drops it.
type Scheduler struct {
	fetcher scraper.DetailFetcher
	workers int
	metrics observability.Recorder
}

func NewScheduler(fetcher scraper.DetailFetcher, workers int, metrics observability.Recorder) *Scheduler {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	if metrics == nil {
		metrics = observability.Nop{}
	}
	return &Scheduler{fetcher: fetcher, workers: workers, metrics: metrics}
}

func (s *Scheduler) Workers() int { return s.workers }

// Enrich returns one EnrichedRecord per input, in input order. Records not
// yet started when ctx is cancelled come back with empty details.
func (s *Scheduler) Enrich(ctx context.Context, records []scraper.ListingRecord) []scraper.EnrichedRecord {
	out := make([]scraper.EnrichedRecord, len(records))
	for i, rec := range records {
		out[i] = rec.Enrich(scraper.Details{})
	}
	if len(records) == 0 {
		return out
	}

	start := time.Now()
	sem := semaphore.NewWeighted(int64(s.workers))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		degraded int
	)

	for i := range records {
		err := ctx.Err()
		if err == nil {
			err = sem.Acquire(ctx, 1)
		}
		if err != nil {
			slog.Warn("enrichment cancelled", "remaining", len(records)-i, "error", err)
			break
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer sem.Release(1)

			details, ok := s.fetchOne(ctx, records[idx])
			if !ok {
				mu.Lock()
				degraded++
				mu.Unlock()
			}
			// Each goroutine owns out[idx].
			out[idx] = records[idx].Enrich(details)
		}(i)
	}
	wg.Wait()

	slog.Info("enrichment finished",
		"records", len(records),
		"degraded", degraded,
		"workers", s.workers,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return out
}

func (s *Scheduler) fetchOne(ctx context.Context, rec scraper.ListingRecord) (details scraper.Details, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("detail worker panic", "url", rec.DetailURL, "panic", fmt.Sprint(r))
			s.metrics.IncDetailFetch("panic")
			s.metrics.IncError(observability.ErrorUnknown, "scheduler")
			details, ok = scraper.Details{}, false
		}
	}()

	start := time.Now()
	d, err := s.fetcher.FetchDetails(ctx, rec.DetailURL)
	s.metrics.ObserveFetchLatency(time.Since(start))
	if err != nil {
		kind := observability.ClassifyFetchError(err)
		slog.Warn("detail fetch failed", "title", rec.Title, "url", rec.DetailURL, "kind", kind, "error", err)
		s.metrics.IncDetailFetch("degraded")
		s.metrics.IncError(kind, "detail")
		return scraper.Details{}, false
	}
	s.metrics.IncDetailFetch("ok")
	return d, true
}
