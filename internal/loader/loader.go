// Package loader drives a results page through repeated "load more"
// requests until a target count is reached or the page stops growing.
package loader

import (
	"context"
	"log/slog"
	"time"

	"github.com/baxromumarov/movie-harvester/internal/scraper"
)

const (
	DefaultPollInterval    = time.Second
	DefaultGrowthTimeout   = 30 * time.Second
	DefaultPresenceTimeout = 30 * time.Second
)

// PageSource is the single browser page the loader owns exclusively.
type PageSource interface {
	// Snapshot returns the currently rendered HTML.
	Snapshot(ctx context.Context) (string, error)
	// RequestMore triggers the load-more control. It reports false when the
	// control is absent, disabled or not interactable.
	RequestMore(ctx context.Context) (bool, error)
}

// Extractor counts and extracts result items from a snapshot.
type Extractor interface {
	Count(html string) int
	Extract(html string) []scraper.ListingRecord
}

// State is a loader state.
type State int

const (
	StateLoading State = iota
	StateExpanding
	StateStalled
	StateDone
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateExpanding:
		return "expanding"
	case StateStalled:
		return "stalled"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// StopReason explains why loading ended.
type StopReason string

const (
	ReasonLimitReached       StopReason = "limit_reached"
	ReasonNoGrowth           StopReason = "no_growth"
	ReasonControlUnavailable StopReason = "control_unavailable"
	ReasonPresenceTimeout    StopReason = "presence_timeout"
)

// Config bounds the loader. Limit <= 0 means unbounded.
type Config struct {
	Limit           int
	PollInterval    time.Duration
	GrowthTimeout   time.Duration
	PresenceTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.GrowthTimeout <= 0 {
		c.GrowthTimeout = DefaultGrowthTimeout
	}
	if c.PresenceTimeout <= 0 {
		c.PresenceTimeout = DefaultPresenceTimeout
	}
	return c
}

// Result is the outcome of a load. Records never exceeds Config.Limit.
type Result struct {
	Records    []scraper.ListingRecord
	Reason     StopReason
	Expansions int
	Loaded     int
}

// Loader runs the load/expand state machine.
type Loader struct {
	src PageSource
	ext Extractor
	cfg Config
}

func New(src PageSource, ext Extractor, cfg Config) *Loader {
	return &Loader{src: src, ext: ext, cfg: cfg.withDefaults()}
}

type run struct {
	state      State
	count      int
	lastHTML   string
	reason     StopReason
	expansions int
}

// Load runs until StateDone and extracts records from a fresh snapshot. It
// only fails when ctx is cancelled; stalls and timeouts end the load with
// whatever was loaded.
func (l *Loader) Load(ctx context.Context) (Result, error) {
	r := &run{state: StateLoading}
	for r.state != StateDone {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		next, err := l.step(ctx, r)
		if err != nil {
			return Result{}, err
		}
		slog.Debug("loader transition", "from", r.state.String(), "to", next.String(), "count", r.count)
		r.state = next
	}
	return l.finish(ctx, r)
}

func (l *Loader) step(ctx context.Context, r *run) (State, error) {
	switch r.state {
	case StateLoading:
		return l.stepLoading(ctx, r)
	case StateExpanding:
		return l.stepExpanding(ctx, r)
	case StateStalled:
		return StateDone, nil
	default:
		return StateDone, nil
	}
}

func (l *Loader) stepLoading(ctx context.Context, r *run) (State, error) {
	if r.count == 0 {
		present, err := l.poll(ctx, l.cfg.PresenceTimeout, false, func(n int) bool { return n > 0 }, r)
		if err != nil {
			return StateDone, err
		}
		if !present {
			slog.Warn("timed out waiting for results", "timeout", l.cfg.PresenceTimeout)
			r.reason = ReasonPresenceTimeout
			return StateDone, nil
		}
	}
	slog.Info("movies loaded so far", "count", r.count)

	if l.limitReached(r.count) {
		slog.Info("reached limit", "limit", l.cfg.Limit, "count", r.count)
		r.reason = ReasonLimitReached
		return StateDone, nil
	}
	return StateExpanding, nil
}

func (l *Loader) stepExpanding(ctx context.Context, r *run) (State, error) {
	ok, err := l.src.RequestMore(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return StateDone, ctx.Err()
		}
		slog.Info("load more control not interactable", "error", err)
		r.reason = ReasonControlUnavailable
		return StateStalled, nil
	}
	if !ok {
		slog.Info("load more control missing or disabled, all loaded", "count", r.count)
		r.reason = ReasonControlUnavailable
		return StateStalled, nil
	}
	r.expansions++

	prev := r.count
	grew, err := l.poll(ctx, l.cfg.GrowthTimeout, true, func(n int) bool { return n > prev }, r)
	if err != nil {
		return StateDone, err
	}
	if !grew {
		slog.Info("no new movies loaded, stopping", "count", r.count, "timeout", l.cfg.GrowthTimeout)
		r.reason = ReasonNoGrowth
		return StateStalled, nil
	}
	return StateLoading, nil
}

// poll snapshots the page every PollInterval until cond holds for the item
// count or timeout elapses. With waitFirst unset the first check is
// immediate.
func (l *Loader) poll(ctx context.Context, timeout time.Duration, waitFirst bool, cond func(int) bool, r *run) (bool, error) {
	deadline := time.Now().Add(timeout)
	first := true
	for {
		if !first || waitFirst {
			if err := sleepWithContext(ctx, l.cfg.PollInterval); err != nil {
				return false, err
			}
		}
		first = false

		html, err := l.src.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			slog.Debug("snapshot failed while polling", "error", err)
		} else {
			r.lastHTML = html
			r.count = l.ext.Count(html)
			if cond(r.count) {
				return true, nil
			}
		}

		if !time.Now().Before(deadline) {
			return false, nil
		}
	}
}

func (l *Loader) limitReached(count int) bool {
	return l.cfg.Limit > 0 && count >= l.cfg.Limit
}

// finish re-reads the page so extraction reflects the terminal count.
func (l *Loader) finish(ctx context.Context, r *run) (Result, error) {
	html, err := l.src.Snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		slog.Warn("final snapshot failed, using last good snapshot", "error", err)
		html = r.lastHTML
	}

	var records []scraper.ListingRecord
	if html != "" {
		records = l.ext.Extract(html)
	}
	loaded := len(records)
	if l.cfg.Limit > 0 && len(records) > l.cfg.Limit {
		records = records[:l.cfg.Limit]
	}

	slog.Info("total movies loaded", "loaded", loaded, "kept", len(records), "reason", string(r.reason), "expansions", r.expansions)
	return Result{
		Records:    records,
		Reason:     r.reason,
		Expansions: r.expansions,
		Loaded:     loaded,
	}, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
