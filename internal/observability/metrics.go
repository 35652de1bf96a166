package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives pipeline events. Nop is used when metrics are off.
type Recorder interface {
	ObserveLoad(reason string, loaded, expansions int, d time.Duration)
	IncDetailFetch(result string)
	IncError(errType, component string)
	ObserveFetchLatency(d time.Duration)
	AddMoviesStored(sink string, n int)
}

// Metrics is the Prometheus-backed Recorder.
type Metrics struct {
	loads         *prometheus.CounterVec
	listingsTotal prometheus.Counter
	expansions    prometheus.Counter
	loadSeconds   prometheus.Histogram
	detailFetches *prometheus.CounterVec
	errors        *prometheus.CounterVec
	fetchSeconds  prometheus.Histogram
	moviesStored  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_loads_total",
			Help: "Listing loads by stop reason.",
		}, []string{"reason"}),
		listingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvester_listings_loaded_total",
			Help: "Result items present on the page when loading stopped.",
		}),
		expansions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvester_load_more_clicks_total",
			Help: "Accepted load-more requests.",
		}),
		loadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "harvester_load_duration_seconds",
			Help:    "Duration of the incremental listing load.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		}),
		detailFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_detail_fetches_total",
			Help: "Detail page fetches by result (ok, degraded, panic).",
		}, []string{"result"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_errors_total",
			Help: "Recovered errors by type and component.",
		}, []string{"type", "component"}),
		fetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "harvester_detail_fetch_duration_seconds",
			Help:    "Latency of a single detail fetch.",
			Buckets: prometheus.DefBuckets,
		}),
		moviesStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_movies_stored_total",
			Help: "Normalized movies written per sink.",
		}, []string{"sink"}),
	}

	reg.MustRegister(
		m.loads,
		m.listingsTotal,
		m.expansions,
		m.loadSeconds,
		m.detailFetches,
		m.errors,
		m.fetchSeconds,
		m.moviesStored,
	)
	return m
}

func (m *Metrics) ObserveLoad(reason string, loaded, expansions int, d time.Duration) {
	if reason == "" {
		reason = "unknown"
	}
	m.loads.WithLabelValues(reason).Inc()
	m.listingsTotal.Add(float64(loaded))
	m.expansions.Add(float64(expansions))
	m.loadSeconds.Observe(d.Seconds())
}

func (m *Metrics) IncDetailFetch(result string) {
	m.detailFetches.WithLabelValues(result).Inc()
}

func (m *Metrics) IncError(errType, component string) {
	if errType == "" {
		errType = ErrorUnknown
	}
	if component == "" {
		component = "unknown"
	}
	m.errors.WithLabelValues(errType, component).Inc()
}

func (m *Metrics) ObserveFetchLatency(d time.Duration) {
	m.fetchSeconds.Observe(d.Seconds())
}

func (m *Metrics) AddMoviesStored(sink string, n int) {
	m.moviesStored.WithLabelValues(sink).Add(float64(n))
}

// Nop discards all events.
type Nop struct{}

func (Nop) ObserveLoad(string, int, int, time.Duration) {}
func (Nop) IncDetailFetch(string)                       {}
func (Nop) IncError(string, string)                     {}
func (Nop) ObserveFetchLatency(time.Duration)           {}
func (Nop) AddMoviesStored(string, int)                 {}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
