package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/movie-harvester/internal/httpx"
	"github.com/baxromumarov/movie-harvester/internal/scraper"
)

func TestClassifyFetchError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ErrorUnknown},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), ErrorTimeout},
		{"rate limit", &scraper.DetailError{Stage: "fetch", Err: &httpx.FetchError{Status: http.StatusTooManyRequests}}, ErrorRateLimit},
		{"server error", &httpx.FetchError{Status: 502, Err: errors.New("bad gateway")}, ErrorNetwork},
		{"parse", &scraper.DetailError{Stage: "parse", Err: errors.New("eof")}, ErrorParsing},
		{"plain detail", &scraper.DetailError{Stage: "fetch", Err: errors.New("empty url")}, ErrorNetwork},
		{"timeout text", errors.New("Client.Timeout exceeded"), ErrorTimeout},
		{"other", errors.New("boom"), ErrorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFetchError(tt.err))
		})
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveLoad("limit_reached", 120, 2, 3*time.Second)
	m.IncDetailFetch("ok")
	m.IncDetailFetch("degraded")
	m.IncDetailFetch("degraded")
	m.IncError("", "")
	m.AddMoviesStored("csv", 5)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("limit_reached")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.listingsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.detailFetches.WithLabelValues("degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues(ErrorUnknown, "unknown")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.moviesStored.WithLabelValues("csv")))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "harvester_detail_fetches_total")
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.ObserveLoad("", 0, 0, 0)
	r.IncDetailFetch("ok")
	r.IncError("x", "y")
	r.ObserveFetchLatency(time.Second)
	r.AddMoviesStored("db", 1)
}
