package scraper

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullDetailPage = `<html><body>
<div class="sc-f9ad6c98-0 bqDcCk">
  <h1 data-testid="hero__pageTitle"><span>Dune: Part Two</span></h1>
  <ul class="ipc-inline-list">
    <li><a href="/releaseinfo">2024</a></li>
    <li><a href="/parentalguide">PG-13</a></li>
    <li>2h 46m</li>
  </ul>
</div>
<div data-testid="interests">
  <a class="ipc-chip ipc-chip--on-baseAlt" href="/interest/1"><span class="ipc-chip__text">Action</span></a>
  <a class="ipc-chip ipc-chip--on-baseAlt" href="/interest/2"><span class="ipc-chip__text">Adventure</span></a>
  <a class="ipc-chip ipc-chip--on-baseAlt" href="/interest/3"></a>
  <a class="ipc-chip ipc-chip--on-baseAlt" href="/interest/4"><span class="ipc-chip__text">Sci-Fi</span></a>
</div>
</body></html>`

type stubGetter struct {
	status int
	body   string
	err    error
	calls  int
	sawCtx bool
}

func (g *stubGetter) Get(ctx context.Context, _ string) (int, []byte, error) {
	g.calls++
	_, g.sawCtx = ctx.Deadline()
	return g.status, []byte(g.body), g.err
}

func TestParseDetails_Full(t *testing.T) {
	d, err := ParseDetails(fullDetailPage)
	require.NoError(t, err)
	assert.Equal(t, "Action, Adventure, Sci-Fi", d.Genres)
	assert.Equal(t, "2h 46m", d.DurationRaw)
}

func TestParseDetails_Empty(t *testing.T) {
	d, err := ParseDetails(`<html><body><p>nothing here</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, Details{}, d)
}

func TestParseDetails_FieldsIndependent(t *testing.T) {
	genresOnly := `<div data-testid="interests"><a class="ipc-chip ipc-chip--on-baseAlt"><span class="ipc-chip__text">Drama</span></a></div>`
	d, err := ParseDetails(genresOnly)
	require.NoError(t, err)
	assert.Equal(t, Details{Genres: "Drama"}, d)

	durationOnly := `<div><h1 data-testid="hero__pageTitle">X</h1><ul class="ipc-inline-list"><li>2023</li><li>R</li><li>45m</li></ul></div>`
	d, err = ParseDetails(durationOnly)
	require.NoError(t, err)
	assert.Equal(t, Details{DurationRaw: "45m"}, d)
}

func TestParseDetails_ThirdItemNotRuntime(t *testing.T) {
	page := `<div class="sc-f9ad6c98-0 bqDcCk"><ul class="ipc-inline-list"><li>TV Movie</li><li>2024</li><li>TV-MA</li></ul></div>`
	d, err := ParseDetails(page)
	require.NoError(t, err)
	assert.Equal(t, "", d.DurationRaw)

	short := `<div class="sc-f9ad6c98-0 bqDcCk"><ul class="ipc-inline-list"><li>2024</li><li>1h 30m</li></ul></div>`
	d, err = ParseDetails(short)
	require.NoError(t, err)
	assert.Equal(t, "", d.DurationRaw)
}

func TestHTTPDetailFetcher_Success(t *testing.T) {
	g := &stubGetter{status: http.StatusOK, body: fullDetailPage}
	f := NewHTTPDetailFetcher(g, time.Second)

	d, err := f.FetchDetails(context.Background(), "https://www.imdb.com/title/tt1/")
	require.NoError(t, err)
	assert.Equal(t, "2h 46m", d.DurationRaw)
	assert.Equal(t, 1, g.calls)
	assert.True(t, g.sawCtx, "request must carry a deadline")
}

func TestHTTPDetailFetcher_Failures(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		getter *stubGetter
		stage  string
	}{
		{"network error", "https://x.test/1", &stubGetter{err: errors.New("connection reset")}, "fetch"},
		{"http error", "https://x.test/2", &stubGetter{status: http.StatusNotFound}, "fetch"},
		{"empty url", "", &stubGetter{status: http.StatusOK}, "fetch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewHTTPDetailFetcher(tt.getter, 0)
			d, err := f.FetchDetails(context.Background(), tt.url)
			assert.Equal(t, Details{}, d)

			var de *DetailError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.stage, de.Stage)
			assert.Equal(t, tt.url, de.URL)
		})
	}
}
