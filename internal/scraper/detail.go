package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	interestsSelector = `div[data-testid="interests"]`
	genreChipSelector = "a.ipc-chip.ipc-chip--on-baseAlt"
	chipTextSelector  = "span.ipc-chip__text"

	titleBlockSelector = "div.sc-f9ad6c98-0.bqDcCk"
	heroTitleSelector  = `h1[data-testid="hero__pageTitle"]`
	inlineListSelector = "ul.ipc-inline-list"
)

// DefaultFetchTimeout bounds a single detail-page request.
const DefaultFetchTimeout = 10 * time.Second

var durationMarker = regexp.MustCompile(`\d+\s*[hm]\b`)

// DetailError records why one detail page could not be enriched.
type DetailError struct {
	URL   string
	Stage string // "fetch" or "parse"
	Err   error
}

func (e *DetailError) Error() string {
	return fmt.Sprintf("detail %s %s: %v", e.Stage, e.URL, e.Err)
}

func (e *DetailError) Unwrap() error { return e.Err }

// HTTPDetailFetcher fetches detail pages through a Getter and parses them.
type HTTPDetailFetcher struct {
	getter  Getter
	timeout time.Duration
}

// NewHTTPDetailFetcher returns a fetcher bounding each request by timeout.
// A non-positive timeout uses DefaultFetchTimeout.
func NewHTTPDetailFetcher(getter Getter, timeout time.Duration) *HTTPDetailFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPDetailFetcher{getter: getter, timeout: timeout}
}

// FetchDetails performs one bounded request. Any failure yields empty
// Details together with a *DetailError.
func (f *HTTPDetailFetcher) FetchDetails(ctx context.Context, detailURL string) (Details, error) {
	if strings.TrimSpace(detailURL) == "" {
		return Details{}, &DetailError{URL: detailURL, Stage: "fetch", Err: errors.New("empty url")}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	status, body, err := f.getter.Get(ctx, detailURL)
	if err != nil {
		return Details{}, &DetailError{URL: detailURL, Stage: "fetch", Err: err}
	}
	if status >= http.StatusBadRequest {
		return Details{}, &DetailError{URL: detailURL, Stage: "fetch", Err: fmt.Errorf("status %d", status)}
	}

	d, err := ParseDetails(string(body))
	if err != nil {
		return Details{}, &DetailError{URL: detailURL, Stage: "parse", Err: err}
	}
	return d, nil
}

// ParseDetails extracts genres and raw runtime from a detail page. Each
// field is extracted independently; a missing region leaves it empty.
func ParseDetails(htmlContent string) (Details, error) {
	doc, err := parseDocument(htmlContent)
	if err != nil {
		return Details{}, err
	}
	return Details{
		Genres:      extractGenres(doc),
		DurationRaw: extractDuration(doc),
	}, nil
}

func extractGenres(doc *goquery.Document) string {
	interests := doc.Find(interestsSelector).First()
	if interests.Length() == 0 {
		return ""
	}
	var genres []string
	interests.Find(genreChipSelector).Each(func(_ int, chip *goquery.Selection) {
		label := chip.Find(chipTextSelector).First()
		if label.Length() == 0 {
			return
		}
		if text := strings.TrimSpace(label.Text()); text != "" {
			genres = append(genres, text)
		}
	})
	return strings.Join(genres, ", ")
}

func extractDuration(doc *goquery.Document) string {
	list := metadataList(doc)
	if list.Length() == 0 {
		return ""
	}
	items := list.ChildrenFiltered("li")
	if items.Length() < 3 {
		return ""
	}
	text := strings.TrimSpace(items.Eq(2).Text())
	if !durationMarker.MatchString(text) {
		slog.Debug("third metadata item is not a runtime", "text", text)
		return ""
	}
	return text
}

// metadataList finds the inline list next to the title block.
func metadataList(doc *goquery.Document) *goquery.Selection {
	if list := doc.Find(titleBlockSelector).First().Find(inlineListSelector).First(); list.Length() > 0 {
		return list
	}
	hero := doc.Find(heroTitleSelector).First()
	if hero.Length() == 0 {
		return hero
	}
	return hero.Parent().ChildrenFiltered(inlineListSelector).First()
}
