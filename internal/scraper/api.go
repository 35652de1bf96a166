package scraper

import "context"

// ListingRecord is one result item as it appears on the search-results page.
type ListingRecord struct {
	Title     string
	Rating    string
	Votes     int
	DetailURL string
}

// Details holds the fields fetched from a title's detail page.
type Details struct {
	Genres      string
	DurationRaw string
}

// EnrichedRecord is a ListingRecord plus its detail-page fields.
type EnrichedRecord struct {
	ListingRecord
	Details
}

// Enrich returns a copy of l carrying d.
func (l ListingRecord) Enrich(d Details) EnrichedRecord {
	return EnrichedRecord{ListingRecord: l, Details: d}
}

// DetailFetcher fetches genre and runtime for one detail URL. Implementations
// never fail: errors degrade to empty Details and are reported via the
// second return value for logging only.
type DetailFetcher interface {
	FetchDetails(ctx context.Context, detailURL string) (Details, error)
}

// Getter is the HTTP collaborator used by the detail fetcher.
type Getter interface {
	Get(ctx context.Context, rawURL string) (status int, body []byte, err error)
}
