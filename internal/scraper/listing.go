package scraper

import (
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/baxromumarov/movie-harvester/internal/urlutil"
)

// Selectors for the IMDb advanced-search results page.
const (
	ItemSelector     = "li.ipc-metadata-list-summary-item"
	LoadMoreSelector = "button.ipc-see-more__button"

	titleLinkSelector = "a.ipc-title-link-wrapper"
	ratingSelector    = `span[aria-label*="IMDb rating:"]`
	ratingValSelector = "span.ipc-rating-star--rating"
	voteCountSelector = "span.ipc-rating-star--voteCount"
)

// ListingExtractor parses results-page snapshots into ListingRecords.
type ListingExtractor struct {
	base *url.URL
}

// NewListingExtractor builds an extractor resolving detail links against
// baseURL. An invalid baseURL leaves only absolute links resolvable.
func NewListingExtractor(baseURL string) *ListingExtractor {
	base, err := urlutil.ParseBase(baseURL)
	if err != nil {
		slog.Warn("listing extractor base url invalid", "url", baseURL, "error", err)
	}
	return &ListingExtractor{base: base}
}

// Extract returns one record per result item, in document order.
func (e *ListingExtractor) Extract(htmlContent string) []ListingRecord {
	doc, err := parseDocument(htmlContent)
	if err != nil {
		slog.Warn("listing parse failed", "error", err)
		return nil
	}

	items := doc.Find(ItemSelector)
	records := make([]ListingRecord, 0, items.Length())
	items.Each(func(_ int, s *goquery.Selection) {
		records = append(records, e.extractItem(s))
	})
	return records
}

// Count returns the number of result items in the snapshot.
func (e *ListingExtractor) Count(htmlContent string) int {
	doc, err := parseDocument(htmlContent)
	if err != nil {
		return 0
	}
	return doc.Find(ItemSelector).Length()
}

func (e *ListingExtractor) extractItem(s *goquery.Selection) ListingRecord {
	var rec ListingRecord

	link := s.Find(titleLinkSelector).First()
	if link.Length() > 0 {
		rec.Title = strings.TrimSpace(link.Text())
		if href, ok := link.Attr("href"); ok {
			rec.DetailURL = urlutil.Resolve(e.base, href)
		}
	}

	if rating := s.Find(ratingSelector).First(); rating.Length() > 0 {
		rec.Rating = strings.TrimSpace(rating.Find(ratingValSelector).First().Text())
	}

	if votes := s.Find(voteCountSelector).First(); votes.Length() > 0 {
		rec.Votes = ParseVoteCount(votes.Text())
	}
	return rec
}

func parseDocument(htmlContent string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

// ParseVoteCount parses compact vote counts such as "(12K)", "1,234" and
// "1.2M". Unparsable input logs and yields 0.
func ParseVoteCount(raw string) int {
	cleaned := strings.NewReplacer("\u00a0", "", "(", "", ")", "", ",", "").Replace(raw)
	cleaned = strings.ToUpper(strings.TrimSpace(cleaned))

	multiplier := 1.0
	switch {
	case strings.HasSuffix(cleaned, "K"):
		multiplier = 1_000
		cleaned = strings.TrimSuffix(cleaned, "K")
	case strings.HasSuffix(cleaned, "M"):
		multiplier = 1_000_000
		cleaned = strings.TrimSuffix(cleaned, "M")
	}

	if multiplier == 1 {
		n, err := strconv.Atoi(cleaned)
		if err != nil || n < 0 {
			slog.Warn("vote count parse failed", "raw", raw, "error", err)
			return 0
		}
		return n
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil || f < 0 {
		slog.Warn("vote count parse failed", "raw", raw, "error", err)
		return 0
	}
	return int(f * multiplier)
}
