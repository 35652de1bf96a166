package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/baxromumarov/movie-harvester/internal/httpx"
	"github.com/baxromumarov/movie-harvester/internal/scraper"
)

const (
	ErrorNetwork   = "network"
	ErrorTimeout   = "timeout"
	ErrorParsing   = "parsing"
	ErrorRateLimit = "rate_limit"
	ErrorStore     = "store"
	ErrorUnknown   = "unknown"
)

func ClassifyFetchError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrorTimeout
	}
	var de *scraper.DetailError
	if errors.As(err, &de) && de.Stage == "parse" {
		return ErrorParsing
	}
	var fe *httpx.FetchError
	if errors.As(err, &fe) {
		switch {
		case fe.Status == http.StatusTooManyRequests:
			return ErrorRateLimit
		default:
			return ErrorNetwork
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") {
		return ErrorTimeout
	}
	if de != nil {
		return ErrorNetwork
	}
	return ErrorUnknown
}
