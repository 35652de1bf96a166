package httpx

import (
	"context"
	"fmt"
)

const (
	EngineColly = "colly"
	EngineHTTP  = "http"
)

// Getter is satisfied by CollyFetcher and PoliteClient.
type Getter interface {
	Get(ctx context.Context, rawURL string) (int, []byte, error)
}

// NewGetter returns the fetch engine named by engine.
func NewGetter(engine string, opts Options) (Getter, error) {
	switch engine {
	case "", EngineColly:
		return NewCollyFetcher(opts), nil
	case EngineHTTP:
		return NewPoliteClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown fetch engine %q", engine)
	}
}
