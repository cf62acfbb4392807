package providers

import (
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-digest/pkg/httpclient"
)

// fetcherRegistry maps a lower-cased provider type to its fetcher.
type fetcherRegistry map[string]Fetcher

// NewFetcherRegistry builds a registry keyed by each fetcher's ID. Later
// fetchers replace earlier ones with the same ID.
func NewFetcherRegistry(fetchers ...Fetcher) FetcherRegistry {
	reg := make(fetcherRegistry, len(fetchers))
	for _, f := range fetchers {
		if f == nil {
			continue
		}
		reg[strings.ToLower(strings.TrimSpace(f.ID()))] = f
	}
	return reg
}

// FetcherFor selects the fetcher for the provider's type.
func (r fetcherRegistry) FetcherFor(cfg Provider) (Fetcher, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("provider %q has no type", cfg.ID)
	}
	if f, ok := r[strings.ToLower(cfg.Type)]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("no fetcher registered for provider type %q", cfg.Type)
}

// DefaultHTTPClient returns the client used when none is injected.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(15 * time.Second) }

// DefaultFetcherRegistry knows every built-in provider type.
func DefaultFetcherRegistry(client HTTPClient) FetcherRegistry {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return NewFetcherRegistry(
		NewSitemapFetcher(client),
		NewRSSFetcher(client),
		NewHTMLFetcher(client),
		NewStaticFetcher(),
	)
}
