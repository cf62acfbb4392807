package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
)

// rssFetcher implements Fetcher for RSS and Atom feeds.
type rssFetcher struct {
	client HTTPClient
}

// NewRSSFetcher builds a Fetcher for RSS/Atom providers.
func NewRSSFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &rssFetcher{client: client}
}

func (f *rssFetcher) ID() string {
	return ProviderTypeRSS
}

// Fetch downloads and parses the provider's feed.
func (f *rssFetcher) Fetch(ctx context.Context, cfg Provider, _ string) ([]domain.Article, error) {
	if !strings.EqualFold(cfg.Type, ProviderTypeRSS) {
		return nil, fmt.Errorf("rss fetcher received incompatible provider type %q", cfg.Type)
	}
	if strings.TrimSpace(cfg.SourceURL) == "" {
		return nil, fmt.Errorf("provider %q source_url is empty", cfg.ID)
	}

	body, err := fetchBody(ctx, f.client, cfg.SourceURL, cfg.ID, "feed", Headers(cfg))
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s feed: %w", cfg.ID, err)
	}

	articles := make([]domain.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link := itemLink(item)
		if link == "" {
			continue
		}

		articles = append(articles, domain.Article{
			Title:   plainText(item.Title),
			Summary: firstNonEmpty(plainText(item.Description), plainText(item.Content)),
			Date:    itemDate(item),
			Source:  cfg.DisplayName(),
			URL:     link,
		})
	}
	return limit(cfg, articles), nil
}

// itemLink prefers the explicit link, falling back to a GUID that looks like a URL.
func itemLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	if guid := strings.TrimSpace(item.GUID); strings.HasPrefix(guid, "http") {
		return guid
	}
	return ""
}

// itemDate renders the published (or updated) time as RFC 3339, keeping the raw text when unparsed.
func itemDate(item *gofeed.Item) string {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.Format(time.RFC3339)
	case strings.TrimSpace(item.Published) != "":
		return strings.TrimSpace(item.Published)
	default:
		return strings.TrimSpace(item.Updated)
	}
}
