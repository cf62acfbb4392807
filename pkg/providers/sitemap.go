package providers

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
	"github.com/Adda-Baaj/khobor-digest/internal/pipeline"
	"github.com/Adda-Baaj/khobor-digest/pkg/httpclient"
)

// maxSitemapDocuments bounds how many index and urlset documents one fetch reads.
const maxSitemapDocuments = 50

// sitemapDocument decodes both <urlset> and <sitemapindex> roots.
type sitemapDocument struct {
	URLs     []sitemapURL `xml:"url"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
	News    struct {
		PublicationDate string `xml:"publication_date"`
		Title           string `xml:"title"`
	} `xml:"news"`
}

// sitemapFetcher implements Fetcher for Google News style sitemaps.
type sitemapFetcher struct {
	client HTTPClient
}

// NewSitemapFetcher builds a Fetcher for sitemap providers.
func NewSitemapFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &sitemapFetcher{client: client}
}

func (f *sitemapFetcher) ID() string {
	return ProviderTypeSitemap
}

// Fetch walks the sitemap (following indexes breadth first) and returns the
// entries published on targetDate. Entries with an unreadable date are kept
// and left for the date filter to judge.
func (f *sitemapFetcher) Fetch(ctx context.Context, cfg Provider, targetDate string) ([]domain.Article, error) {
	if !strings.EqualFold(cfg.Type, ProviderTypeSitemap) {
		return nil, fmt.Errorf("sitemap fetcher received incompatible provider type %q", cfg.Type)
	}
	if strings.TrimSpace(cfg.SourceURL) == "" {
		return nil, fmt.Errorf("provider %q source_url is empty", cfg.ID)
	}

	entries, err := f.collect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s sitemap returned no entries", cfg.ID)
	}

	articles := make([]domain.Article, 0, len(entries))
	for _, entry := range entries {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" {
			continue
		}
		date := strings.TrimSpace(firstNonEmpty(entry.News.PublicationDate, entry.LastMod))
		if day, err := pipeline.NormalizeDate(date); err == nil && targetDate != "" && day != targetDate {
			continue
		}
		// Sitemaps carry no summary; enrichment fills it from the article page.
		articles = append(articles, domain.Article{
			Title:  strings.TrimSpace(entry.News.Title),
			Date:   date,
			Source: cfg.DisplayName(),
			URL:    loc,
		})
	}
	return limit(cfg, articles), nil
}

func (f *sitemapFetcher) collect(ctx context.Context, cfg Provider) ([]sitemapURL, error) {
	headers := Headers(cfg)
	queue := []string{strings.TrimSpace(cfg.SourceURL)}
	visited := make(map[string]struct{})

	var entries []sitemapURL
	for len(queue) > 0 && len(visited) < maxSitemapDocuments {
		next := queue[0]
		queue = queue[1:]
		if _, seen := visited[next]; seen || next == "" {
			continue
		}
		visited[next] = struct{}{}

		raw, err := fetchBody(ctx, f.client, next, cfg.ID, "sitemap", headers)
		if err != nil {
			return nil, err
		}

		var doc sitemapDocument
		if err := xml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s sitemap %s: %w", cfg.ID, next, err)
		}
		entries = append(entries, doc.URLs...)
		for _, child := range doc.Sitemaps {
			queue = append(queue, strings.TrimSpace(child.Loc))
		}
	}
	return entries, nil
}

// fetchBody retrieves url and fails on any non-200 status.
func fetchBody(ctx context.Context, client httpclient.Client, url, providerID, what string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", providerID, what, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s %s returned status %d body: %s", providerID, what, resp.StatusCode(), responseSnippet(body))
	}
	return body, nil
}

// responseSnippet returns a truncated snippet of the response body for error messages.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
