package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
)

const defaultLinkSelector = "a"

// htmlFetcher implements Fetcher for listing pages described by CSS selectors.
type htmlFetcher struct {
	client HTTPClient
}

// NewHTMLFetcher builds a Fetcher for HTML listing providers.
func NewHTMLFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &htmlFetcher{client: client}
}

func (f *htmlFetcher) ID() string {
	return ProviderTypeHTML
}

// Fetch downloads the listing page and extracts one article per item node.
func (f *htmlFetcher) Fetch(ctx context.Context, cfg Provider, _ string) ([]domain.Article, error) {
	if !strings.EqualFold(cfg.Type, ProviderTypeHTML) {
		return nil, fmt.Errorf("html fetcher received incompatible provider type %q", cfg.Type)
	}
	if cfg.Selectors == nil || cfg.Selectors.Item == "" {
		return nil, fmt.Errorf("provider %q has no item selector", cfg.ID)
	}

	body, err := fetchBody(ctx, f.client, cfg.SourceURL, cfg.ID, "listing page", Headers(cfg))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s listing page: %w", cfg.ID, err)
	}

	sel := *cfg.Selectors
	if sel.Link == "" {
		sel.Link = defaultLinkSelector
	}

	var articles []domain.Article
	doc.Find(sel.Item).Each(func(_ int, node *goquery.Selection) {
		link := resolveURL(linkHref(node, sel.Link), cfg.SourceURL)
		articles = append(articles, domain.Article{
			Title:   plainText(findText(node, sel.Title)),
			Summary: plainText(findText(node, sel.Summary)),
			Date:    findDate(node, sel.Date, sel.DateAttr),
			Source:  cfg.DisplayName(),
			URL:     link,
		})
	})

	return limit(cfg, articles), nil
}

// findText returns the text of the first match of selector inside node.
func findText(node *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(node.Find(selector).First().Text())
}

// linkHref returns href from the first match of selector, or from node itself when it is the anchor.
func linkHref(node *goquery.Selection, selector string) string {
	if href, ok := node.Find(selector).First().Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	if href, ok := node.Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	return ""
}

// findDate reads attr from the date node (datetime by default) and falls back to its text.
func findDate(node *goquery.Selection, selector, attr string) string {
	if selector == "" {
		return ""
	}
	match := node.Find(selector).First()
	if match.Length() == 0 {
		return ""
	}
	if attr == "" {
		attr = "datetime"
	}
	if val, ok := match.Attr(attr); ok && strings.TrimSpace(val) != "" {
		return strings.TrimSpace(val)
	}
	return strings.TrimSpace(match.Text())
}

// resolveURL resolves a possibly relative URL against a base URL.
func resolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}

	return baseURL.ResolveReference(parsed).String()
}
