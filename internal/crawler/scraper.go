// Package crawler completes partially populated articles from their pages.
package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
	"github.com/Adda-Baaj/khobor-digest/internal/logger"
	"github.com/Adda-Baaj/khobor-digest/pkg/httpclient"
	"github.com/Adda-Baaj/khobor-digest/pkg/providers"
)

const (
	maxHTMLBodyBytes  = 1 << 20 // 1 MiB
	maxArticleWorkers = 10
)

// Scraper fills missing titles, summaries and dates from page metadata.
type Scraper struct {
	client httpclient.Client
	log    logger.Logger
}

// NewScraper creates a new Scraper with the given HTTP client and logger.
func NewScraper(client httpclient.Client, log logger.Logger) *Scraper {
	if client == nil {
		client = providers.DefaultHTTPClient()
	}
	return &Scraper{client: client, log: logger.Ensure(log)}
}

// Enrich returns a copy of articles where every incomplete entry with a URL has
// had its empty fields filled from the page. Fields already set are never
// overwritten, and entries whose page cannot be scraped come back unchanged.
func (s *Scraper) Enrich(ctx context.Context, cfg providers.Provider, articles []domain.Article) []domain.Article {
	out := make([]domain.Article, len(articles))
	copy(out, articles)

	pending := make([]int, 0, len(articles))
	for idx, art := range articles {
		if needsEnrichment(art) && strings.TrimSpace(art.URL) != "" {
			pending = append(pending, idx)
		}
	}
	if len(pending) == 0 {
		return out
	}

	var limiter <-chan time.Time
	if delay := cfg.RequestDelay(); delay > 0 {
		ticker := time.NewTicker(delay)
		defer ticker.Stop()
		limiter = ticker.C
	}

	var (
		wg       sync.WaitGroup
		enriched atomic.Int32
		failed   atomic.Int32
		jobs     = make(chan int)
	)
	for workerID := range min(len(pending), maxArticleWorkers) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if limiter != nil {
					select {
					case <-ctx.Done():
						continue
					case <-limiter:
					}
				}
				if ctx.Err() != nil {
					continue
				}
				art, err := s.scrape(ctx, cfg, out[idx])
				if err != nil {
					failed.Add(1)
					s.log.WarnObj("article metadata scrape failed", "enrich_error", map[string]any{
						"worker_id":   workerID,
						"provider_id": cfg.ID,
						"url":         out[idx].URL,
						"error":       err.Error(),
					})
					continue
				}
				enriched.Add(1)
				out[idx] = art
			}
		}()
	}

feed:
	for _, idx := range pending {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()

	s.log.InfoObj("enrichment finished", "enrich_done", map[string]any{
		"provider_id": cfg.ID,
		"pending":     len(pending),
		"enriched":    enriched.Load(),
		"failed":      failed.Load(),
	})
	return out
}

// scrape fetches art's page and fills its empty fields.
func (s *Scraper) scrape(ctx context.Context, cfg providers.Provider, art domain.Article) (domain.Article, error) {
	resp, err := s.client.Get(ctx, art.URL, providers.Headers(cfg))
	if err != nil {
		return art, fmt.Errorf("http fetch: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return art, fmt.Errorf("status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return art, err
	}
	return meta.fill(art), nil
}

// pageMeta holds metadata extracted from an HTML page.
type pageMeta struct {
	Title       string
	Description string
	Published   string
}

// fill copies metadata into the empty fields of art.
func (m pageMeta) fill(art domain.Article) domain.Article {
	if strings.TrimSpace(art.Title) == "" {
		art.Title = m.Title
	}
	if strings.TrimSpace(art.Summary) == "" {
		art.Summary = m.Description
	}
	if strings.TrimSpace(art.Date) == "" {
		art.Date = m.Published
	}
	return art
}

// parseMeta reads Open Graph, article and plain HTML metadata.
func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	attr := func(sel, name string) string {
		val, _ := doc.Find(sel).First().Attr(name)
		return strings.TrimSpace(val)
	}

	return pageMeta{
		Title: firstNonEmpty(
			attr(`meta[property="og:title"]`, "content"),
			doc.Find("title").First().Text(),
		),
		Description: firstNonEmpty(
			attr(`meta[property="og:description"]`, "content"),
			attr(`meta[name="description"]`, "content"),
		),
		Published: firstNonEmpty(
			attr(`meta[property="article:published_time"]`, "content"),
			attr(`meta[itemprop="datePublished"]`, "content"),
			attr("time[datetime]", "datetime"),
		),
	}, nil
}

func needsEnrichment(art domain.Article) bool {
	return strings.TrimSpace(art.Title) == "" ||
		strings.TrimSpace(art.Summary) == "" ||
		strings.TrimSpace(art.Date) == ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
