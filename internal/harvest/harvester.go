// Package harvest acquires candidate articles for a target date from the configured sources.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
	"github.com/Adda-Baaj/khobor-digest/internal/logger"
	"github.com/Adda-Baaj/khobor-digest/pkg/providers"
)

// ErrAllSourcesFailed is returned when every enabled source failed.
var ErrAllSourcesFailed = errors.New("all sources failed")

// Acquirer produces zero or more candidate records for a target date.
type Acquirer interface {
	Acquire(ctx context.Context, targetDate string) ([]domain.Article, error)
}

// Enricher completes partially populated articles for a provider.
type Enricher interface {
	Enrich(ctx context.Context, cfg providers.Provider, articles []domain.Article) []domain.Article
}

// SourceLoader returns the provider definitions to fetch from.
type SourceLoader func() ([]providers.Provider, error)

// Harvester fetches every enabled provider and concatenates the results in
// provider order. A failing provider is logged and skipped unless all fail.
type Harvester struct {
	sources        SourceLoader
	registry       providers.FetcherRegistry
	enricher       Enricher
	log            logger.Logger
	maxConcurrency int
}

// Option customises a Harvester.
type Option func(*Harvester)

// WithEnricher sets the enricher used for providers with enrich enabled.
func WithEnricher(e Enricher) Option {
	return func(h *Harvester) { h.enricher = e }
}

// WithMaxConcurrency bounds how many providers are fetched at once.
func WithMaxConcurrency(n int) Option {
	return func(h *Harvester) {
		if n > 0 {
			h.maxConcurrency = n
		}
	}
}

// NewHarvester builds a Harvester.
func NewHarvester(sources SourceLoader, registry providers.FetcherRegistry, log logger.Logger, opts ...Option) *Harvester {
	h := &Harvester{
		sources:        sources,
		registry:       registry,
		log:            logger.Ensure(log),
		maxConcurrency: 1,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// FileSources loads providers from a sources file on each call.
func FileSources(path string) SourceLoader {
	return func() ([]providers.Provider, error) {
		return providers.LoadSources(path)
	}
}

type sourceResult struct {
	articles []domain.Article
	err      error
}

// Acquire fetches candidates for targetDate from all enabled providers.
func (h *Harvester) Acquire(ctx context.Context, targetDate string) ([]domain.Article, error) {
	if h.sources == nil || h.registry == nil {
		return nil, errors.New("harvester is not configured")
	}

	all, err := h.sources()
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	enabled := providers.EnabledProviders(all)
	if len(enabled) == 0 {
		h.log.WarnObj("no enabled sources", "harvest_no_sources", map[string]any{
			"configured": len(all),
		})
		return []domain.Article{}, nil
	}

	h.log.InfoObj("acquiring candidates", "stage_start", map[string]any{
		"stage":       "acquire",
		"sources":     len(enabled),
		"target_date": targetDate,
	})

	results := make([]sourceResult, len(enabled))
	sem := make(chan struct{}, h.maxConcurrency)
	var wg sync.WaitGroup

	for idx, cfg := range enabled {
		wg.Add(1)
		go func(idx int, cfg providers.Provider) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[idx] = sourceResult{err: ctx.Err()}
				return
			}
			defer func() { <-sem }()
			results[idx] = h.fetchOne(ctx, cfg, targetDate)
		}(idx, cfg)
	}
	wg.Wait()

	var (
		candidates []domain.Article
		errs       []error
	)
	for idx, res := range results {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", enabled[idx].ID, res.err))
			continue
		}
		candidates = append(candidates, res.articles...)
	}

	if len(errs) == len(enabled) {
		return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(errs...))
	}
	if candidates == nil {
		candidates = []domain.Article{}
	}

	h.log.InfoObj("candidates acquired", "stage_done", map[string]any{
		"stage":          "acquire",
		"candidates":     len(candidates),
		"failed_sources": len(errs),
	})
	return candidates, nil
}

func (h *Harvester) fetchOne(ctx context.Context, cfg providers.Provider, targetDate string) sourceResult {
	started := time.Now()

	fetcher, err := h.registry.FetcherFor(cfg)
	if err != nil {
		h.logSourceError(cfg, err)
		return sourceResult{err: err}
	}

	articles, err := fetcher.Fetch(ctx, cfg, targetDate)
	if err != nil {
		h.logSourceError(cfg, err)
		return sourceResult{err: err}
	}

	if cfg.Enrich && h.enricher != nil {
		articles = h.enricher.Enrich(ctx, cfg, articles)
	}

	h.log.InfoObj("source fetched", "source_done", map[string]any{
		"provider_id": cfg.ID,
		"type":        cfg.Type,
		"articles":    len(articles),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return sourceResult{articles: articles}
}

func (h *Harvester) logSourceError(cfg providers.Provider, err error) {
	h.log.ErrorObj("source fetch failed", "source_error", map[string]any{
		"provider_id": cfg.ID,
		"type":        cfg.Type,
		"error":       err.Error(),
	})
}
