package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
)

// staticFetcher serves records declared inline in the sources file.
type staticFetcher struct{}

// NewStaticFetcher builds a Fetcher for static providers.
func NewStaticFetcher() Fetcher {
	return staticFetcher{}
}

func (staticFetcher) ID() string {
	return ProviderTypeStatic
}

// Fetch returns the configured items; items without a date are dated targetDate.
func (staticFetcher) Fetch(ctx context.Context, cfg Provider, targetDate string) ([]domain.Article, error) {
	if !strings.EqualFold(cfg.Type, ProviderTypeStatic) {
		return nil, fmt.Errorf("static fetcher received incompatible provider type %q", cfg.Type)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, len(cfg.Items))
	for _, item := range cfg.Items {
		date := strings.TrimSpace(item.Date)
		if date == "" {
			date = targetDate
		}
		articles = append(articles, domain.Article{
			Title:   strings.TrimSpace(item.Title),
			Summary: strings.TrimSpace(item.Summary),
			Date:    date,
			Source:  cfg.DisplayName(),
			URL:     strings.TrimSpace(item.URL),
		})
	}
	return limit(cfg, articles), nil
}
