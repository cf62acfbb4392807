package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
	"github.com/Adda-Baaj/khobor-digest/pkg/httpclient"
)

const (
	// Supported provider types.
	ProviderTypeSitemap = "sitemap"
	ProviderTypeRSS     = "rss"
	ProviderTypeHTML    = "html"
	ProviderTypeStatic  = "static"
)

// HTTPClient is the client fetchers use.
type HTTPClient = httpclient.Client

// Fetcher produces candidate articles for one provider.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, cfg Provider, targetDate string) ([]domain.Article, error)
}

// FetcherRegistry resolves the fetcher for a provider.
type FetcherRegistry interface {
	FetcherFor(cfg Provider) (Fetcher, error)
}

// sourcesFile represents the structure of the sources configuration file.
type sourcesFile struct {
	Providers []Provider `json:"providers" yaml:"providers"`
}

// Provider is a single news source declared in the sources file.
type Provider struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Type           string            `json:"type" yaml:"type"`
	SourceURL      string            `json:"source_url" yaml:"source_url"`
	Enabled        *bool             `json:"enabled" yaml:"enabled"`
	RequestDelayMs int               `json:"request_delay_ms" yaml:"request_delay_ms"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	Enrich         bool              `json:"enrich" yaml:"enrich"`
	MaxItems       int               `json:"max_items" yaml:"max_items"`
	Selectors      *HTMLSelectors    `json:"selectors" yaml:"selectors"`
	Items          []StaticItem      `json:"items" yaml:"items"`
}

// HTMLSelectors locate article fields on a listing page.
type HTMLSelectors struct {
	Item     string `json:"item" yaml:"item"`
	Title    string `json:"title" yaml:"title"`
	Summary  string `json:"summary" yaml:"summary"`
	Link     string `json:"link" yaml:"link"`
	Date     string `json:"date" yaml:"date"`
	DateAttr string `json:"date_attr" yaml:"date_attr"`
}

// StaticItem is a fixed record served by a static provider.
type StaticItem struct {
	Title   string `json:"title" yaml:"title"`
	Summary string `json:"summary" yaml:"summary"`
	URL     string `json:"url" yaml:"url"`
	Date    string `json:"date" yaml:"date"`
}

// DisplayName is the provenance label written to each article's source field.
func (cfg Provider) DisplayName() string {
	if cfg.Name != "" {
		return cfg.Name
	}
	return cfg.ID
}

// RequestDelay is the pause between consecutive requests to this provider.
func (cfg Provider) RequestDelay() time.Duration {
	if cfg.RequestDelayMs <= 0 {
		return 0
	}
	return time.Duration(cfg.RequestDelayMs) * time.Millisecond
}

// EnabledValue returns enabled flag defaulting to true.
func (cfg Provider) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}

// Headers returns a copy of the provider's request headers.
func Headers(cfg Provider) map[string]string {
	if len(cfg.Headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		out[k] = v
	}
	return out
}

// LoadSources loads provider definitions from a YAML/JSON file.
func LoadSources(path string) ([]Provider, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sources file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(raw)))

	parsed, err := parseSources(expanded, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	out := make([]Provider, 0, len(parsed.Providers))
	seen := make(map[string]struct{}, len(parsed.Providers))
	for i := range parsed.Providers {
		cfg := sanitizeProvider(parsed.Providers[i])
		if err := validateProvider(cfg); err != nil {
			return nil, fmt.Errorf("providers[%d]: %w", i, err)
		}
		if _, exists := seen[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate provider id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		out = append(out, cfg)
	}
	return out, nil
}

// EnabledProviders filters out disabled providers, preserving order.
func EnabledProviders(all []Provider) []Provider {
	out := make([]Provider, 0, len(all))
	for _, cfg := range all {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// parseSources attempts to decode the sources file content.
func parseSources(data []byte, ext string) (sourcesFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var lastErr error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var parsed sourcesFile
		if err := d.fn(data, &parsed); err != nil {
			lastErr = fmt.Errorf("decode %s sources: %w", d.name, err)
			continue
		}
		return parsed, nil
	}

	if lastErr != nil {
		return sourcesFile{}, lastErr
	}
	return sourcesFile{}, errors.New("sources file format not recognized (expected YAML or JSON)")
}

// sanitizeProvider trims and normalizes the provider fields.
func sanitizeProvider(cfg Provider) Provider {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	cfg.SourceURL = strings.TrimSpace(cfg.SourceURL)

	if cfg.Enabled == nil {
		def := true
		cfg.Enabled = &def
	}
	if len(cfg.Headers) > 0 {
		headers := make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			key, val := strings.TrimSpace(k), strings.TrimSpace(v)
			if key == "" || val == "" {
				continue
			}
			headers[key] = val
		}
		cfg.Headers = headers
	}
	if cfg.Selectors != nil {
		s := *cfg.Selectors
		s.Item = strings.TrimSpace(s.Item)
		s.Title = strings.TrimSpace(s.Title)
		s.Summary = strings.TrimSpace(s.Summary)
		s.Link = strings.TrimSpace(s.Link)
		s.Date = strings.TrimSpace(s.Date)
		s.DateAttr = strings.TrimSpace(s.DateAttr)
		cfg.Selectors = &s
	}
	return cfg
}

// validateProvider checks that required fields are present for the provider type.
func validateProvider(cfg Provider) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	switch cfg.Type {
	case ProviderTypeSitemap, ProviderTypeRSS:
		if cfg.SourceURL == "" {
			return fmt.Errorf("source_url is required for provider %q", cfg.ID)
		}
	case ProviderTypeHTML:
		if cfg.SourceURL == "" {
			return fmt.Errorf("source_url is required for provider %q", cfg.ID)
		}
		if cfg.Selectors == nil || cfg.Selectors.Item == "" || cfg.Selectors.Title == "" {
			return fmt.Errorf("selectors.item and selectors.title are required for provider %q", cfg.ID)
		}
	case ProviderTypeStatic:
		if len(cfg.Items) == 0 {
			return fmt.Errorf("items are required for static provider %q", cfg.ID)
		}
	case "":
		return fmt.Errorf("type is required for provider %q", cfg.ID)
	default:
		return fmt.Errorf("type %q not supported for provider %q", cfg.Type, cfg.ID)
	}
	if cfg.MaxItems < 0 {
		return fmt.Errorf("max_items must not be negative for provider %q", cfg.ID)
	}
	return nil
}

// limit trims articles to the provider's max_items.
func limit(cfg Provider, articles []domain.Article) []domain.Article {
	if cfg.MaxItems > 0 && len(articles) > cfg.MaxItems {
		return articles[:cfg.MaxItems]
	}
	return articles
}
