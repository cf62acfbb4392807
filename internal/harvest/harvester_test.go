package harvest_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
	"github.com/Adda-Baaj/khobor-digest/internal/harvest"
	"github.com/Adda-Baaj/khobor-digest/pkg/providers"
)

type stubFetcher struct {
	typ     string
	delay   map[string]time.Duration
	fail    map[string]bool
	results map[string][]domain.Article
}

func (s *stubFetcher) ID() string { return s.typ }

func (s *stubFetcher) Fetch(ctx context.Context, cfg providers.Provider, _ string) ([]domain.Article, error) {
	if d := s.delay[cfg.ID]; d > 0 {
		time.Sleep(d)
	}
	if s.fail[cfg.ID] {
		return nil, errors.New("boom")
	}
	return s.results[cfg.ID], nil
}

type countingEnricher struct{ calls atomic.Int32 }

func (e *countingEnricher) Enrich(_ context.Context, _ providers.Provider, in []domain.Article) []domain.Article {
	e.calls.Add(1)
	out := make([]domain.Article, len(in))
	for i, a := range in {
		a.Summary = "enriched"
		out[i] = a
	}
	return out
}

func staticSources(ps ...providers.Provider) harvest.SourceLoader {
	return func() ([]providers.Provider, error) { return ps, nil }
}

func disabled() *bool { f := false; return &f }

func TestAcquireConcatenatesInProviderOrder(t *testing.T) {
	f := &stubFetcher{
		typ:   "stub",
		delay: map[string]time.Duration{"first": 30 * time.Millisecond},
		results: map[string][]domain.Article{
			"first":  {{Title: "1a"}, {Title: "1b"}},
			"second": {{Title: "2a"}},
			"off":    {{Title: "never"}},
		},
	}
	h := harvest.NewHarvester(staticSources(
		providers.Provider{ID: "first", Type: "stub"},
		providers.Provider{ID: "off", Type: "stub", Enabled: disabled()},
		providers.Provider{ID: "second", Type: "stub"},
	), providers.NewFetcherRegistry(f), nil, harvest.WithMaxConcurrency(4))

	got, err := h.Acquire(context.Background(), "2024-05-01")
	require.NoError(t, err)

	titles := []string{}
	for _, a := range got {
		titles = append(titles, a.Title)
	}
	assert.Equal(t, []string{"1a", "1b", "2a"}, titles)
}

func TestAcquirePartialFailureContinues(t *testing.T) {
	f := &stubFetcher{
		typ:     "stub",
		fail:    map[string]bool{"bad": true},
		results: map[string][]domain.Article{"good": {{Title: "ok"}}},
	}
	h := harvest.NewHarvester(staticSources(
		providers.Provider{ID: "bad", Type: "stub"},
		providers.Provider{ID: "good", Type: "stub"},
		providers.Provider{ID: "unknown", Type: "nope"},
	), providers.NewFetcherRegistry(f), nil)

	got, err := h.Acquire(context.Background(), "2024-05-01")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Title)
}

func TestAcquireAllFailedIsFatal(t *testing.T) {
	f := &stubFetcher{typ: "stub", fail: map[string]bool{"a": true, "b": true}}
	h := harvest.NewHarvester(staticSources(
		providers.Provider{ID: "a", Type: "stub"},
		providers.Provider{ID: "b", Type: "stub"},
	), providers.NewFetcherRegistry(f), nil)

	_, err := h.Acquire(context.Background(), "2024-05-01")
	require.ErrorIs(t, err, harvest.ErrAllSourcesFailed)
	assert.Contains(t, err.Error(), "source a")
	assert.Contains(t, err.Error(), "source b")
}

func TestAcquireSourceLoadFailureIsFatal(t *testing.T) {
	h := harvest.NewHarvester(func() ([]providers.Provider, error) {
		return nil, errors.New("no file")
	}, providers.NewFetcherRegistry(), nil)

	_, err := h.Acquire(context.Background(), "2024-05-01")
	require.Error(t, err)
}

func TestAcquireNoEnabledSourcesIsEmpty(t *testing.T) {
	h := harvest.NewHarvester(staticSources(
		providers.Provider{ID: "off", Type: "stub", Enabled: disabled()},
	), providers.NewFetcherRegistry(), nil)

	got, err := h.Acquire(context.Background(), "2024-05-01")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAcquireEnrichesOptedInProviders(t *testing.T) {
	f := &stubFetcher{
		typ: "stub",
		results: map[string][]domain.Article{
			"rich":  {{Title: "r"}},
			"plain": {{Title: "p"}},
		},
	}
	enricher := &countingEnricher{}
	h := harvest.NewHarvester(staticSources(
		providers.Provider{ID: "rich", Type: "stub", Enrich: true},
		providers.Provider{ID: "plain", Type: "stub"},
	), providers.NewFetcherRegistry(f), nil, harvest.WithEnricher(enricher))

	got, err := h.Acquire(context.Background(), "2024-05-01")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "enriched", got[0].Summary)
	assert.Empty(t, got[1].Summary)
	assert.Equal(t, int32(1), enricher.calls.Load())
}

func TestAcquireWithStaticProviderFile(t *testing.T) {
	h := harvest.NewHarvester(staticSources(providers.Provider{
		ID:    "sample",
		Name:  "Sample",
		Type:  providers.ProviderTypeStatic,
		Items: []providers.StaticItem{{Title: "T", Summary: "S", URL: "https://example.com/t"}},
	}), providers.DefaultFetcherRegistry(nil), nil)

	got, err := h.Acquire(context.Background(), "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, []domain.Article{{Title: "T", Summary: "S", Date: "2024-05-01", Source: "Sample", URL: "https://example.com/t"}}, got)
}
