// Package pipeline merges persisted and freshly acquired articles into a single
// duplicate-free collection scoped to one calendar date.
package pipeline

import (
	"time"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
	"github.com/Adda-Baaj/khobor-digest/internal/logger"
)

// Pipeline runs validate, deduplicate and date filter over a merged batch.
// Dropped records are reported to the logger and never abort a run.
type Pipeline struct {
	log logger.Logger
	now func() time.Time
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the clock used for the last-updated marker.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New builds a Pipeline reporting to log.
func New(log logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{log: logger.Ensure(log), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MissingFields lists the required fields that are empty on a.
func MissingFields(a domain.Article) []string {
	var missing []string
	for _, f := range []struct {
		name, val string
	}{
		{"title", a.Title},
		{"summary", a.Summary},
		{"date", a.Date},
		{"source", a.Source},
		{"url", a.URL},
	} {
		if f.val == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Validate reports whether all five fields of a are non-empty.
func Validate(a domain.Article) bool {
	return len(MissingFields(a)) == 0
}

// Deduplicate keeps the first valid record for each exact title, in input order.
func (p *Pipeline) Deduplicate(records []domain.Article) []domain.Article {
	out := make([]domain.Article, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for idx, rec := range records {
		if missing := MissingFields(rec); len(missing) > 0 {
			p.log.WarnObj("skipping incomplete record", "record_invalid", map[string]any{
				"index":          idx,
				"title":          rec.Title,
				"url":            rec.URL,
				"missing_fields": missing,
			})
			continue
		}

		if _, dup := seen[rec.Title]; dup {
			p.log.WarnObj("skipping duplicate record", "record_duplicate", map[string]any{
				"index":  idx,
				"title":  rec.Title,
				"source": rec.Source,
			})
			continue
		}

		seen[rec.Title] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// FilterByDate keeps records whose normalized date equals target.
func (p *Pipeline) FilterByDate(records []domain.Article, target string) []domain.Article {
	out := make([]domain.Article, 0, len(records))
	for _, rec := range records {
		day, err := NormalizeDate(rec.Date)
		if err != nil {
			p.log.DebugObj("excluding record with unparseable date", "record_date_unparseable", map[string]any{
				"title": rec.Title,
				"date":  rec.Date,
				"error": err.Error(),
			})
			continue
		}
		if day != target {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Stats counts records at each stage of a run.
type Stats struct {
	Persisted  int `json:"persisted"`
	Candidates int `json:"candidates"`
	Unique     int `json:"unique"`
	Matched    int `json:"matched"`
}

// Run merges persisted before candidates, deduplicates, filters by target and
// stamps the result with today's date. Neither input is modified.
func (p *Pipeline) Run(persisted domain.Collection, candidates []domain.Article, target string) domain.Collection {
	out, _ := p.Process(persisted, candidates, target)
	return out
}

// Process is Run that also reports per-stage counts.
func (p *Pipeline) Process(persisted domain.Collection, candidates []domain.Article, target string) (domain.Collection, Stats) {
	merged := make([]domain.Article, 0, len(persisted.News)+len(candidates))
	merged = append(merged, persisted.News...)
	merged = append(merged, candidates...)

	p.log.InfoObj("merging records", "stage_start", map[string]any{
		"stage":      "deduplicate",
		"persisted":  len(persisted.News),
		"candidates": len(candidates),
	})
	unique := p.Deduplicate(merged)

	p.log.InfoObj("filtering by date", "stage_start", map[string]any{
		"stage":       "filter",
		"unique":      len(unique),
		"target_date": target,
	})
	final := p.FilterByDate(unique, target)

	stats := Stats{
		Persisted:  len(persisted.News),
		Candidates: len(candidates),
		Unique:     len(unique),
		Matched:    len(final),
	}
	p.log.InfoObj("pipeline finished", "stage_done", map[string]any{
		"stage":   "pipeline",
		"merged":  len(merged),
		"unique":  stats.Unique,
		"matched": stats.Matched,
	})

	return domain.Collection{
		LastUpdated: p.now().UTC().Format(domain.DateLayout),
		News:        final,
	}, stats
}
