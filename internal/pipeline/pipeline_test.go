package pipeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
	"github.com/Adda-Baaj/khobor-digest/internal/logger"
	"github.com/Adda-Baaj/khobor-digest/internal/pipeline"
)

func article(title, summary, date string) domain.Article {
	return domain.Article{Title: title, Summary: summary, Date: date, Source: "src", URL: "https://example.com/" + title}
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
}

func newObserved() (*pipeline.Pipeline, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return pipeline.New(logger.FromZap(zap.New(core)), pipeline.WithClock(fixedClock)), logs
}

func TestValidate(t *testing.T) {
	full := article("A", "s", "2024-05-01")
	assert.True(t, pipeline.Validate(full))

	cases := map[string]func(*domain.Article){
		"title":   func(a *domain.Article) { a.Title = "" },
		"summary": func(a *domain.Article) { a.Summary = "" },
		"date":    func(a *domain.Article) { a.Date = "" },
		"source":  func(a *domain.Article) { a.Source = "" },
		"url":     func(a *domain.Article) { a.URL = "" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			a := full
			mutate(&a)
			assert.False(t, pipeline.Validate(a))
			assert.Equal(t, []string{field}, pipeline.MissingFields(a))
		})
	}
}

func TestValidateAcceptsWhitespaceText(t *testing.T) {
	a := domain.Article{Title: " ", Summary: "s", Date: "2024-05-01", Source: "X", URL: "u"}
	assert.True(t, pipeline.Validate(a))
	assert.Empty(t, pipeline.MissingFields(a))

	a.Date = "  "
	assert.True(t, pipeline.Validate(a))
}

func TestDeduplicateFirstSeenWins(t *testing.T) {
	p, _ := newObserved()
	persisted := article("X", "old", "2024-05-01")
	candidate := article("X", "new", "2024-05-01")

	got := p.Deduplicate([]domain.Article{persisted, candidate})

	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].Summary)
}

func TestDeduplicateUniqueAndOrdered(t *testing.T) {
	p, _ := newObserved()
	in := []domain.Article{
		article("C", "1", "2024-05-01"),
		article("A", "2", "2024-05-01"),
		article("C", "3", "2024-05-01"),
		article("B", "4", "2024-05-01"),
		article("a", "5", "2024-05-01"),
		article("A", "6", "2024-05-01"),
	}

	got := p.Deduplicate(in)

	titles := make([]string, 0, len(got))
	for _, a := range got {
		titles = append(titles, a.Title)
	}
	assert.Equal(t, []string{"C", "A", "B", "a"}, titles)
	assert.Equal(t, []string{"1", "2", "4", "5"}, []string{got[0].Summary, got[1].Summary, got[2].Summary, got[3].Summary})
}

func TestDeduplicateDropsInvalidRegardlessOfUniqueness(t *testing.T) {
	p, logs := newObserved()
	incomplete := article("Only", "", "2024-05-01")

	got := p.Deduplicate([]domain.Article{incomplete})

	assert.Empty(t, got)
	invalid := logs.FilterField(zap.String("event", "record_invalid")).All()
	require.Len(t, invalid, 1)
	assert.Equal(t, "Only", invalid[0].ContextMap()["title"])
}

func TestDeduplicateInvalidDoesNotClaimTitle(t *testing.T) {
	p, _ := newObserved()
	in := []domain.Article{
		{Title: "T", Date: "2024-05-01"},
		article("T", "complete", "2024-05-01"),
	}

	got := p.Deduplicate(in)

	require.Len(t, got, 1)
	assert.Equal(t, "complete", got[0].Summary)
}

func TestDeduplicateReportsDuplicates(t *testing.T) {
	p, logs := newObserved()
	p.Deduplicate([]domain.Article{article("D", "1", "2024-05-01"), article("D", "2", "2024-05-01")})

	dups := logs.FilterField(zap.String("event", "record_duplicate")).All()
	require.Len(t, dups, 1)
	assert.Equal(t, "D", dups[0].ContextMap()["title"])
}

func TestFilterByDateNormalizes(t *testing.T) {
	p, _ := newObserved()
	in := []domain.Article{
		article("instant", "s", "2024-05-01T10:00:00Z"),
		article("next", "s", "2024-05-02"),
		article("plain", "s", "2024-05-01"),
		article("offset", "s", "2024-04-30T22:30:00-03:00"),
		article("garbage", "s", "not a date"),
	}

	got := p.FilterByDate(in, "2024-05-01")

	titles := []string{}
	for _, a := range got {
		titles = append(titles, a.Title)
	}
	assert.Equal(t, []string{"instant", "plain", "offset"}, titles)
}

func TestFilterByDateIdempotent(t *testing.T) {
	p, _ := newObserved()
	in := []domain.Article{
		article("a", "s", "2024-05-01"),
		article("b", "s", "2024-05-03"),
		article("c", "s", "2024-05-01T23:59:59Z"),
		article("d", "s", ""),
	}

	once := p.FilterByDate(in, "2024-05-01")
	twice := p.FilterByDate(once, "2024-05-01")

	assert.Equal(t, once, twice)
}

func TestFilterByDateKeepsDateText(t *testing.T) {
	p, _ := newObserved()
	got := p.FilterByDate([]domain.Article{article("a", "s", "2024-05-01T10:00:00Z")}, "2024-05-01")

	require.Len(t, got, 1)
	assert.Equal(t, "2024-05-01T10:00:00Z", got[0].Date)
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2024-05-01":                    "2024-05-01",
		"2024-05-01T10:00:00Z":          "2024-05-01",
		"2024-05-01T23:30:00-05:00":     "2024-05-02",
		"2024-05-01 08:00:00":           "2024-05-01",
		"Wed, 01 May 2024 10:00:00 GMT": "2024-05-01",
	}
	for in, want := range cases {
		got, err := pipeline.NormalizeDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := pipeline.NormalizeDate("")
	assert.Error(t, err)
	_, err = pipeline.NormalizeDate("yesterday-ish")
	assert.Error(t, err)
}

func TestRunEndToEndScenario(t *testing.T) {
	p, _ := newObserved()
	persisted := domain.Collection{
		LastUpdated: "2024-05-01",
		News: []domain.Article{
			{Title: "A", Summary: "s1", Date: "2024-04-30", Source: "X", URL: "u1"},
		},
	}
	candidates := []domain.Article{
		{Title: "A", Summary: "s1-new", Date: "2024-05-01", Source: "X", URL: "u1"},
		{Title: "B", Summary: "s2", Date: "2024-05-01", Source: "Y", URL: "u2"},
	}

	got, stats := p.Process(persisted, candidates, "2024-05-01")

	assert.Equal(t, domain.Collection{
		LastUpdated: "2024-05-02",
		News: []domain.Article{
			{Title: "B", Summary: "s2", Date: "2024-05-01", Source: "Y", URL: "u2"},
		},
	}, got)
	assert.Equal(t, pipeline.Stats{Persisted: 1, Candidates: 2, Unique: 2, Matched: 1}, stats)
}

func TestRunDoesNotMutateInputs(t *testing.T) {
	p, _ := newObserved()
	persisted := domain.Collection{
		LastUpdated: "2024-04-30",
		News:        []domain.Article{article("P", "s", "2024-04-30")},
	}
	candidates := []domain.Article{article("C", "s", "2024-05-01"), article("P", "s", "2024-05-01")}

	before := persisted
	beforeNews := append([]domain.Article(nil), persisted.News...)
	beforeCandidates := append([]domain.Article(nil), candidates...)

	got := p.Run(persisted, candidates, "2024-05-01")

	assert.Equal(t, before.LastUpdated, persisted.LastUpdated)
	assert.Equal(t, beforeNews, persisted.News)
	assert.Equal(t, beforeCandidates, candidates)
	require.Len(t, got.News, 1)
	assert.Equal(t, "C", got.News[0].Title)
}

func TestRunEmptyInputs(t *testing.T) {
	p := pipeline.New(nil, pipeline.WithClock(fixedClock))

	got := p.Run(domain.Collection{}, nil, "2024-05-01")

	assert.Equal(t, "2024-05-02", got.LastUpdated)
	assert.NotNil(t, got.News)
	assert.Empty(t, got.News)
}
