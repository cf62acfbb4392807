package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
)

var (
	errEmptyDate = errors.New("empty date")
	errNoDigits  = errors.New("date has no digits")
)

// strictLayouts are tried before falling back to dateparse. Zone-less values are read as UTC.
var strictLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	domain.DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseInstant parses raw as a point in time.
func ParseInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errEmptyDate
	}
	if !strings.ContainsAny(raw, "0123456789") {
		return time.Time{}, errNoDigits
	}

	for _, layout := range strictLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}

	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t, nil
}

// NormalizeDate returns the UTC calendar date (YYYY-MM-DD) of the instant raw denotes.
func NormalizeDate(raw string) (string, error) {
	t, err := ParseInstant(raw)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(domain.DateLayout), nil
}
