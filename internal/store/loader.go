package store

import (
	"context"
	"os"
	"time"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
	"github.com/Adda-Baaj/khobor-digest/internal/logger"
)

// Loader reads the persisted collection, substituting an empty one when it cannot.
type Loader struct {
	log logger.Logger
	now func() time.Time
}

// NewLoader builds a Loader. A nil clock means time.Now.
func NewLoader(log logger.Logger, now func() time.Time) *Loader {
	if now == nil {
		now = time.Now
	}
	return &Loader{log: logger.Ensure(log), now: now}
}

// Load returns the collection stored at path, or a fresh empty collection dated
// today when the file is missing, unreadable or malformed. It never fails.
func (l *Loader) Load(ctx context.Context, path string) domain.Collection {
	if err := ctx.Err(); err != nil {
		l.log.WarnObj("load cancelled, starting from empty collection", "state_load_cancelled", map[string]any{
			"path":  path,
			"error": err.Error(),
		})
		return l.empty()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		l.log.WarnObj("persisted collection unreadable, starting from empty collection", "state_unreadable", map[string]any{
			"path":  path,
			"error": err.Error(),
		})
		return l.empty()
	}

	c, err := Decode(data, FormatFor(path))
	if err != nil {
		l.log.WarnObj("persisted collection malformed, starting from empty collection", "state_malformed", map[string]any{
			"path":  path,
			"error": err.Error(),
		})
		return l.empty()
	}

	l.log.InfoObj("loaded persisted collection", "state_loaded", map[string]any{
		"path":         path,
		"records":      len(c.News),
		"last_updated": c.LastUpdated,
	})
	return c
}

func (l *Loader) empty() domain.Collection {
	return domain.Collection{
		LastUpdated: l.now().UTC().Format(domain.DateLayout),
		News:        []domain.Article{},
	}
}
