// Package publishers notifies external systems after a digest is persisted.
package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
	"github.com/Adda-Baaj/khobor-digest/internal/logger"
)

// EventTypeDigestUpdated is emitted after both sinks hold a new collection.
const EventTypeDigestUpdated = "digest.updated"

// Logger is the logging surface publishers report to.
type Logger = logger.Logger

// Event describes a freshly persisted digest.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	TargetDate  string    `json:"target_date"`
	LastUpdated string    `json:"last_updated"`
	Articles    int       `json:"articles"`
	Titles      []string  `json:"titles"`
	Location    string    `json:"location"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewDigestEvent builds the event for collection c published at location.
func NewDigestEvent(c domain.Collection, targetDate, location string, at time.Time) Event {
	titles := make([]string, 0, len(c.News))
	for _, a := range c.News {
		titles = append(titles, a.Title)
	}
	return Event{
		ID:          uuid.NewString(),
		Type:        EventTypeDigestUpdated,
		TargetDate:  targetDate,
		LastUpdated: c.LastUpdated,
		Articles:    len(c.News),
		Titles:      titles,
		Location:    location,
		OccurredAt:  at.UTC(),
	}
}

// Encode renders the event as the JSON message body.
func (e Event) Encode() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return payload, nil
}

// Attributes are the routing attributes sent alongside queue messages.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"event_type":  e.Type,
		"target_date": e.TargetDate,
	}
}

// Publisher delivers events to one destination.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// PublishAll sends evt to every publisher and joins the failures.
func PublishAll(ctx context.Context, pubs []Publisher, evt Event, log Logger) error {
	log = ensureLogger(log)

	var errs []error
	for _, pub := range pubs {
		if err := pub.Publish(ctx, evt); err != nil {
			log.ErrorObj("publisher failed", "publisher_error", map[string]any{
				"publisher_id": pub.ID(),
				"type":         pub.Type(),
				"event_id":     evt.ID,
				"error":        err.Error(),
			})
			errs = append(errs, fmt.Errorf("publisher %s: %w", pub.ID(), err))
			continue
		}
		log.InfoObj("event published", "publisher_delivered", map[string]any{
			"publisher_id": pub.ID(),
			"type":         pub.Type(),
			"event_id":     evt.ID,
		})
	}
	return errors.Join(errs...)
}

func ensureLogger(log Logger) Logger {
	return logger.Ensure(log)
}
