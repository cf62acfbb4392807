package store

import (
	"context"
	"fmt"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
	"github.com/Adda-Baaj/khobor-digest/internal/logger"
)

// Persister writes a collection to the canonical store and then to the published copy.
type Persister struct {
	log logger.Logger
}

// NewPersister builds a Persister.
func NewPersister(log logger.Logger) *Persister {
	return &Persister{log: logger.Ensure(log)}
}

// Persist writes c to primary, then secondary. It stops at the first failure;
// a primary that was already written is left as is.
func (p *Persister) Persist(ctx context.Context, c domain.Collection, primary, secondary Sink) error {
	for _, target := range []struct {
		role string
		sink Sink
	}{
		{"primary", primary},
		{"published", secondary},
	} {
		if target.sink == nil {
			return fmt.Errorf("%s sink is not configured", target.role)
		}
		if err := p.write(ctx, c, target.role, target.sink); err != nil {
			return err
		}
	}
	return nil
}

func (p *Persister) write(ctx context.Context, c domain.Collection, role string, sink Sink) error {
	data, err := Encode(c, FormatFor(sink.Location()))
	if err != nil {
		return fmt.Errorf("render %s collection: %w", role, err)
	}

	if err := sink.Write(ctx, data); err != nil {
		p.log.ErrorObj("collection write failed", "persist_failed", map[string]any{
			"role":     role,
			"location": sink.Location(),
			"error":    err.Error(),
		})
		return fmt.Errorf("write %s collection to %s: %w", role, sink.Location(), err)
	}

	p.log.InfoObj("collection written", "persist_done", map[string]any{
		"role":     role,
		"location": sink.Location(),
		"records":  len(c.News),
		"bytes":    len(data),
	})
	return nil
}
