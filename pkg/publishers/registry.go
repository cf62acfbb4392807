package publishers

import (
	"context"
	"fmt"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Builders maps publisher types to their builders.
type Builders map[string]Builder

// DefaultBuilders knows the webhook and queue publishers.
func DefaultBuilders() Builders {
	return Builders{
		TypeHTTP:  newHTTPPublisher,
		TypeQueue: newQueuePublisher,
	}
}

// Build instantiates a publisher for every config, failing on the first error.
func (b Builders) Build(ctx context.Context, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	log = ensureLogger(log)

	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		build, ok := b[cfg.Type]
		if !ok {
			return nil, fmt.Errorf("no publisher registered for type %q", cfg.Type)
		}
		pub, err := build(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("build publisher %s: %w", cfg.ID, err)
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// Load reads the publishers file at path and builds its enabled entries.
func Load(ctx context.Context, path string, log Logger) ([]Publisher, error) {
	cfgs, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return DefaultBuilders().Build(ctx, Enabled(cfgs), log)
}
