package publishers

import (
	"context"
	"fmt"
)

// queueSender delivers one encoded event and returns the broker's message id.
type queueSender interface {
	Send(ctx context.Context, payload []byte, attrs map[string]string) (string, error)
}

type senderFactory func(ctx context.Context, qc QueueConfig) (queueSender, error)

var senderFactories = map[string]senderFactory{
	QueueProviderAWSSQS:    newSQSSender,
	QueueProviderAWSSNS:    newSNSSender,
	QueueProviderGCPPubSub: newPubSubSender,
}

// queuePublisher forwards events to a cloud queue or topic.
type queuePublisher struct {
	id       string
	provider string
	sender   queueSender
	log      Logger
}

func newQueuePublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("publisher %q missing queue configuration", cfg.ID)
	}
	factory, ok := senderFactories[cfg.Queue.Provider]
	if !ok {
		return nil, fmt.Errorf("queue provider %q is not supported", cfg.Queue.Provider)
	}
	sender, err := factory(ctx, *cfg.Queue)
	if err != nil {
		return nil, err
	}
	return &queuePublisher{
		id:       cfg.ID,
		provider: cfg.Queue.Provider,
		sender:   sender,
		log:      ensureLogger(log),
	}, nil
}

func (p *queuePublisher) ID() string   { return p.id }
func (p *queuePublisher) Type() string { return TypeQueue }

// Publish sends the JSON-encoded event with its routing attributes.
func (p *queuePublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := evt.Encode()
	if err != nil {
		return err
	}

	msgID, err := p.sender.Send(ctx, payload, evt.Attributes())
	if err != nil {
		return fmt.Errorf("%s send failed: %w", p.provider, err)
	}

	p.log.DebugObj("queue publisher delivered event", "publisher_queue_delivery", map[string]any{
		"publisher_id": p.id,
		"provider":     p.provider,
		"message_id":   msgID,
	})
	return nil
}
