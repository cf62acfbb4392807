package publishers

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

type pubsubSender struct {
	topic *pubsub.Topic
}

func newPubSubSender(ctx context.Context, qc QueueConfig) (queueSender, error) {
	if qc.PubSub == nil {
		return nil, fmt.Errorf("pubsub configuration is missing")
	}

	var opts []option.ClientOption
	if qc.PubSub.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(qc.PubSub.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, qc.PubSub.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &pubsubSender{topic: client.Topic(qc.PubSub.Topic)}, nil
}

// Send blocks until Pub/Sub acknowledges the message.
func (s *pubsubSender) Send(ctx context.Context, payload []byte, attrs map[string]string) (string, error) {
	res := s.topic.Publish(ctx, &pubsub.Message{Data: payload, Attributes: attrs})
	id, err := res.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to pubsub: %w", err)
	}
	return id, nil
}
