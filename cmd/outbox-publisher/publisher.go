package main

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type topicPublishers interface {
	Publisher(name string) *gcppubsub.Publisher
}

// publisherFactory resolves the publisher for a topic. A nil publisher means
// the topic is not configured on this deployment.
type publisherFactory func(topic string) publisher

func pubsubPublishers(client topicPublishers) publisherFactory {
	return func(topic string) publisher {
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		return &gcpPublisher{inner: p}
	}
}

// buildMessage keys messages by aggregate so consumers see one order's
// events in commit order.
func buildMessage(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: event.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

type gcpPublisher struct {
	inner *gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.inner == nil {
		return nil
	}
	return gcpResult{res: p.inner.Publish(ctx, msg)}
}

type gcpResult struct {
	res *gcppubsub.PublishResult
}

func (r gcpResult) Get(ctx context.Context) (string, error) {
	if r.res == nil {
		return "", errors.New("publish result is nil")
	}
	return r.res.Get(ctx)
}
