package jobs

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/abhirana780/medical-backend/internal/services"
)

// PubSubEventPublisher publishes order and review events to a Pub/Sub topic.
type PubSubEventPublisher struct {
	topic *pubsub.Topic
}

// NewPubSubEventPublisher constructs a Pub/Sub backed event publisher. Messages carry an
// ordering key so they are delivered in order when the topic has ordering enabled.
func NewPubSubEventPublisher(topic *pubsub.Topic) (*PubSubEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub event publisher: topic is required")
	}
	topic.EnableMessageOrdering = true
	return &PubSubEventPublisher{topic: topic}, nil
}

func (p *PubSubEventPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	msg, err := orderMessage(event)
	if err != nil {
		return err
	}
	return p.publish(ctx, msg)
}

func (p *PubSubEventPublisher) PublishReviewEvent(ctx context.Context, event services.ReviewEvent) error {
	msg, err := reviewMessage(event)
	if err != nil {
		return err
	}
	return p.publish(ctx, msg)
}

func (p *PubSubEventPublisher) publish(ctx context.Context, msg eventMessage) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub event publisher: not initialised")
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:        msg.Data,
		Attributes:  msg.Attributes,
		OrderingKey: msg.Key,
	})
	if _, err := result.Get(ctx); err != nil {
		p.topic.ResumePublish(msg.Key)
		return fmt.Errorf("publish %s event: %w", msg.Attributes["type"], err)
	}
	return nil
}
