package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/abhirana780/medical-backend/internal/services"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventPublisher publishes order and review events to a Kafka topic.
type KafkaEventPublisher struct {
	writer kafkaWriter
}

// NewKafkaEventPublisher builds a publisher with a hash-balanced writer so every event of one
// order or product lands on the same partition.
func NewKafkaEventPublisher(brokers []string, topic string) (*KafkaEventPublisher, error) {
	var addrs []string
	for _, broker := range brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			addrs = append(addrs, broker)
		}
	}
	if len(addrs) == 0 {
		return nil, errors.New("kafka event publisher: brokers are required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("kafka event publisher: topic is required")
	}
	return &KafkaEventPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}}, nil
}

func (p *KafkaEventPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	msg, err := orderMessage(event)
	if err != nil {
		return err
	}
	return p.write(ctx, msg)
}

func (p *KafkaEventPublisher) PublishReviewEvent(ctx context.Context, event services.ReviewEvent) error {
	msg, err := reviewMessage(event)
	if err != nil {
		return err
	}
	return p.write(ctx, msg)
}

// Close flushes pending writes.
func (p *KafkaEventPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func (p *KafkaEventPublisher) write(ctx context.Context, msg eventMessage) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka event publisher: not initialised")
	}
	headers := make([]kafka.Header, 0, len(msg.Attributes))
	for key, value := range msg.Attributes {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.Key),
		Value:   msg.Data,
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("write %s event: %w", msg.Attributes["type"], err)
	}
	return nil
}
