package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abhirana780/medical-backend/internal/services"
)

// eventMessage is the transport-neutral form of a storefront event. Key orders
// messages per aggregate: the order id for order events, the product id for reviews.
type eventMessage struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

type orderEventPayload struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId,omitempty"`
	ActorID    string    `json:"actorId,omitempty"`
	TotalPrice int64     `json:"totalPrice"`
	OccurredAt time.Time `json:"occurredAt"`
}

type reviewEventPayload struct {
	Type       string    `json:"type"`
	ReviewID   string    `json:"reviewId"`
	ProductID  string    `json:"productId"`
	UserID     string    `json:"userId,omitempty"`
	Rating     float64   `json:"rating"`
	NumReviews int       `json:"numReviews"`
	OccurredAt time.Time `json:"occurredAt"`
}

func orderMessage(event services.OrderEvent) (eventMessage, error) {
	data, err := json.Marshal(orderEventPayload(event))
	if err != nil {
		return eventMessage{}, fmt.Errorf("marshal order event: %w", err)
	}
	return eventMessage{
		Key:  event.OrderID,
		Data: data,
		Attributes: map[string]string{
			"type":    event.Type,
			"orderId": event.OrderID,
		},
	}, nil
}

func reviewMessage(event services.ReviewEvent) (eventMessage, error) {
	data, err := json.Marshal(reviewEventPayload(event))
	if err != nil {
		return eventMessage{}, fmt.Errorf("marshal review event: %w", err)
	}
	return eventMessage{
		Key:  event.ProductID,
		Data: data,
		Attributes: map[string]string{
			"type":      event.Type,
			"productId": event.ProductID,
		},
	}, nil
}

// NoopEventPublisher drops every event. Used when API_EVENTS_BACKEND=none.
type NoopEventPublisher struct{}

func (NoopEventPublisher) PublishOrderEvent(context.Context, services.OrderEvent) error {
	return nil
}

func (NoopEventPublisher) PublishReviewEvent(context.Context, services.ReviewEvent) error {
	return nil
}
