package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/text/cases"

	domain "github.com/abhirana780/medical-backend/internal/domain"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

const (
	orderEventCreated   = "order.created"
	orderEventPaid      = "order.paid"
	orderEventDelivered = "order.delivered"

	orderIDPrefix = "ord_"

	orderMetricNamespace = "github.com/abhirana780/medical-backend/internal/services"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderEmpty is returned when an order has no lines.
	ErrOrderEmpty = errors.New("order: no order items")
	// ErrOrderProductNotFound is returned when a line references an unknown product.
	ErrOrderProductNotFound = errors.New("order: product not found")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderNotAuthorized indicates the caller may not act on the order.
	ErrOrderNotAuthorized = errors.New("order: not authorized")
	// ErrOrderConflict indicates an optimistic concurrency conflict.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderRepositoryUnavailable wraps transient storage failures.
	ErrOrderRepositoryUnavailable = errors.New("order: repository unavailable")
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Pricer      OrderPricer
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Meter       metric.Meter
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders  repositories.OrderRepository
	pricer  OrderPricer
	clock   func() time.Time
	newID   func() string
	events  OrderEventPublisher
	created metric.Int64Counter
	logger  func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Pricer == nil {
		return nil, errors.New("order service: pricer is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return orderIDPrefix + ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(orderMetricNamespace)
	}
	created, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Count of orders persisted"),
	)
	if err != nil {
		return nil, fmt.Errorf("order service: create counter: %w", err)
	}

	return &orderService{
		orders: deps.Orders,
		pricer: deps.Pricer,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:   idGen,
		events:  deps.Events,
		created: created,
		logger:  logger,
	}, nil
}

func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	userID := strings.TrimSpace(cmd.Actor.UserID)
	if userID == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}

	priced, err := s.pricer.Price(ctx, PriceOrderCommand{
		Lines:           cmd.Lines,
		ShippingAddress: cmd.ShippingAddress,
	})
	if err != nil {
		return Order{}, err
	}

	now := s.clock()
	order := Order{
		ID:              s.newID(),
		UserID:          userID,
		UserEmail:       strings.TrimSpace(cmd.Actor.Email),
		UserName:        strings.TrimSpace(cmd.Actor.Name),
		Lines:           priced.Lines,
		ShippingAddress: trimShippingAddress(cmd.ShippingAddress),
		PaymentMethod:   strings.TrimSpace(cmd.PaymentMethod),
		ItemsPrice:      priced.Items,
		ShippingPrice:   priced.Shipping,
		TaxPrice:        priced.Tax,
		TotalPrice:      priced.Total,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return Order{}, mapOrderRepositoryError(err)
	}

	s.created.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", order.PaymentMethod)))
	s.publishEvent(ctx, OrderEvent{
		Type:       orderEventCreated,
		OrderID:    order.ID,
		UserID:     order.UserID,
		ActorID:    userID,
		TotalPrice: order.TotalPrice,
		OccurredAt: now,
	})
	return order, nil
}

// Pay records a payment confirmation. Paying twice overwrites the previous confirmation.
func (s *orderService) Pay(ctx context.Context, cmd PayOrderCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !domain.ValidReference(orderID) {
		return Order{}, ErrOrderNotFound
	}

	now := s.clock()
	result := cmd.PaymentResult
	updated, err := s.orders.Mutate(ctx, orderID, func(order *Order) error {
		if !canAccessOrder(*order, cmd.Actor) {
			return ErrOrderNotAuthorized
		}
		order.IsPaid = true
		order.PaidAt = &now
		order.PaymentResult = &result
		return nil
	})
	if err != nil {
		return Order{}, mapOrderRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:       orderEventPaid,
		OrderID:    updated.ID,
		UserID:     updated.UserID,
		ActorID:    cmd.Actor.UserID,
		TotalPrice: updated.TotalPrice,
		OccurredAt: now,
	})
	return updated, nil
}

func (s *orderService) Deliver(ctx context.Context, cmd DeliverOrderCommand) (Order, error) {
	if !cmd.Actor.IsAdmin {
		return Order{}, ErrOrderNotAuthorized
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !domain.ValidReference(orderID) {
		return Order{}, ErrOrderNotFound
	}

	now := s.clock()
	updated, err := s.orders.Mutate(ctx, orderID, func(order *Order) error {
		order.IsDelivered = true
		order.DeliveredAt = &now
		return nil
	})
	if err != nil {
		return Order{}, mapOrderRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:       orderEventDelivered,
		OrderID:    updated.ID,
		UserID:     updated.UserID,
		ActorID:    cmd.Actor.UserID,
		TotalPrice: updated.TotalPrice,
		OccurredAt: now,
	})
	return updated, nil
}

func (s *orderService) Get(ctx context.Context, orderID string, actor Actor) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !domain.ValidReference(orderID) {
		return Order{}, ErrOrderNotFound
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, mapOrderRepositoryError(err)
	}
	if !canAccessOrder(order, actor) {
		return Order{}, ErrOrderNotAuthorized
	}
	return order, nil
}

// Track serves the public tracking lookup. Unknown ids and email mismatches are
// indistinguishable to the caller.
func (s *orderService) Track(ctx context.Context, cmd TrackOrderCommand) (OrderTracking, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	email := strings.TrimSpace(cmd.Email)
	if orderID == "" || email == "" {
		return OrderTracking{}, fmt.Errorf("%w: order id and email are required", ErrOrderInvalidInput)
	}
	if !domain.ValidReference(orderID) {
		return OrderTracking{}, ErrOrderNotFound
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return OrderTracking{}, mapOrderRepositoryError(err)
	}
	if !sameEmail(order.UserEmail, email) {
		s.logger(ctx, "order.track.email_mismatch", map[string]any{"orderId": orderID})
		return OrderTracking{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	return OrderTracking{
		ID:          order.ID,
		CreatedAt:   order.CreatedAt,
		IsPaid:      order.IsPaid,
		IsDelivered: order.IsDelivered,
		DeliveredAt: order.DeliveredAt,
		TotalPrice:  order.TotalPrice,
		Lines:       order.Lines,
		Status:      order.TrackingStatus(),
	}, nil
}

func (s *orderService) ListMine(ctx context.Context, actor Actor) ([]Order, error) {
	userID := strings.TrimSpace(actor.UserID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, mapOrderRepositoryError(err)
	}
	return orders, nil
}

func (s *orderService) ListAll(ctx context.Context, actor Actor) ([]Order, error) {
	if !actor.IsAdmin {
		return nil, ErrOrderNotAuthorized
	}
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, mapOrderRepositoryError(err)
	}
	return orders, nil
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":  event.Type,
			"order": event.OrderID,
			"error": err.Error(),
		})
	}
}

func canAccessOrder(order Order, actor Actor) bool {
	if actor.IsAdmin {
		return true
	}
	uid := strings.TrimSpace(actor.UserID)
	return uid != "" && uid == order.UserID
}

// sameEmail compares addresses with Unicode case folding. Casers keep state, so
// each comparison gets its own.
func sameEmail(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}

func trimShippingAddress(addr ShippingAddress) ShippingAddress {
	return ShippingAddress{
		Address:    strings.TrimSpace(addr.Address),
		City:       strings.TrimSpace(addr.City),
		PostalCode: strings.TrimSpace(addr.PostalCode),
		Country:    strings.TrimSpace(addr.Country),
	}
}

func mapOrderRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrOrderNotAuthorized) || errors.Is(err, ErrOrderInvalidInput) {
		return err
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return newStoreError(ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return newStoreError(ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return newStoreError(ErrOrderRepositoryUnavailable, err)
		}
	}
	return err
}
