package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/abhirana780/medical-backend/internal/domain"
	"github.com/abhirana780/medical-backend/internal/payments"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

const defaultPaymentCurrency = "usd"

var (
	// ErrPaymentInvalidInput indicates the caller supplied invalid input parameters.
	ErrPaymentInvalidInput = errors.New("payment: invalid input")
	// ErrPaymentOrderNotFound indicates the order to pay does not exist.
	ErrPaymentOrderNotFound = errors.New("payment: order not found")
	// ErrPaymentNotAuthorized indicates the caller does not own the order.
	ErrPaymentNotAuthorized = errors.New("payment: not authorized")
	// ErrPaymentAlreadyPaid indicates the order is already marked as paid.
	ErrPaymentAlreadyPaid = errors.New("payment: order already paid")
	// ErrPaymentFailed indicates the PSP intent could not be created.
	ErrPaymentFailed = errors.New("payment: failed")
	// ErrPaymentUnavailable indicates payment dependencies are currently unavailable.
	ErrPaymentUnavailable = errors.New("payment: unavailable")
)

// paymentIntentCreator abstracts payments.Manager for easier testing.
type paymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, paymentCtx payments.PaymentContext, req payments.PaymentIntentRequest) (payments.PaymentIntent, error)
}

// PaymentServiceDeps wires the dependencies required by the payment service.
type PaymentServiceDeps struct {
	Orders          repositories.OrderRepository
	Payments        paymentIntentCreator
	PublishableKey  string
	DefaultCurrency string
	Logger          func(ctx context.Context, event string, fields map[string]any)
}

type paymentService struct {
	orders         repositories.OrderRepository
	payments       paymentIntentCreator
	publishableKey string
	currency       string
	logger         func(ctx context.Context, event string, fields map[string]any)
}

// NewPaymentService constructs a PaymentService validating required dependencies.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Orders == nil {
		return nil, errors.New("payment service: order repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("payment service: payment manager is required")
	}
	currency := strings.ToLower(strings.TrimSpace(deps.DefaultCurrency))
	if currency == "" {
		currency = defaultPaymentCurrency
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &paymentService{
		orders:         deps.Orders,
		payments:       deps.Payments,
		publishableKey: strings.TrimSpace(deps.PublishableKey),
		currency:       currency,
		logger:         logger,
	}, nil
}

// CreatePaymentIntent opens a PSP intent for the order total. The amount never comes from the request.
func (s *paymentService) CreatePaymentIntent(ctx context.Context, cmd CreatePaymentIntentCommand) (PaymentIntent, error) {
	if s == nil || s.orders == nil || s.payments == nil {
		return PaymentIntent{}, ErrPaymentUnavailable
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return PaymentIntent{}, fmt.Errorf("%w: order id is required", ErrPaymentInvalidInput)
	}
	if !domain.ValidReference(orderID) {
		return PaymentIntent{}, ErrPaymentOrderNotFound
	}
	if strings.TrimSpace(cmd.Actor.UserID) == "" {
		return PaymentIntent{}, ErrPaymentNotAuthorized
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) {
			switch {
			case repoErr.IsNotFound():
				return PaymentIntent{}, fmt.Errorf("%w: %s", ErrPaymentOrderNotFound, orderID)
			case repoErr.IsUnavailable():
				return PaymentIntent{}, newStoreError(ErrPaymentUnavailable, err)
			}
		}
		return PaymentIntent{}, err
	}
	if !canAccessOrder(order, cmd.Actor) {
		return PaymentIntent{}, ErrPaymentNotAuthorized
	}
	if order.IsPaid {
		return PaymentIntent{}, fmt.Errorf("%w: %s", ErrPaymentAlreadyPaid, orderID)
	}
	if order.TotalPrice <= 0 {
		return PaymentIntent{}, fmt.Errorf("%w: order total must be positive", ErrPaymentInvalidInput)
	}

	currency := strings.ToLower(strings.TrimSpace(cmd.Currency))
	if currency == "" {
		currency = s.currency
	}

	intent, err := s.payments.CreatePaymentIntent(ctx, payments.PaymentContext{Currency: currency}, payments.PaymentIntentRequest{
		Amount:       order.TotalPrice,
		Currency:     currency,
		ReceiptEmail: order.UserEmail,
		Description:  "Order " + order.ID,
		Metadata: map[string]string{
			"orderId": order.ID,
			"userId":  order.UserID,
		},
		IdempotencyKey: "pi_" + order.ID + "_" + currency,
	})
	if err != nil {
		s.logger(ctx, "payment.intent.failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return PaymentIntent{}, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	s.logger(ctx, "payment.intent.created", map[string]any{
		"orderId":  order.ID,
		"intentId": intent.ID,
		"provider": intent.Provider,
		"amount":   intent.Amount,
	})

	return PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       order.TotalPrice,
		Currency:     currency,
		Provider:     intent.Provider,
	}, nil
}

func (s *paymentService) PublishableKey() string {
	if s == nil {
		return ""
	}
	return s.publishableKey
}
