package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v78"
)

type fakeIntentAPI struct {
	params *stripe.PaymentIntentParams
	intent *stripe.PaymentIntent
	err    error
}

func (f *fakeIntentAPI) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.params = params
	return f.intent, f.err
}

func TestStripeProviderCreatePaymentIntent(t *testing.T) {
	api := &fakeIntentAPI{intent: &stripe.PaymentIntent{
		ID:           "pi_123",
		ClientSecret: "pi_123_secret_abc",
		Amount:       27500,
		Currency:     stripe.CurrencyUSD,
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
	}}
	provider, err := NewStripeProvider(StripeProviderConfig{intents: api})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	intent, err := provider.CreatePaymentIntent(context.Background(), PaymentIntentRequest{
		Amount:         27500,
		Currency:       "USD",
		Metadata:       map[string]string{"orderId": "ord_1"},
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.ClientSecret != "pi_123_secret_abc" || intent.Status != StatusPending || intent.Currency != "usd" {
		t.Fatalf("unexpected intent %+v", intent)
	}
	if api.params == nil || *api.params.Amount != 27500 || *api.params.Currency != "usd" {
		t.Fatalf("unexpected params %+v", api.params)
	}
	if api.params.Metadata["orderId"] != "ord_1" {
		t.Fatalf("expected metadata to be forwarded")
	}
	if api.params.IdempotencyKey == nil || *api.params.IdempotencyKey != "key-1" {
		t.Fatalf("expected idempotency key to be set")
	}
}

func TestStripeProviderRejectsInvalidRequests(t *testing.T) {
	provider, err := NewStripeProvider(StripeProviderConfig{intents: &fakeIntentAPI{}})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := provider.CreatePaymentIntent(context.Background(), PaymentIntentRequest{Amount: 0, Currency: "usd"}); err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if _, err := provider.CreatePaymentIntent(context.Background(), PaymentIntentRequest{Amount: 100}); err == nil {
		t.Fatalf("expected error for missing currency")
	}
}

func TestStripeProviderWrapsAPIError(t *testing.T) {
	boom := errors.New("card_declined")
	provider, err := NewStripeProvider(StripeProviderConfig{intents: &fakeIntentAPI{err: boom}})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	_, err = provider.CreatePaymentIntent(context.Background(), PaymentIntentRequest{Amount: 100, Currency: "usd"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
}

func TestNewStripeProviderRequiresKey(t *testing.T) {
	if _, err := NewStripeProvider(StripeProviderConfig{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}
