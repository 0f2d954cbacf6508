package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls  int
	intent PaymentIntent
	err    error
}

func (f *fakeProvider) CreatePaymentIntent(context.Context, PaymentIntentRequest) (PaymentIntent, error) {
	f.calls++
	return f.intent, f.err
}

func TestManager_Routing(t *testing.T) {
	tests := []struct {
		name   string
		opts   []ManagerOption
		pc     PaymentContext
		expect string
	}{
		{name: "preferred provider", pc: PaymentContext{PreferredProvider: " PayPal "}, expect: "paypal"},
		{name: "currency route", opts: []ManagerOption{WithCurrencyRoutes(map[string]string{"jpy": "paypal"})}, pc: PaymentContext{Currency: "JPY"}, expect: "paypal"},
		{name: "stripe is the default", pc: PaymentContext{Currency: "usd"}, expect: "stripe"},
		{name: "explicit default", opts: []ManagerOption{WithDefaultProvider("paypal")}, expect: "paypal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mgr, err := NewManager(map[string]Provider{"stripe": &fakeProvider{}, "paypal": &fakeProvider{}}, tc.opts...)
			require.NoError(t, err)

			intent, err := mgr.CreatePaymentIntent(context.Background(), tc.pc, PaymentIntentRequest{Amount: 100, Currency: "usd"})
			require.NoError(t, err)
			assert.Equal(t, tc.expect, intent.Provider)
		})
	}
}

func TestManager_SingleProviderFallback(t *testing.T) {
	only := &fakeProvider{intent: PaymentIntent{ID: "pi_1"}}
	mgr, err := NewManager(map[string]Provider{"adyen": only})
	require.NoError(t, err)
	assert.Equal(t, []string{"adyen"}, mgr.Providers())

	intent, err := mgr.CreatePaymentIntent(context.Background(), PaymentContext{Currency: "EUR"}, PaymentIntentRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, only.calls)
	assert.Equal(t, "adyen", intent.Provider)
	assert.Equal(t, "pi_1", intent.ID)
}

func TestManager_Errors(t *testing.T) {
	boom := errors.New("card network down")
	mgr, err := NewManager(map[string]Provider{"stripe": &fakeProvider{err: boom}})
	require.NoError(t, err)
	_, err = mgr.CreatePaymentIntent(context.Background(), PaymentContext{}, PaymentIntentRequest{})
	assert.ErrorIs(t, err, boom)

	mgr, err = NewManager(map[string]Provider{"stripe": &fakeProvider{}, "paypal": &fakeProvider{}}, WithDefaultProvider(""))
	require.NoError(t, err)
	_, err = mgr.CreatePaymentIntent(context.Background(), PaymentContext{PreferredProvider: "unknown"}, PaymentIntentRequest{})
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	_, err = NewManager(map[string]Provider{"bad": nil})
	assert.Error(t, err)
	_, err = NewManager(nil)
	assert.Error(t, err)
}
