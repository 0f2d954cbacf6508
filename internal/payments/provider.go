package payments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Status is the provider-neutral state of a payment intent.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var ErrUnsupportedProvider = errors.New("payments: unsupported provider")

// PaymentIntentRequest opens an intent for an order. Amount is in the currency's minor unit.
type PaymentIntentRequest struct {
	Amount         int64
	Currency       string
	ReceiptEmail   string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// PaymentIntent is handed back to the storefront, which confirms it client-side with the
// client secret.
type PaymentIntent struct {
	ID           string
	Provider     string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       Status
}

type Provider interface {
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (PaymentIntent, error)
}

// PaymentContext carries the hints used to pick a provider for one intent.
type PaymentContext struct {
	PreferredProvider string
	Currency          string
}

// Manager picks a provider per intent: the caller's preference, then a currency route,
// then the default ("stripe" when registered), then the only provider if there is one.
type Manager struct {
	providers      map[string]Provider
	fallback       string
	currencyRoutes map[string]string
}

type ManagerOption func(*Manager)

func WithDefaultProvider(name string) ManagerOption {
	return func(m *Manager) {
		m.fallback = providerKey(name)
	}
}

// WithCurrencyRoutes sends intents in the given currencies to a named provider.
func WithCurrencyRoutes(routes map[string]string) ManagerOption {
	return func(m *Manager) {
		for currency, name := range routes {
			m.currencyRoutes[currencyKey(currency)] = providerKey(name)
		}
	}
}

func NewManager(providers map[string]Provider, opts ...ManagerOption) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	m := &Manager{
		providers:      make(map[string]Provider, len(providers)),
		currencyRoutes: map[string]string{},
	}
	for name, provider := range providers {
		key := providerKey(name)
		if key == "" || provider == nil {
			return nil, fmt.Errorf("payments: invalid provider registration for key %q", name)
		}
		m.providers[key] = provider
	}
	if _, ok := m.providers["stripe"]; ok {
		m.fallback = "stripe"
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Providers lists the registered provider names.
func (m *Manager) Providers() []string {
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) CreatePaymentIntent(ctx context.Context, pc PaymentContext, req PaymentIntentRequest) (PaymentIntent, error) {
	name, provider, err := m.route(pc)
	if err != nil {
		return PaymentIntent{}, err
	}
	intent, err := provider.CreatePaymentIntent(ctx, req)
	if err != nil {
		return PaymentIntent{}, err
	}
	intent.Provider = name
	return intent, nil
}

func (m *Manager) route(pc PaymentContext) (string, Provider, error) {
	if m == nil || len(m.providers) == 0 {
		return "", nil, errors.New("payments: no providers registered")
	}
	candidates := []string{
		providerKey(pc.PreferredProvider),
		m.currencyRoutes[currencyKey(pc.Currency)],
		m.fallback,
	}
	for _, name := range candidates {
		if provider, ok := m.providers[name]; ok && name != "" {
			return name, provider, nil
		}
	}
	if len(m.providers) == 1 {
		for name, provider := range m.providers {
			return name, provider, nil
		}
	}
	return "", nil, ErrUnsupportedProvider
}

func providerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func currencyKey(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
