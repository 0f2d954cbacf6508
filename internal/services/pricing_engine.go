package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/abhirana780/medical-backend/internal/domain"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

// OrderPricingEngine prices order requests from authoritative catalog data.
// Client-supplied prices never reach it.
type OrderPricingEngine struct {
	products repositories.ProductRepository
	shipping ShippingEstimator
	tax      TaxCalculator
}

type OrderPricingEngineDeps struct {
	Products repositories.ProductRepository
	Shipping ShippingEstimator
	Tax      TaxCalculator
}

type ShippingEstimator interface {
	EstimateShipping(ctx context.Context, req ShippingEstimateRequest) (int64, error)
}

type ShippingEstimateRequest struct {
	ItemsPrice      int64
	ShippingAddress ShippingAddress
}

type TaxCalculator interface {
	CalculateTax(ctx context.Context, req TaxCalculationRequest) (int64, error)
}

type TaxCalculationRequest struct {
	Lines           []OrderLine
	ItemsPrice      int64
	ShippingPrice   int64
	ShippingAddress ShippingAddress
}

// FlatShippingEstimator charges domain.FlatShippingFee unless the subtotal exceeds the free shipping threshold.
type FlatShippingEstimator struct{}

func (FlatShippingEstimator) EstimateShipping(_ context.Context, req ShippingEstimateRequest) (int64, error) {
	return domain.ShippingFor(req.ItemsPrice), nil
}

// ZeroTaxCalculator applies no tax.
type ZeroTaxCalculator struct{}

func (ZeroTaxCalculator) CalculateTax(context.Context, TaxCalculationRequest) (int64, error) {
	return 0, nil
}

func NewOrderPricingEngine(deps OrderPricingEngineDeps) (*OrderPricingEngine, error) {
	if deps.Products == nil {
		return nil, errors.New("order pricing engine: product repository is required")
	}
	shipping := deps.Shipping
	if shipping == nil {
		shipping = FlatShippingEstimator{}
	}
	tax := deps.Tax
	if tax == nil {
		tax = ZeroTaxCalculator{}
	}
	return &OrderPricingEngine{
		products: deps.Products,
		shipping: shipping,
		tax:      tax,
	}, nil
}

// Price snapshots every line from the catalog and computes the totals. Any
// missing product aborts the whole call.
func (e *OrderPricingEngine) Price(ctx context.Context, cmd PriceOrderCommand) (PricingBreakdown, error) {
	if len(cmd.Lines) == 0 {
		return PricingBreakdown{}, ErrOrderEmpty
	}

	lines := make([]OrderLine, 0, len(cmd.Lines))
	for i, req := range cmd.Lines {
		productID := strings.TrimSpace(req.ProductID)
		if productID == "" {
			return PricingBreakdown{}, fmt.Errorf("%w: line %d product is required", ErrOrderInvalidInput, i)
		}
		if req.Quantity < 1 {
			return PricingBreakdown{}, fmt.Errorf("%w: line %d quantity must be at least 1", ErrOrderInvalidInput, i)
		}

		product, err := e.products.FindByID(ctx, productID)
		if err != nil {
			var repoErr repositories.RepositoryError
			if errors.As(err, &repoErr) && repoErr.IsNotFound() {
				return PricingBreakdown{}, fmt.Errorf("%w: %s", ErrOrderProductNotFound, productID)
			}
			return PricingBreakdown{}, mapOrderRepositoryError(err)
		}

		lines = append(lines, OrderLine{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.Image,
			Price:     product.Price,
			Quantity:  req.Quantity,
		})
	}

	items := domain.ItemsSubtotal(lines)
	shipping, err := e.shipping.EstimateShipping(ctx, ShippingEstimateRequest{
		ItemsPrice:      items,
		ShippingAddress: cmd.ShippingAddress,
	})
	if err != nil {
		return PricingBreakdown{}, fmt.Errorf("order pricing: shipping: %w", err)
	}
	tax, err := e.tax.CalculateTax(ctx, TaxCalculationRequest{
		Lines:           lines,
		ItemsPrice:      items,
		ShippingPrice:   shipping,
		ShippingAddress: cmd.ShippingAddress,
	})
	if err != nil {
		return PricingBreakdown{}, fmt.Errorf("order pricing: tax: %w", err)
	}

	return PricingBreakdown{
		Lines:    lines,
		Items:    items,
		Shipping: shipping,
		Tax:      tax,
		Total:    items + shipping + tax,
	}, nil
}

var _ OrderPricer = (*OrderPricingEngine)(nil)
