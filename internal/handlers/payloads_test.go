package handlers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/abhirana780/medical-backend/internal/domain"
	"github.com/abhirana780/medical-backend/internal/services"
)

func TestAmount_DecodesMajorUnits(t *testing.T) {
	cases := []struct {
		raw  string
		want amount
	}{
		{`189.99`, 18999},
		{`25`, 2500},
		{`0.1`, 10},
		{`1e2`, 10000},
		{`0`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			var got amount
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &got))
			assert.Equal(t, tc.want, got)
		})
	}

	var req productPatchRequest
	require.NoError(t, json.Unmarshal([]byte(`{"price":null}`), &req))
	assert.Nil(t, req.Price)

	var bad amount
	assert.Error(t, json.Unmarshal([]byte(`"12.00"`), &bad))
}

func TestAmount_EncodesMajorUnits(t *testing.T) {
	data, err := json.Marshal(buildProductPayload(services.Product{ID: "p1", Price: 18999, OldPrice: ptrInt64(20000)}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"price":189.99`)
	assert.Contains(t, string(data), `"oldPrice":200`)
}

// Catalog P=100 and Q=50 as a client sees them, priced with the shipping policy.
func TestOrderPayload_ShippingPolicyInPriceUnits(t *testing.T) {
	var catalog struct {
		P amount `json:"P"`
		Q amount `json:"Q"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"P":100,"Q":50}`), &catalog))

	cases := []struct {
		name  string
		lines []domain.OrderLine
		want  string
	}{
		{
			name:  "two P and one Q pays the fee",
			lines: []domain.OrderLine{{Price: catalog.P.cents(), Quantity: 2}, {Price: catalog.Q.cents(), Quantity: 1}},
			want:  `"itemsPrice":250,"shippingPrice":25,"taxPrice":0,"totalPrice":275`,
		},
		{
			name:  "exactly 300 still pays the fee",
			lines: []domain.OrderLine{{Price: catalog.P.cents(), Quantity: 3}},
			want:  `"itemsPrice":300,"shippingPrice":25,"taxPrice":0,"totalPrice":325`,
		},
		{
			name:  "four P ships free",
			lines: []domain.OrderLine{{Price: catalog.P.cents(), Quantity: 4}},
			want:  `"itemsPrice":400,"shippingPrice":0,"taxPrice":0,"totalPrice":400`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items := domain.ItemsSubtotal(tc.lines)
			shipping := domain.ShippingFor(items)
			data, err := json.Marshal(buildOrderPayload(services.Order{
				ID:            "ord_1",
				Lines:         tc.lines,
				ItemsPrice:    items,
				ShippingPrice: shipping,
				TotalPrice:    items + shipping,
			}))
			require.NoError(t, err)
			assert.Contains(t, string(data), tc.want)
		})
	}
}

func ptrInt64(v int64) *int64 { return &v }
