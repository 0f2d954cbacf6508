package domain

import (
	"math"
	"testing"
	"time"
)

func TestRecomputeAggregate(t *testing.T) {
	cases := []struct {
		name    string
		ratings []int
		rating  float64
		count   int
	}{
		{name: "empty", ratings: nil, rating: 0, count: 0},
		{name: "single", ratings: []int{4}, rating: 4, count: 1},
		{name: "many", ratings: []int{5, 4, 3}, rating: 4, count: 3},
		{name: "fractional", ratings: []int{5, 4}, rating: 4.5, count: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reviews := make([]Review, 0, len(tc.ratings))
			for _, r := range tc.ratings {
				reviews = append(reviews, Review{Rating: r})
			}
			rating, count := RecomputeAggregate(reviews)
			if math.Abs(rating-tc.rating) > 1e-9 {
				t.Fatalf("expected rating %v got %v", tc.rating, rating)
			}
			if count != tc.count {
				t.Fatalf("expected count %d got %d", tc.count, count)
			}
		})
	}
}

func TestProductApplyReviews(t *testing.T) {
	product := Product{}
	product.ApplyReviews([]Review{{UserID: "a", Rating: 5}, {UserID: "b", Rating: 4}, {UserID: "c", Rating: 3}})
	if product.Rating != 4 || product.NumReviews != 3 {
		t.Fatalf("unexpected aggregate %v/%d", product.Rating, product.NumReviews)
	}
	product.ApplyReviews(product.Reviews[:2])
	if product.Rating != 4.5 || product.NumReviews != 2 {
		t.Fatalf("unexpected aggregate after removal %v/%d", product.Rating, product.NumReviews)
	}
	product.ApplyReviews(nil)
	if product.Rating != 0 || product.NumReviews != 0 {
		t.Fatalf("expected zero aggregate, got %v/%d", product.Rating, product.NumReviews)
	}
}

func TestShippingFor(t *testing.T) {
	if got := ShippingFor(FreeShippingThreshold); got != FlatShippingFee {
		t.Fatalf("threshold subtotal must pay the fee, got %d", got)
	}
	if got := ShippingFor(FreeShippingThreshold + 1); got != 0 {
		t.Fatalf("expected free shipping above threshold, got %d", got)
	}
	if got := ShippingFor(0); got != FlatShippingFee {
		t.Fatalf("expected flat fee, got %d", got)
	}
}

func TestItemsSubtotal(t *testing.T) {
	lines := []OrderLine{{Price: 10000, Quantity: 2}, {Price: 5000, Quantity: 1}}
	if got := ItemsSubtotal(lines); got != 25000 {
		t.Fatalf("expected 25000 got %d", got)
	}
}

func TestOrderTrackingStatus(t *testing.T) {
	if status := (Order{}).TrackingStatus(); status != OrderStatusPendingPayment {
		t.Fatalf("unexpected status %s", status)
	}
	if status := (Order{IsPaid: true}).TrackingStatus(); status != OrderStatusProcessing {
		t.Fatalf("unexpected status %s", status)
	}
	if status := (Order{IsDelivered: true}).TrackingStatus(); status != OrderStatusDelivered {
		t.Fatalf("delivery must win over payment, got %s", status)
	}
}

func TestCouponIsValid(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	coupon := Coupon{IsActive: true, ExpiryDate: now.Add(time.Hour)}
	if !coupon.IsValid(now) {
		t.Fatalf("expected valid coupon")
	}
	if coupon.IsValid(now.Add(time.Hour)) {
		t.Fatalf("coupon must be invalid at its expiry instant")
	}
	coupon.IsActive = false
	if coupon.IsValid(now) {
		t.Fatalf("inactive coupon must be invalid")
	}
}

func TestProductInStock(t *testing.T) {
	if (Product{CountInStock: 0}).InStock() {
		t.Fatalf("expected out of stock")
	}
	if !(Product{CountInStock: 3}).InStock() {
		t.Fatalf("expected in stock")
	}
}

func TestValidReference(t *testing.T) {
	valid := []string{"ord_01HZX3K6Q8V0M6B2Y4C9D1E7FA", "prd_seed_walker", "ord_x", "a.b", "__x", "_"}
	for _, id := range valid {
		if !ValidReference(id) {
			t.Fatalf("expected %q to be valid", id)
		}
	}
	invalid := []string{"", "a/b", "/", ".", "..", "__x__", "____", "\xff", string(make([]byte, 1501))}
	for _, id := range invalid {
		if ValidReference(id) {
			t.Fatalf("expected %q to be rejected", id)
		}
	}
}

func TestCentsFromUnits(t *testing.T) {
	cases := map[float64]int64{189.99: 18999, 300: FreeShippingThreshold, 25: FlatShippingFee, 0.1: 10, 1499.95: 149995}
	for units, cents := range cases {
		if got := CentsFromUnits(units); got != cents {
			t.Fatalf("CentsFromUnits(%v) = %d, want %d", units, got, cents)
		}
	}
	if got := UnitsFromCents(27500); got != 275 {
		t.Fatalf("UnitsFromCents(27500) = %v", got)
	}
}
