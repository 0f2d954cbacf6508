package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/abhirana780/medical-backend/internal/domain"
)

var (
	testCustomer = Actor{UserID: "user-1", Email: "Jane.Doe@Example.com", Name: "Jane"}
	testStranger = Actor{UserID: "user-2", Email: "eve@example.com"}
	testAdmin    = Actor{UserID: "admin-1", Email: "ops@example.com", IsAdmin: true}
)

type orderFixture struct {
	svc      OrderService
	orders   *memOrderRepo
	products *memProductRepo
	events   *captureOrderEvents
	now      time.Time
}

func newOrderFixture(t *testing.T, orders ...domain.Order) orderFixture {
	t.Helper()
	now := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	products := pricingFixture()
	pricer := newTestPricer(t, products)
	repo := newMemOrderRepo(orders...)
	events := &captureOrderEvents{}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders:      repo,
		Pricer:      pricer,
		Clock:       func() time.Time { return now },
		IDGenerator: sequentialIDs("ord_"),
		Events:      events,
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return orderFixture{svc: svc, orders: repo, products: products, events: events, now: now}
}

func TestOrderServiceCreatePersistsPricedOrder(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.svc.Create(context.Background(), CreateOrderCommand{
		Actor: testCustomer,
		Lines: []OrderLineRequest{
			{ProductID: "P", Quantity: 2},
			{ProductID: "Q", Quantity: 1},
		},
		ShippingAddress: ShippingAddress{Address: " 1 Main St ", City: "Springfield", PostalCode: "12345", Country: "US"},
		PaymentMethod:   "Stripe",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if order.ID != "ord_001" {
		t.Fatalf("unexpected id %q", order.ID)
	}
	if order.ItemsPrice != 25000 || order.ShippingPrice != 2500 || order.TaxPrice != 0 || order.TotalPrice != 27500 {
		t.Fatalf("unexpected totals %+v", order)
	}
	if order.IsPaid || order.IsDelivered || order.PaidAt != nil || order.DeliveredAt != nil {
		t.Fatalf("new order must start unpaid and undelivered")
	}
	if order.UserEmail != testCustomer.Email || order.UserID != testCustomer.UserID {
		t.Fatalf("expected owner snapshot, got %+v", order)
	}
	if order.ShippingAddress.Address != "1 Main St" {
		t.Fatalf("expected trimmed address, got %q", order.ShippingAddress.Address)
	}
	if !order.CreatedAt.Equal(f.now) {
		t.Fatalf("unexpected createdAt %s", order.CreatedAt)
	}
	if len(f.orders.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(f.orders.inserted))
	}
	if len(f.events.events) != 1 || f.events.events[0].Type != "order.created" || f.events.events[0].TotalPrice != 27500 {
		t.Fatalf("unexpected events %+v", f.events.events)
	}
}

func TestOrderServiceCreateAbortsOnMissingProduct(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.Create(context.Background(), CreateOrderCommand{
		Actor: testCustomer,
		Lines: []OrderLineRequest{
			{ProductID: "P", Quantity: 1},
			{ProductID: "ghost", Quantity: 1},
		},
	})
	if !errors.Is(err, ErrOrderProductNotFound) {
		t.Fatalf("expected ErrOrderProductNotFound, got %v", err)
	}
	if len(f.orders.inserted) != 0 {
		t.Fatalf("expected no order persisted, got %d", len(f.orders.inserted))
	}
	if len(f.events.events) != 0 {
		t.Fatalf("expected no events, got %+v", f.events.events)
	}
}

func TestOrderServiceCreateRejectsEmptyOrder(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.Create(context.Background(), CreateOrderCommand{Actor: testCustomer})
	if !errors.Is(err, ErrOrderEmpty) {
		t.Fatalf("expected ErrOrderEmpty, got %v", err)
	}
	if len(f.orders.inserted) != 0 {
		t.Fatalf("expected nothing persisted")
	}
}

func TestOrderServiceCreateIgnoresPublishFailure(t *testing.T) {
	f := newOrderFixture(t)
	f.events.err = errors.New("broker down")

	if _, err := f.svc.Create(context.Background(), CreateOrderCommand{
		Actor: testCustomer,
		Lines: []OrderLineRequest{{ProductID: "P", Quantity: 1}},
	}); err != nil {
		t.Fatalf("expected publish failure to be logged only, got %v", err)
	}
}

func existingOrder() domain.Order {
	return domain.Order{
		ID:         "ord_existing",
		UserID:     testCustomer.UserID,
		UserEmail:  testCustomer.Email,
		TotalPrice: 27500,
		CreatedAt:  time.Date(2025, 4, 30, 8, 0, 0, 0, time.UTC),
	}
}

func TestOrderServicePayByOwner(t *testing.T) {
	f := newOrderFixture(t, existingOrder())

	order, err := f.svc.Pay(context.Background(), PayOrderCommand{
		OrderID:       "ord_existing",
		Actor:         testCustomer,
		PaymentResult: PaymentResult{ID: "pi_1", Status: "succeeded", EmailAddress: "jane.doe@example.com"},
	})
	if err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if !order.IsPaid || order.PaidAt == nil || !order.PaidAt.Equal(f.now) {
		t.Fatalf("expected paid order, got %+v", order)
	}
	if order.PaymentResult == nil || order.PaymentResult.ID != "pi_1" {
		t.Fatalf("expected payment result stored, got %+v", order.PaymentResult)
	}
	if order.TrackingStatus() != domain.OrderStatusProcessing {
		t.Fatalf("expected processing status, got %s", order.TrackingStatus())
	}
	if last := f.events.events[len(f.events.events)-1]; last.Type != "order.paid" {
		t.Fatalf("expected order.paid event, got %s", last.Type)
	}
}

func TestOrderServicePayTwiceOverwritesConfirmation(t *testing.T) {
	f := newOrderFixture(t, existingOrder())
	ctx := context.Background()

	if _, err := f.svc.Pay(ctx, PayOrderCommand{OrderID: "ord_existing", Actor: testCustomer, PaymentResult: PaymentResult{ID: "pi_1"}}); err != nil {
		t.Fatalf("first Pay: %v", err)
	}
	order, err := f.svc.Pay(ctx, PayOrderCommand{OrderID: "ord_existing", Actor: testCustomer, PaymentResult: PaymentResult{ID: "pi_2"}})
	if err != nil {
		t.Fatalf("second Pay: %v", err)
	}
	if !order.IsPaid || order.PaymentResult.ID != "pi_2" {
		t.Fatalf("expected overwritten payment result, got %+v", order.PaymentResult)
	}
}

func TestOrderServicePayRejectsStranger(t *testing.T) {
	f := newOrderFixture(t, existingOrder())

	_, err := f.svc.Pay(context.Background(), PayOrderCommand{OrderID: "ord_existing", Actor: testStranger})
	if !errors.Is(err, ErrOrderNotAuthorized) {
		t.Fatalf("expected ErrOrderNotAuthorized, got %v", err)
	}
	if f.orders.orders["ord_existing"].IsPaid {
		t.Fatalf("order must remain unpaid")
	}
}

func TestOrderServicePayUnknownOrder(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.Pay(context.Background(), PayOrderCommand{OrderID: "ord_missing", Actor: testCustomer})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderServiceDeliverRequiresAdmin(t *testing.T) {
	f := newOrderFixture(t, existingOrder())
	ctx := context.Background()

	if _, err := f.svc.Deliver(ctx, DeliverOrderCommand{OrderID: "ord_existing", Actor: testCustomer}); !errors.Is(err, ErrOrderNotAuthorized) {
		t.Fatalf("expected ErrOrderNotAuthorized, got %v", err)
	}

	order, err := f.svc.Deliver(ctx, DeliverOrderCommand{OrderID: "ord_existing", Actor: testAdmin})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !order.IsDelivered || order.DeliveredAt == nil {
		t.Fatalf("expected delivered order, got %+v", order)
	}
	if order.TrackingStatus() != domain.OrderStatusDelivered {
		t.Fatalf("expected delivered status, got %s", order.TrackingStatus())
	}
	if order.IsPaid {
		t.Fatalf("deliver must not touch the paid flag")
	}
}

func TestOrderServiceDeliverUnknownOrder(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.Deliver(context.Background(), DeliverOrderCommand{OrderID: "ord_missing", Actor: testAdmin})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderServiceGetScopesToOwnerOrAdmin(t *testing.T) {
	f := newOrderFixture(t, existingOrder())
	ctx := context.Background()

	if _, err := f.svc.Get(ctx, "ord_existing", testCustomer); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	if _, err := f.svc.Get(ctx, "ord_existing", testAdmin); err != nil {
		t.Fatalf("admin Get: %v", err)
	}
	if _, err := f.svc.Get(ctx, "ord_existing", testStranger); !errors.Is(err, ErrOrderNotAuthorized) {
		t.Fatalf("expected ErrOrderNotAuthorized, got %v", err)
	}
	if _, err := f.svc.Get(ctx, "ord_missing", testAdmin); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderServiceTrackMatchesEmailCaseInsensitively(t *testing.T) {
	f := newOrderFixture(t, existingOrder())

	tracking, err := f.svc.Track(context.Background(), TrackOrderCommand{OrderID: "ord_existing", Email: "  JANE.DOE@example.COM "})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if tracking.Status != domain.OrderStatusPendingPayment {
		t.Fatalf("expected pending payment, got %s", tracking.Status)
	}
	if tracking.TotalPrice != 27500 || tracking.ID != "ord_existing" {
		t.Fatalf("unexpected tracking %+v", tracking)
	}
}

func TestOrderServiceTrackMismatchIsNotFound(t *testing.T) {
	f := newOrderFixture(t, existingOrder())
	ctx := context.Background()

	if _, err := f.svc.Track(ctx, TrackOrderCommand{OrderID: "ord_existing", Email: "eve@example.com"}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on mismatch, got %v", err)
	}
	if _, err := f.svc.Track(ctx, TrackOrderCommand{OrderID: "ord_missing", Email: testCustomer.Email}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for unknown id, got %v", err)
	}
	if _, err := f.svc.Track(ctx, TrackOrderCommand{OrderID: "ord_existing"}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput without email, got %v", err)
	}
}

func TestOrderServiceListings(t *testing.T) {
	older := existingOrder()
	newer := existingOrder()
	newer.ID = "ord_newer"
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	other := existingOrder()
	other.ID = "ord_other"
	other.UserID = testStranger.UserID

	f := newOrderFixture(t, older, newer, other)
	ctx := context.Background()

	mine, err := f.svc.ListMine(ctx, testCustomer)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != "ord_newer" {
		t.Fatalf("expected own orders newest first, got %+v", mine)
	}

	if _, err := f.svc.ListAll(ctx, testCustomer); !errors.Is(err, ErrOrderNotAuthorized) {
		t.Fatalf("expected ErrOrderNotAuthorized, got %v", err)
	}
	all, err := f.svc.ListAll(ctx, testAdmin)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(all))
	}
}

func TestOrderServiceMapsRepositoryErrors(t *testing.T) {
	f := newOrderFixture(t, existingOrder())
	f.orders.mutateErr = &testRepoError{msg: "too much contention", conflict: true}

	_, err := f.svc.Pay(context.Background(), PayOrderCommand{OrderID: "ord_existing", Actor: testCustomer})
	if !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("expected ErrOrderConflict, got %v", err)
	}

	f.orders.mutateErr = &testRepoError{msg: "deadline", unavailable: true}
	_, err = f.svc.Deliver(context.Background(), DeliverOrderCommand{OrderID: "ord_existing", Actor: testAdmin})
	if !errors.Is(err, ErrOrderRepositoryUnavailable) {
		t.Fatalf("expected ErrOrderRepositoryUnavailable, got %v", err)
	}
}

func TestNewOrderServiceValidatesDeps(t *testing.T) {
	if _, err := NewOrderService(OrderServiceDeps{}); err == nil {
		t.Fatalf("expected error without repository")
	}
	if _, err := NewOrderService(OrderServiceDeps{Orders: newMemOrderRepo()}); err == nil {
		t.Fatalf("expected error without pricer")
	}
}

func TestOrderServiceMalformedIDsAreNotFound(t *testing.T) {
	stored := existingOrder()
	stored.ID = "a/b"
	f := newOrderFixture(t, stored)
	f.orders.mutateErr = errors.New("store reached")
	ctx := context.Background()

	for _, id := range []string{"a/b", "..", "__x__"} {
		if _, err := f.svc.Track(ctx, TrackOrderCommand{OrderID: id, Email: testCustomer.Email}); !errors.Is(err, ErrOrderNotFound) {
			t.Fatalf("Track %q: expected ErrOrderNotFound, got %v", id, err)
		}
		if _, err := f.svc.Get(ctx, id, testAdmin); !errors.Is(err, ErrOrderNotFound) {
			t.Fatalf("Get %q: expected ErrOrderNotFound, got %v", id, err)
		}
		if _, err := f.svc.Pay(ctx, PayOrderCommand{OrderID: id, Actor: testCustomer}); !errors.Is(err, ErrOrderNotFound) {
			t.Fatalf("Pay %q: expected ErrOrderNotFound, got %v", id, err)
		}
		if _, err := f.svc.Deliver(ctx, DeliverOrderCommand{OrderID: id, Actor: testAdmin}); !errors.Is(err, ErrOrderNotFound) {
			t.Fatalf("Deliver %q: expected ErrOrderNotFound, got %v", id, err)
		}
	}
}

func TestOrderServiceRepositoryErrorsKeepStoreDetailOutOfMessage(t *testing.T) {
	f := newOrderFixture(t, existingOrder())
	storeErr := &testRepoError{
		msg:      `orders.get: rpc error: code = NotFound desc = "projects/acme-prod-123/databases/(default)/documents/orders/ord_x" not found`,
		notFound: true,
	}
	f.orders.mutateErr = storeErr

	_, err := f.svc.Pay(context.Background(), PayOrderCommand{OrderID: "ord_x", Actor: testCustomer})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if strings.Contains(err.Error(), "projects/") || strings.Contains(err.Error(), "rpc error") {
		t.Fatalf("store detail leaked into %q", err.Error())
	}
	var cause *testRepoError
	if !errors.As(err, &cause) || cause != storeErr {
		t.Fatalf("expected repository error to stay reachable, got %v", err)
	}
}
