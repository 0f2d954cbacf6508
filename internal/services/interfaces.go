package services

import (
	"context"
	"time"

	domain "github.com/abhirana780/medical-backend/internal/domain"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product            = domain.Product
	Review             = domain.Review
	ReviewFeedItem     = domain.ReviewFeedItem
	Order              = domain.Order
	OrderLine          = domain.OrderLine
	OrderStatus        = domain.OrderStatus
	OrderTracking      = domain.OrderTracking
	ShippingAddress    = domain.ShippingAddress
	PaymentResult      = domain.PaymentResult
	PricingBreakdown   = domain.PricingBreakdown
	UserProfile        = domain.UserProfile
	Address            = domain.Address
	Coupon             = domain.Coupon
	DashboardStats     = domain.DashboardStats
	SystemHealthReport = domain.SystemHealthReport
	ProductListFilter  = repositories.ProductListFilter
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	UserID  string
	Email   string
	Name    string
	IsAdmin bool
}

// CatalogService exposes catalog browsing and admin maintenance.
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductListFilter) ([]Product, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error)
	UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error)
	DeleteProduct(ctx context.Context, cmd DeleteProductCommand) error
}

// OrderPricer re-prices an order request from the catalog.
type OrderPricer interface {
	Price(ctx context.Context, cmd PriceOrderCommand) (PricingBreakdown, error)
}

// OrderService owns the order lifecycle: creation, payment, delivery and lookups.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	Pay(ctx context.Context, cmd PayOrderCommand) (Order, error)
	Deliver(ctx context.Context, cmd DeliverOrderCommand) (Order, error)
	Get(ctx context.Context, orderID string, actor Actor) (Order, error)
	Track(ctx context.Context, cmd TrackOrderCommand) (OrderTracking, error)
	ListMine(ctx context.Context, actor Actor) ([]Order, error)
	ListAll(ctx context.Context, actor Actor) ([]Order, error)
}

// ReviewService maintains product reviews and their rating aggregate.
type ReviewService interface {
	Add(ctx context.Context, cmd AddReviewCommand) (Product, error)
	Remove(ctx context.Context, cmd RemoveReviewCommand) (Product, error)
	ListTop(ctx context.Context, limit int) ([]ReviewFeedItem, error)
	ListAll(ctx context.Context, actor Actor) ([]ReviewFeedItem, error)
}

// UserService manages per-user wishlist and saved addresses.
type UserService interface {
	Profile(ctx context.Context, actor Actor) (UserProfile, error)
	AddToWishlist(ctx context.Context, actor Actor, productID string) ([]string, error)
	RemoveFromWishlist(ctx context.Context, actor Actor, productID string) ([]string, error)
	Wishlist(ctx context.Context, actor Actor) ([]Product, error)
	AddAddress(ctx context.Context, actor Actor, input AddressInput) ([]Address, error)
	RemoveAddress(ctx context.Context, actor Actor, addressID string) ([]Address, error)
}

// CouponService validates discount codes and lets admins manage them.
type CouponService interface {
	Validate(ctx context.Context, code string) (Coupon, error)
	Create(ctx context.Context, cmd CreateCouponCommand) (Coupon, error)
	List(ctx context.Context, actor Actor) ([]Coupon, error)
	Delete(ctx context.Context, actor Actor, couponID string) error
}

// PaymentService creates PSP payment intents for existing orders.
type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, cmd CreatePaymentIntentCommand) (PaymentIntent, error)
	PublishableKey() string
}

// AnalyticsService builds the admin dashboard.
type AnalyticsService interface {
	Dashboard(ctx context.Context, actor Actor) (DashboardStats, error)
}

// SystemService exposes health reporting.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// ReviewEventPublisher publishes review domain events.
type ReviewEventPublisher interface {
	PublishReviewEvent(ctx context.Context, event ReviewEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type       string
	OrderID    string
	UserID     string
	ActorID    string
	TotalPrice int64
	OccurredAt time.Time
}

// ReviewEvent captures metadata for emitted review domain events.
type ReviewEvent struct {
	Type       string
	ReviewID   string
	ProductID  string
	UserID     string
	Rating     float64
	NumReviews int
	OccurredAt time.Time
}

// CreateProductCommand carries the admin-supplied catalog fields.
type CreateProductCommand struct {
	Actor        Actor
	Name         string
	Category     string
	Price        int64
	OldPrice     *int64
	Image        string
	Description  string
	CountInStock int
	IsNewArrival bool
	IsSale       bool
}

// UpdateProductCommand patches a product. Nil and empty fields keep their current value.
type UpdateProductCommand struct {
	Actor        Actor
	ProductID    string
	Name         *string
	Category     *string
	Price        *int64
	OldPrice     *int64
	Image        *string
	Description  *string
	CountInStock *int
	IsNewArrival *bool
	IsSale       *bool
}

type DeleteProductCommand struct {
	Actor     Actor
	ProductID string
}

// OrderLineRequest is a client cart line. It deliberately has no price.
type OrderLineRequest struct {
	ProductID string
	Quantity  int
}

type PriceOrderCommand struct {
	Lines           []OrderLineRequest
	ShippingAddress ShippingAddress
}

type CreateOrderCommand struct {
	Actor           Actor
	Lines           []OrderLineRequest
	ShippingAddress ShippingAddress
	PaymentMethod   string
}

type PayOrderCommand struct {
	OrderID       string
	Actor         Actor
	PaymentResult PaymentResult
}

type DeliverOrderCommand struct {
	OrderID string
	Actor   Actor
}

type TrackOrderCommand struct {
	OrderID string
	Email   string
}

type AddReviewCommand struct {
	ProductID   string
	Actor       Actor
	DisplayName string
	Rating      int
	Comment     string
}

type RemoveReviewCommand struct {
	ProductID string
	ReviewID  string
	Actor     Actor
}

// AddressInput is a new saved address as submitted by the user.
type AddressInput struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
	IsDefault  bool
}

type CreateCouponCommand struct {
	Actor              Actor
	Code               string
	DiscountPercentage int
	ExpiryDate         time.Time
	IsActive           *bool
}

type CreatePaymentIntentCommand struct {
	Actor    Actor
	OrderID  string
	Currency string
}

// PaymentIntent is the client-facing result of creating a PSP payment intent.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Provider     string
}
