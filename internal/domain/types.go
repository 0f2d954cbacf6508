package domain

import (
	"time"
)

// RoleAdmin is the custom claim value granting administrative access.
const RoleAdmin = "admin"

// LowStockThreshold marks products that should surface on the admin dashboard.
const LowStockThreshold = 10

// CategoryAll is the catalog filter value meaning "no category filter".
const CategoryAll = "All"

// Product is a catalog entry. Reviews are embedded so the review list and the
// rating aggregate always change in the same document write.
type Product struct {
	ID           string
	Name         string
	Category     string
	Price        int64
	OldPrice     *int64
	Image        string
	Description  string
	CountInStock int
	IsNewArrival bool
	IsSale       bool
	Reviews      []Review
	Rating       float64
	NumReviews   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InStock reports availability. CountInStock is the only stored stock value.
func (p Product) InStock() bool {
	return p.CountInStock > 0
}

// ReviewByUser returns the review written by userID, if any.
func (p Product) ReviewByUser(userID string) (Review, bool) {
	for _, review := range p.Reviews {
		if review.UserID == userID {
			return review, true
		}
	}
	return Review{}, false
}

// Review is a single customer rating attached to a product.
type Review struct {
	ID        string
	UserID    string
	Name      string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// ReviewFeedItem projects a review together with its product for cross-product listings.
type ReviewFeedItem struct {
	Review
	ProductID    string
	ProductName  string
	ProductImage string
}

// OrderStatus is the customer-facing tracking status derived from order flags.
type OrderStatus string

const (
	// OrderStatusDelivered is reported once the order has been handed over.
	OrderStatusDelivered OrderStatus = "Delivered"
	// OrderStatusProcessing is reported for paid orders awaiting delivery.
	OrderStatusProcessing OrderStatus = "Processing"
	// OrderStatusPendingPayment is reported until payment is recorded.
	OrderStatusPendingPayment OrderStatus = "Pending Payment"
)

// Order is a priced and persisted purchase. Prices are snapshots taken from the
// catalog at creation time.
type Order struct {
	ID              string
	UserID          string
	UserEmail       string
	UserName        string
	Lines           []OrderLine
	ShippingAddress ShippingAddress
	PaymentMethod   string
	ItemsPrice      int64
	ShippingPrice   int64
	TaxPrice        int64
	TotalPrice      int64
	IsPaid          bool
	PaidAt          *time.Time
	PaymentResult   *PaymentResult
	IsDelivered     bool
	DeliveredAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TrackingStatus derives the public status. Delivery wins over payment.
func (o Order) TrackingStatus() OrderStatus {
	switch {
	case o.IsDelivered:
		return OrderStatusDelivered
	case o.IsPaid:
		return OrderStatusProcessing
	default:
		return OrderStatusPendingPayment
	}
}

// OrderLine is one priced line of an order.
type OrderLine struct {
	ProductID string
	Name      string
	Image     string
	Price     int64
	Quantity  int
}

// ShippingAddress is the delivery address captured on an order.
type ShippingAddress struct {
	Address    string
	City       string
	PostalCode string
	Country    string
}

// PaymentResult records the payment confirmation reported by the client.
type PaymentResult struct {
	ID           string
	Status       string
	UpdateTime   string
	EmailAddress string
}

// OrderTracking is the public projection returned by order tracking.
type OrderTracking struct {
	ID          string
	CreatedAt   time.Time
	IsPaid      bool
	IsDelivered bool
	DeliveredAt *time.Time
	TotalPrice  int64
	Lines       []OrderLine
	Status      OrderStatus
}

// UserProfile is the storefront state kept per Firebase user.
type UserProfile struct {
	ID        string
	Email     string
	Name      string
	Wishlist  []string
	Addresses []Address
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Address is a saved shipping address. At most one address per user is default.
type Address struct {
	ID         string
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
	IsDefault  bool
}

// Coupon is a percentage discount code.
type Coupon struct {
	ID                 string
	Code               string
	DiscountPercentage int
	ExpiryDate         time.Time
	IsActive           bool
	CreatedAt          time.Time
}

// IsValid reports whether the coupon can be redeemed at now.
func (c Coupon) IsValid(now time.Time) bool {
	return c.IsActive && now.Before(c.ExpiryDate)
}

// DashboardStats summarises store activity for administrators.
type DashboardStats struct {
	TotalOrders      int64
	TotalProducts    int64
	TotalUsers       int64
	TotalSales       int64
	RecentOrders     []Order
	LowStockCount    int64
	LowStockProducts []Product
	GeneratedAt      time.Time
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency check.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
