package handlers

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"

	domain "github.com/abhirana780/medical-backend/internal/domain"
	"github.com/abhirana780/medical-backend/internal/services"
)

// amount is a money value held in cents and exchanged on the wire in major
// units, so 18999 is written as 189.99 and a request price of 25 reads as 2500.
type amount int64

const maxAmountUnits = 1e13

func (a amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(domain.UnitsFromCents(int64(a)), 'f', -1, 64)), nil
}

func (a *amount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	value, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("amount must be a number: %s", data)
	}
	if math.Abs(value) > maxAmountUnits {
		return fmt.Errorf("amount out of range: %s", data)
	}
	*a = amount(domain.CentsFromUnits(value))
	return nil
}

func (a amount) cents() int64 { return int64(a) }

func amountPtr(cents *int64) *amount {
	if cents == nil {
		return nil
	}
	v := amount(*cents)
	return &v
}

func centsPtr(a *amount) *int64 {
	if a == nil {
		return nil
	}
	v := a.cents()
	return &v
}

type productPayload struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Price        amount          `json:"price"`
	OldPrice     *amount         `json:"oldPrice,omitempty"`
	Image        string          `json:"image"`
	Description  string          `json:"description"`
	CountInStock int             `json:"countInStock"`
	InStock      bool            `json:"inStock"`
	IsNewArrival bool            `json:"isNewArrival"`
	IsSale       bool            `json:"isSale"`
	Rating       float64         `json:"rating"`
	NumReviews   int             `json:"numReviews"`
	Reviews      []reviewPayload `json:"reviews"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
}

type reviewPayload struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Name      string `json:"name"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type reviewFeedPayload struct {
	reviewPayload
	Product reviewProductPayload `json:"product"`
}

type reviewProductPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

type orderPayload struct {
	ID              string                 `json:"id"`
	User            string                 `json:"user"`
	UserEmail       string                 `json:"userEmail,omitempty"`
	UserName        string                 `json:"userName,omitempty"`
	OrderItems      []orderItemPayload     `json:"orderItems"`
	ShippingAddress shippingAddressPayload `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	PaymentResult   *paymentResultPayload  `json:"paymentResult,omitempty"`
	ItemsPrice      amount                 `json:"itemsPrice"`
	ShippingPrice   amount                 `json:"shippingPrice"`
	TaxPrice        amount                 `json:"taxPrice"`
	TotalPrice      amount                 `json:"totalPrice"`
	IsPaid          bool                   `json:"isPaid"`
	PaidAt          string                 `json:"paidAt,omitempty"`
	IsDelivered     bool                   `json:"isDelivered"`
	DeliveredAt     string                 `json:"deliveredAt,omitempty"`
	Status          string                 `json:"status"`
	CreatedAt       string                 `json:"createdAt,omitempty"`
	UpdatedAt       string                 `json:"updatedAt,omitempty"`
}

type orderItemPayload struct {
	Product  string `json:"product"`
	Name     string `json:"name"`
	Image    string `json:"image,omitempty"`
	Price    amount `json:"price"`
	Quantity int    `json:"qty"`
}

type shippingAddressPayload struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type paymentResultPayload struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

type trackingPayload struct {
	ID          string             `json:"id"`
	CreatedAt   string             `json:"createdAt,omitempty"`
	IsPaid      bool               `json:"isPaid"`
	IsDelivered bool               `json:"isDelivered"`
	DeliveredAt string             `json:"deliveredAt,omitempty"`
	TotalPrice  amount             `json:"totalPrice"`
	OrderItems  []orderItemPayload `json:"orderItems"`
	Status      string             `json:"status"`
}

type addressPayload struct {
	ID         string `json:"id"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"isDefault"`
}

type profilePayload struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Wishlist  []string         `json:"wishlist"`
	Addresses []addressPayload `json:"addresses"`
}

type couponPayload struct {
	ID                 string `json:"id"`
	Code               string `json:"code"`
	DiscountPercentage int    `json:"discountPercentage"`
	ExpiryDate         string `json:"expiryDate,omitempty"`
	IsActive           bool   `json:"isActive"`
	CreatedAt          string `json:"createdAt,omitempty"`
}

type dashboardPayload struct {
	OrdersCount      int64                 `json:"ordersCount"`
	ProductsCount    int64                 `json:"productsCount"`
	UsersCount       int64                 `json:"usersCount"`
	TotalSales       amount                `json:"totalSales"`
	RecentOrders     []orderPayload        `json:"recentOrders"`
	LowStockCount    int64                 `json:"lowStockCount"`
	LowStockProducts []lowStockItemPayload `json:"lowStockProducts"`
	GeneratedAt      string                `json:"generatedAt,omitempty"`
}

type lowStockItemPayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CountInStock int    `json:"countInStock"`
}

func buildProductPayload(p services.Product) productPayload {
	reviews := make([]reviewPayload, 0, len(p.Reviews))
	for _, review := range p.Reviews {
		reviews = append(reviews, buildReviewPayload(review))
	}
	return productPayload{
		ID:           p.ID,
		Name:         p.Name,
		Category:     p.Category,
		Price:        amount(p.Price),
		OldPrice:     amountPtr(p.OldPrice),
		Image:        p.Image,
		Description:  p.Description,
		CountInStock: p.CountInStock,
		InStock:      p.InStock(),
		IsNewArrival: p.IsNewArrival,
		IsSale:       p.IsSale,
		Rating:       p.Rating,
		NumReviews:   p.NumReviews,
		Reviews:      reviews,
		CreatedAt:    formatTime(p.CreatedAt),
		UpdatedAt:    formatTime(p.UpdatedAt),
	}
}

func buildProductList(products []services.Product) []productPayload {
	out := make([]productPayload, 0, len(products))
	for _, p := range products {
		out = append(out, buildProductPayload(p))
	}
	return out
}

func buildReviewPayload(r services.Review) reviewPayload {
	return reviewPayload{
		ID:        r.ID,
		User:      r.UserID,
		Name:      r.Name,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: formatTime(r.CreatedAt),
	}
}

func buildReviewFeed(items []services.ReviewFeedItem) []reviewFeedPayload {
	out := make([]reviewFeedPayload, 0, len(items))
	for _, item := range items {
		out = append(out, reviewFeedPayload{
			reviewPayload: buildReviewPayload(item.Review),
			Product: reviewProductPayload{
				ID:    item.ProductID,
				Name:  item.ProductName,
				Image: item.ProductImage,
			},
		})
	}
	return out
}

func buildOrderItems(lines []services.OrderLine) []orderItemPayload {
	out := make([]orderItemPayload, 0, len(lines))
	for _, line := range lines {
		out = append(out, orderItemPayload{
			Product:  line.ProductID,
			Name:     line.Name,
			Image:    line.Image,
			Price:    amount(line.Price),
			Quantity: line.Quantity,
		})
	}
	return out
}

func buildOrderPayload(o services.Order) orderPayload {
	payload := orderPayload{
		ID:         o.ID,
		User:       o.UserID,
		UserEmail:  o.UserEmail,
		UserName:   o.UserName,
		OrderItems: buildOrderItems(o.Lines),
		ShippingAddress: shippingAddressPayload{
			Address:    o.ShippingAddress.Address,
			City:       o.ShippingAddress.City,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
		},
		PaymentMethod: o.PaymentMethod,
		ItemsPrice:    amount(o.ItemsPrice),
		ShippingPrice: amount(o.ShippingPrice),
		TaxPrice:      amount(o.TaxPrice),
		TotalPrice:    amount(o.TotalPrice),
		IsPaid:        o.IsPaid,
		PaidAt:        formatTimePtr(o.PaidAt),
		IsDelivered:   o.IsDelivered,
		DeliveredAt:   formatTimePtr(o.DeliveredAt),
		Status:        string(o.TrackingStatus()),
		CreatedAt:     formatTime(o.CreatedAt),
		UpdatedAt:     formatTime(o.UpdatedAt),
	}
	if o.PaymentResult != nil {
		payload.PaymentResult = &paymentResultPayload{
			ID:           o.PaymentResult.ID,
			Status:       o.PaymentResult.Status,
			UpdateTime:   o.PaymentResult.UpdateTime,
			EmailAddress: o.PaymentResult.EmailAddress,
		}
	}
	return payload
}

func buildOrderList(orders []services.Order) []orderPayload {
	out := make([]orderPayload, 0, len(orders))
	for _, o := range orders {
		out = append(out, buildOrderPayload(o))
	}
	return out
}

func buildTrackingPayload(t services.OrderTracking) trackingPayload {
	return trackingPayload{
		ID:          t.ID,
		CreatedAt:   formatTime(t.CreatedAt),
		IsPaid:      t.IsPaid,
		IsDelivered: t.IsDelivered,
		DeliveredAt: formatTimePtr(t.DeliveredAt),
		TotalPrice:  amount(t.TotalPrice),
		OrderItems:  buildOrderItems(t.Lines),
		Status:      string(t.Status),
	}
}

func buildAddressList(addresses []services.Address) []addressPayload {
	out := make([]addressPayload, 0, len(addresses))
	for _, a := range addresses {
		out = append(out, addressPayload{
			ID:         a.ID,
			Street:     a.Street,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
			IsDefault:  a.IsDefault,
		})
	}
	return out
}

func buildProfilePayload(p services.UserProfile) profilePayload {
	wishlist := append([]string{}, p.Wishlist...)
	return profilePayload{
		ID:        p.ID,
		Email:     p.Email,
		Name:      p.Name,
		Wishlist:  wishlist,
		Addresses: buildAddressList(p.Addresses),
	}
}

func buildCouponPayload(c services.Coupon) couponPayload {
	return couponPayload{
		ID:                 c.ID,
		Code:               c.Code,
		DiscountPercentage: c.DiscountPercentage,
		ExpiryDate:         formatTime(c.ExpiryDate),
		IsActive:           c.IsActive,
		CreatedAt:          formatTime(c.CreatedAt),
	}
}

func buildDashboardPayload(s services.DashboardStats) dashboardPayload {
	lowStock := make([]lowStockItemPayload, 0, len(s.LowStockProducts))
	for _, p := range s.LowStockProducts {
		lowStock = append(lowStock, lowStockItemPayload{ID: p.ID, Name: p.Name, CountInStock: p.CountInStock})
	}
	return dashboardPayload{
		OrdersCount:      s.TotalOrders,
		ProductsCount:    s.TotalProducts,
		UsersCount:       s.TotalUsers,
		TotalSales:       amount(s.TotalSales),
		RecentOrders:     buildOrderList(s.RecentOrders),
		LowStockCount:    s.LowStockCount,
		LowStockProducts: lowStock,
		GeneratedAt:      formatTime(s.GeneratedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
