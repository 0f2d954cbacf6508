package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/abhirana780/medical-backend/internal/domain"
	pfirestore "github.com/abhirana780/medical-backend/internal/platform/firestore"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository persists orders in a top-level collection keyed by order id.
type OrderRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[orderDocument]
	clock    func() time.Time
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection)
	return &OrderRepository{provider: provider, base: base, clock: time.Now}, nil
}

// Insert creates the order document. An existing id is reported as a conflict.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return errors.New("order repository: order id is required")
	}
	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fromDomainOrder(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// FindByID loads a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, errors.New("order repository: user id is required")
	}
	return r.list(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", uid).OrderBy("createdAt", firestore.Desc)
	})
}

// ListAll returns every order, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	return r.list(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc)
	})
}

// Mutate applies fn to the order inside a transaction.
func (r *OrderRepository) Mutate(ctx context.Context, orderID string, fn repositories.OrderMutation) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if fn == nil {
		return domain.Order{}, errors.New("order repository: mutation is required")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	var (
		saved       domain.Order
		callbackErr error
	)
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, id)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode order %s: %w", id, err)
		}
		order := doc.toDomain(id)
		if err := fn(&order); err != nil {
			callbackErr = err
			return err
		}
		order.ID = id
		order.UpdatedAt = r.clock().UTC()
		if err := tx.Set(ref, fromDomainOrder(order)); err != nil {
			return err
		}
		saved = order
		return nil
	})
	if callbackErr != nil {
		return domain.Order{}, callbackErr
	}
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.mutate", err)
	}
	return saved, nil
}

func (r *OrderRepository) list(ctx context.Context, build pfirestore.QueryBuilder) ([]domain.Order, error) {
	docs, err := r.base.Query(ctx, build)
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.Data.toDomain(doc.ID))
	}
	return orders, nil
}

type orderDocument struct {
	UserID          string                  `firestore:"userId"`
	UserEmail       string                  `firestore:"userEmail"`
	UserName        string                  `firestore:"userName"`
	Items           []orderLineDocument     `firestore:"orderItems"`
	ShippingAddress shippingAddressDocument `firestore:"shippingAddress"`
	PaymentMethod   string                  `firestore:"paymentMethod"`
	ItemsPrice      int64                   `firestore:"itemsPrice"`
	ShippingPrice   int64                   `firestore:"shippingPrice"`
	TaxPrice        int64                   `firestore:"taxPrice"`
	TotalPrice      int64                   `firestore:"totalPrice"`
	IsPaid          bool                    `firestore:"isPaid"`
	PaidAt          *time.Time              `firestore:"paidAt,omitempty"`
	PaymentResult   *paymentResultDocument  `firestore:"paymentResult,omitempty"`
	IsDelivered     bool                    `firestore:"isDelivered"`
	DeliveredAt     *time.Time              `firestore:"deliveredAt,omitempty"`
	CreatedAt       time.Time               `firestore:"createdAt"`
	UpdatedAt       time.Time               `firestore:"updatedAt"`
}

type orderLineDocument struct {
	ProductID string `firestore:"product"`
	Name      string `firestore:"name"`
	Image     string `firestore:"image"`
	Price     int64  `firestore:"price"`
	Quantity  int    `firestore:"qty"`
}

type shippingAddressDocument struct {
	Address    string `firestore:"address"`
	City       string `firestore:"city"`
	PostalCode string `firestore:"postalCode"`
	Country    string `firestore:"country"`
}

type paymentResultDocument struct {
	ID           string `firestore:"id"`
	Status       string `firestore:"status"`
	UpdateTime   string `firestore:"updateTime"`
	EmailAddress string `firestore:"emailAddress"`
}

func (d orderDocument) toDomain(id string) domain.Order {
	lines := make([]domain.OrderLine, 0, len(d.Items))
	for _, item := range d.Items {
		lines = append(lines, domain.OrderLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	order := domain.Order{
		ID:        id,
		UserID:    d.UserID,
		UserEmail: d.UserEmail,
		UserName:  d.UserName,
		Lines:     lines,
		ShippingAddress: domain.ShippingAddress{
			Address:    d.ShippingAddress.Address,
			City:       d.ShippingAddress.City,
			PostalCode: d.ShippingAddress.PostalCode,
			Country:    d.ShippingAddress.Country,
		},
		PaymentMethod: d.PaymentMethod,
		ItemsPrice:    d.ItemsPrice,
		ShippingPrice: d.ShippingPrice,
		TaxPrice:      d.TaxPrice,
		TotalPrice:    d.TotalPrice,
		IsPaid:        d.IsPaid,
		PaidAt:        cloneTime(d.PaidAt),
		IsDelivered:   d.IsDelivered,
		DeliveredAt:   cloneTime(d.DeliveredAt),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.PaymentResult != nil {
		order.PaymentResult = &domain.PaymentResult{
			ID:           d.PaymentResult.ID,
			Status:       d.PaymentResult.Status,
			UpdateTime:   d.PaymentResult.UpdateTime,
			EmailAddress: d.PaymentResult.EmailAddress,
		}
	}
	return order
}

func fromDomainOrder(order domain.Order) orderDocument {
	items := make([]orderLineDocument, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, orderLineDocument{
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			Price:     line.Price,
			Quantity:  line.Quantity,
		})
	}
	doc := orderDocument{
		UserID:    order.UserID,
		UserEmail: order.UserEmail,
		UserName:  order.UserName,
		Items:     items,
		ShippingAddress: shippingAddressDocument{
			Address:    order.ShippingAddress.Address,
			City:       order.ShippingAddress.City,
			PostalCode: order.ShippingAddress.PostalCode,
			Country:    order.ShippingAddress.Country,
		},
		PaymentMethod: order.PaymentMethod,
		ItemsPrice:    order.ItemsPrice,
		ShippingPrice: order.ShippingPrice,
		TaxPrice:      order.TaxPrice,
		TotalPrice:    order.TotalPrice,
		IsPaid:        order.IsPaid,
		PaidAt:        cloneTime(order.PaidAt),
		IsDelivered:   order.IsDelivered,
		DeliveredAt:   cloneTime(order.DeliveredAt),
		CreatedAt:     order.CreatedAt.UTC(),
		UpdatedAt:     order.UpdatedAt.UTC(),
	}
	if order.PaymentResult != nil {
		doc.PaymentResult = &paymentResultDocument{
			ID:           order.PaymentResult.ID,
			Status:       order.PaymentResult.Status,
			UpdateTime:   order.PaymentResult.UpdateTime,
			EmailAddress: order.PaymentResult.EmailAddress,
		}
	}
	return doc
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	cloned := value.UTC()
	return &cloned
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
