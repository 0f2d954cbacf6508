package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/abhirana780/medical-backend/internal/domain"
	pfirestore "github.com/abhirana780/medical-backend/internal/platform/firestore"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

// AnalyticsRepository computes dashboard aggregates with Firestore aggregation queries.
type AnalyticsRepository struct {
	provider *pfirestore.Provider
	clock    func() time.Time
}

// NewAnalyticsRepository constructs the analytics repository.
func NewAnalyticsRepository(provider *pfirestore.Provider) (*AnalyticsRepository, error) {
	if provider == nil {
		return nil, errors.New("analytics repository requires firestore provider")
	}
	return &AnalyticsRepository{provider: provider, clock: time.Now}, nil
}

// Dashboard collects counts, paid sales and the recent/low-stock projections.
func (r *AnalyticsRepository) Dashboard(ctx context.Context, query repositories.DashboardQuery) (domain.DashboardStats, error) {
	if r == nil || r.provider == nil {
		return domain.DashboardStats{}, errors.New("analytics repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	orders := client.Collection(ordersCollection)
	products := client.Collection(productsCollection)
	lowStock := products.Where("countInStock", "<", query.LowStockThreshold)

	var stats domain.DashboardStats
	if stats.TotalOrders, err = countDocuments(ctx, orders.Query, "analytics.orders"); err != nil {
		return domain.DashboardStats{}, err
	}
	if stats.TotalProducts, err = countDocuments(ctx, products.Query, "analytics.products"); err != nil {
		return domain.DashboardStats{}, err
	}
	if stats.TotalUsers, err = countDocuments(ctx, client.Collection(userCollection).Query, "analytics.users"); err != nil {
		return domain.DashboardStats{}, err
	}
	if stats.TotalSales, err = sumField(ctx, orders.Where("isPaid", "==", true), "totalPrice", "analytics.sales"); err != nil {
		return domain.DashboardStats{}, err
	}
	if stats.LowStockCount, err = countDocuments(ctx, lowStock, "analytics.lowStock"); err != nil {
		return domain.DashboardStats{}, err
	}

	if query.RecentOrders > 0 {
		err := eachDocument(ctx, orders.OrderBy("createdAt", firestore.Desc).Limit(query.RecentOrders), "analytics.recentOrders", func(snap *firestore.DocumentSnapshot) error {
			var doc orderDocument
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
			}
			stats.RecentOrders = append(stats.RecentOrders, doc.toDomain(snap.Ref.ID))
			return nil
		})
		if err != nil {
			return domain.DashboardStats{}, err
		}
	}
	if query.LowStockProducts > 0 {
		err := eachDocument(ctx, lowStock.OrderBy("countInStock", firestore.Asc).Limit(query.LowStockProducts), "analytics.lowStockProducts", func(snap *firestore.DocumentSnapshot) error {
			var doc productDocument
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("decode product %s: %w", snap.Ref.ID, err)
			}
			stats.LowStockProducts = append(stats.LowStockProducts, doc.toDomain(snap.Ref.ID))
			return nil
		})
		if err != nil {
			return domain.DashboardStats{}, err
		}
	}

	stats.GeneratedAt = r.clock().UTC()
	return stats, nil
}

func eachDocument(ctx context.Context, query firestore.Query, op string, fn func(*firestore.DocumentSnapshot) error) error {
	iter := query.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return pfirestore.WrapError(op, err)
		}
		if err := fn(snap); err != nil {
			return err
		}
	}
}

var _ repositories.AnalyticsRepository = (*AnalyticsRepository)(nil)
