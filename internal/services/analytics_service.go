package services

import (
	"context"
	"errors"
	"time"

	"github.com/abhirana780/medical-backend/internal/domain"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

const (
	dashboardRecentOrders     = 5
	dashboardLowStockProducts = 5
)

var (
	// ErrAnalyticsNotAuthorized indicates the dashboard was requested by a non-admin.
	ErrAnalyticsNotAuthorized = errors.New("analytics: not authorized")
	// ErrAnalyticsUnavailable indicates the aggregation backend could not be reached.
	ErrAnalyticsUnavailable = errors.New("analytics: unavailable")
)

// AnalyticsServiceDeps bundles collaborators for the analytics service.
type AnalyticsServiceDeps struct {
	Analytics repositories.AnalyticsRepository
	Clock     func() time.Time
}

type analyticsService struct {
	repo  repositories.AnalyticsRepository
	clock func() time.Time
}

func NewAnalyticsService(deps AnalyticsServiceDeps) (AnalyticsService, error) {
	if deps.Analytics == nil {
		return nil, errors.New("analytics service: analytics repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &analyticsService{
		repo:  deps.Analytics,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

// Dashboard aggregates counts, paid sales, the newest orders and low-stock products.
func (s *analyticsService) Dashboard(ctx context.Context, actor Actor) (DashboardStats, error) {
	if !actor.IsAdmin {
		return DashboardStats{}, ErrAnalyticsNotAuthorized
	}
	stats, err := s.repo.Dashboard(ctx, repositories.DashboardQuery{
		RecentOrders:      dashboardRecentOrders,
		LowStockThreshold: domain.LowStockThreshold,
		LowStockProducts:  dashboardLowStockProducts,
	})
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
			return DashboardStats{}, newStoreError(ErrAnalyticsUnavailable, err)
		}
		return DashboardStats{}, err
	}
	if stats.GeneratedAt.IsZero() {
		stats.GeneratedAt = s.clock()
	}
	return stats, nil
}
