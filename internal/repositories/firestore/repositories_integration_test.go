//go:build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/abhirana780/medical-backend/internal/domain"
	pconfig "github.com/abhirana780/medical-backend/internal/platform/config"
	pfirestore "github.com/abhirana780/medical-backend/internal/platform/firestore"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"

func TestRepositoriesIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}
	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })
	waitForEndpoint(t, endpoint, 30*time.Second)

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{
		ProjectID:    "medical-test",
		EmulatorHost: endpoint,
	})
	reg, err := NewRegistry(provider, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	t.Run("concurrent reviews keep the aggregate consistent", func(t *testing.T) {
		products := reg.Products()
		if _, err := products.Insert(ctx, domain.Product{ID: "prd_gloves", Name: "Gloves", Category: "PPE", Price: 1299, CountInStock: 5}); err != nil {
			t.Fatalf("insert product: %v", err)
		}

		const reviewers = 8
		var wg sync.WaitGroup
		for i := 0; i < reviewers; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				_, err := products.Mutate(ctx, "prd_gloves", func(p *domain.Product) error {
					p.Reviews = append(p.Reviews, domain.Review{
						ID:        fmt.Sprintf("rev_%d", idx),
						UserID:    fmt.Sprintf("user-%d", idx),
						Rating:    1 + idx%5,
						Comment:   "ok",
						CreatedAt: time.Now().UTC(),
					})
					return nil
				})
				if err != nil {
					t.Errorf("mutate %d: %v", idx, err)
				}
			}(i)
		}
		wg.Wait()

		product, err := products.FindByID(ctx, "prd_gloves")
		if err != nil {
			t.Fatalf("find product: %v", err)
		}
		if product.NumReviews != reviewers || len(product.Reviews) != reviewers {
			t.Fatalf("expected %d reviews, got %d/%d", reviewers, product.NumReviews, len(product.Reviews))
		}
		rating, _ := domain.RecomputeAggregate(product.Reviews)
		if product.Rating != rating {
			t.Fatalf("stored rating %v does not match reviews %v", product.Rating, rating)
		}

		sentinel := errors.New("reject")
		if _, err := products.Mutate(ctx, "prd_gloves", func(*domain.Product) error { return sentinel }); !errors.Is(err, sentinel) {
			t.Fatalf("expected callback error to surface, got %v", err)
		}
	})

	t.Run("coupon codes are unique", func(t *testing.T) {
		coupons := reg.Coupons()
		now := time.Now().UTC()
		if err := coupons.Create(ctx, domain.Coupon{ID: "cpn_1", Code: "SAVE10", DiscountPercentage: 10, IsActive: true, ExpiryDate: now.Add(time.Hour), CreatedAt: now}); err != nil {
			t.Fatalf("create coupon: %v", err)
		}
		err := coupons.Create(ctx, domain.Coupon{ID: "cpn_2", Code: "SAVE10", DiscountPercentage: 20, IsActive: true, ExpiryDate: now.Add(time.Hour), CreatedAt: now})
		var repoErr repositories.RepositoryError
		if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
			t.Fatalf("expected conflict, got %v", err)
		}
		if err := coupons.Delete(ctx, "cpn_missing"); !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
			t.Fatalf("expected not found on delete, got %v", err)
		}
	})

	t.Run("user documents are created lazily", func(t *testing.T) {
		users := reg.Users()
		profile, err := users.Mutate(ctx, domain.UserProfile{ID: "uid-1", Email: "a@example.com"}, func(p *domain.UserProfile) error {
			p.Wishlist = append(p.Wishlist, "prd_gloves")
			return nil
		})
		if err != nil {
			t.Fatalf("mutate user: %v", err)
		}
		if profile.Email != "a@example.com" || len(profile.Wishlist) != 1 {
			t.Fatalf("unexpected profile %+v", profile)
		}
		count, err := users.Count(ctx)
		if err != nil {
			t.Fatalf("count users: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected one user, got %d", count)
		}
	})

	t.Run("dashboard aggregates paid sales", func(t *testing.T) {
		orders := reg.Orders()
		now := time.Now().UTC()
		if err := orders.Insert(ctx, domain.Order{ID: "ord_1", UserID: "uid-1", TotalPrice: 5000, IsPaid: true, CreatedAt: now}); err != nil {
			t.Fatalf("insert order: %v", err)
		}
		if err := orders.Insert(ctx, domain.Order{ID: "ord_2", UserID: "uid-1", TotalPrice: 7000, CreatedAt: now.Add(time.Second)}); err != nil {
			t.Fatalf("insert order: %v", err)
		}
		stats, err := reg.Analytics().Dashboard(ctx, repositories.DashboardQuery{RecentOrders: 5, LowStockThreshold: 10, LowStockProducts: 5})
		if err != nil {
			t.Fatalf("dashboard: %v", err)
		}
		if stats.TotalOrders != 2 || stats.TotalSales != 5000 {
			t.Fatalf("unexpected stats %+v", stats)
		}
		if len(stats.RecentOrders) != 2 || stats.RecentOrders[0].ID != "ord_2" {
			t.Fatalf("expected newest order first, got %+v", stats.RecentOrders)
		}
		if stats.LowStockCount != 1 {
			t.Fatalf("expected one low stock product, got %d", stats.LowStockCount)
		}
	})
}

func freePort(t *testing.T) int {
	t.Helper()
	addr, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer addr.Close()
	return addr.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}
	out, err := exec.Command("docker", args...).CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, "docker", "info").Run(); err != nil {
		t.Fatalf("docker daemon not available: %v", err)
	}
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = exec.CommandContext(ctx, "docker", "stop", id).Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("firestore emulator at %s did not become ready within %s", endpoint, timeout)
}
