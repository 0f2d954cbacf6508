package services

import (
	"context"
	"errors"
	"slices"
	"testing"

	domain "github.com/abhirana780/medical-backend/internal/domain"
)

func newTestUserService(t *testing.T, users *memUserRepo, products *memProductRepo) UserService {
	t.Helper()
	svc, err := NewUserService(UserServiceDeps{
		Users:       users,
		Products:    products,
		IDGenerator: sequentialIDs("adr_"),
	})
	if err != nil {
		t.Fatalf("NewUserService: %v", err)
	}
	return svc
}

func TestUserServiceProfileFallsBackToIdentity(t *testing.T) {
	users := newMemUserRepo()
	svc := newTestUserService(t, users, newMemProductRepo())

	profile, err := svc.Profile(context.Background(), testCustomer)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if profile.ID != testCustomer.UserID || profile.Email != testCustomer.Email || profile.Name != "Jane" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if len(users.users) != 0 {
		t.Fatalf("reading a profile must not create a document")
	}
}

func TestUserServiceWishlistIsIdempotent(t *testing.T) {
	users := newMemUserRepo()
	svc := newTestUserService(t, users, newMemProductRepo())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ids, err := svc.AddToWishlist(ctx, testCustomer, "P")
		if err != nil {
			t.Fatalf("AddToWishlist: %v", err)
		}
		if !slices.Equal(ids, []string{"P"}) {
			t.Fatalf("expected single entry, got %v", ids)
		}
	}
	if len(users.seeds) != 1 || users.seeds[0].Email != testCustomer.Email {
		t.Fatalf("expected lazy creation from identity, got %+v", users.seeds)
	}

	for i := 0; i < 2; i++ {
		ids, err := svc.RemoveFromWishlist(ctx, testCustomer, "P")
		if err != nil {
			t.Fatalf("RemoveFromWishlist: %v", err)
		}
		if len(ids) != 0 {
			t.Fatalf("expected empty wishlist, got %v", ids)
		}
	}
}

func TestUserServiceWishlistAcceptsUnknownProduct(t *testing.T) {
	svc := newTestUserService(t, newMemUserRepo(), newMemProductRepo())

	ids, err := svc.AddToWishlist(context.Background(), testCustomer, "does-not-exist")
	if err != nil {
		t.Fatalf("AddToWishlist: %v", err)
	}
	if !slices.Equal(ids, []string{"does-not-exist"}) {
		t.Fatalf("unexpected wishlist %v", ids)
	}
}

func TestUserServiceWishlistRejectsBlankID(t *testing.T) {
	svc := newTestUserService(t, newMemUserRepo(), newMemProductRepo())

	if _, err := svc.AddToWishlist(context.Background(), testCustomer, " "); !errors.Is(err, ErrUserInvalidInput) {
		t.Fatalf("expected ErrUserInvalidInput, got %v", err)
	}
}

func TestUserServiceWishlistResolvesProducts(t *testing.T) {
	users := newMemUserRepo()
	products := newMemProductRepo(domain.Product{ID: "P", Name: "Oximeter"})
	svc := newTestUserService(t, users, products)
	ctx := context.Background()

	for _, id := range []string{"P", "gone"} {
		if _, err := svc.AddToWishlist(ctx, testCustomer, id); err != nil {
			t.Fatalf("AddToWishlist: %v", err)
		}
	}
	resolved, err := svc.Wishlist(ctx, testCustomer)
	if err != nil {
		t.Fatalf("Wishlist: %v", err)
	}
	if len(resolved) != 1 || resolved[0].Name != "Oximeter" {
		t.Fatalf("expected missing products to be skipped, got %+v", resolved)
	}
}

func TestUserServiceSingleDefaultAddress(t *testing.T) {
	svc := newTestUserService(t, newMemUserRepo(), newMemProductRepo())
	ctx := context.Background()

	base := AddressInput{Street: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"}

	first := base
	first.IsDefault = true
	if _, err := svc.AddAddress(ctx, testCustomer, first); err != nil {
		t.Fatalf("AddAddress: %v", err)
	}
	if _, err := svc.AddAddress(ctx, testCustomer, base); err != nil {
		t.Fatalf("AddAddress: %v", err)
	}
	third := base
	third.Street = "9 Elm St"
	third.IsDefault = true
	addresses, err := svc.AddAddress(ctx, testCustomer, third)
	if err != nil {
		t.Fatalf("AddAddress: %v", err)
	}

	if len(addresses) != 3 {
		t.Fatalf("expected 3 addresses, got %d", len(addresses))
	}
	defaults := 0
	for _, a := range addresses {
		if a.IsDefault {
			defaults++
			if a.ID != "adr_003" {
				t.Fatalf("expected newest address to be default, got %s", a.ID)
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default, got %d", defaults)
	}

	remaining, err := svc.RemoveAddress(ctx, testCustomer, "adr_003")
	if err != nil {
		t.Fatalf("RemoveAddress: %v", err)
	}
	for _, a := range remaining {
		if a.IsDefault {
			t.Fatalf("removing the default must not promote another address")
		}
	}

	unchanged, err := svc.RemoveAddress(ctx, testCustomer, "adr_missing")
	if err != nil {
		t.Fatalf("RemoveAddress unknown id: %v", err)
	}
	if len(unchanged) != 2 {
		t.Fatalf("expected unknown id to be a no-op, got %d addresses", len(unchanged))
	}
}

func TestUserServiceAddAddressValidates(t *testing.T) {
	svc := newTestUserService(t, newMemUserRepo(), newMemProductRepo())

	_, err := svc.AddAddress(context.Background(), testCustomer, AddressInput{Street: "1 Main St"})
	if !errors.Is(err, ErrUserInvalidInput) {
		t.Fatalf("expected ErrUserInvalidInput, got %v", err)
	}
	if got := err.Error(); got != "user: invalid input: city, country, postalCode required" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestUserServiceRequiresIdentity(t *testing.T) {
	svc := newTestUserService(t, newMemUserRepo(), newMemProductRepo())

	if _, err := svc.Profile(context.Background(), Actor{}); !errors.Is(err, ErrUserInvalidInput) {
		t.Fatalf("expected ErrUserInvalidInput, got %v", err)
	}
}

func TestUserServiceMapsUnavailable(t *testing.T) {
	users := newMemUserRepo()
	users.findErr = &testRepoError{msg: "deadline", unavailable: true}
	svc := newTestUserService(t, users, newMemProductRepo())

	_, err := svc.Profile(context.Background(), testCustomer)
	if err == nil || errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}
