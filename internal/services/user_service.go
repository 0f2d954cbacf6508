package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/abhirana780/medical-backend/internal/repositories"
)

const addressIDPrefix = "adr_"

var (
	// ErrUserInvalidInput indicates validation failures for user operations.
	ErrUserInvalidInput = errors.New("user: invalid input")
	// ErrUserNotFound indicates the user profile does not exist.
	ErrUserNotFound = errors.New("user: not found")
	// ErrUserConflict indicates the profile changed concurrently too often to apply the update.
	ErrUserConflict = errors.New("user: conflict")
)

// UserServiceDeps bundles collaborators required to construct a UserService.
type UserServiceDeps struct {
	Users       repositories.UserRepository
	Products    repositories.ProductRepository
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type userService struct {
	users    repositories.UserRepository
	products repositories.ProductRepository
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewUserService wires dependencies into a concrete UserService implementation.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("user service: product repository is required")
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return addressIDPrefix + ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &userService{
		users:    deps.Users,
		products: deps.Products,
		newID:    idGen,
		logger:   logger,
	}, nil
}

// Profile returns the caller's stored state. A user that never mutated anything
// gets an empty profile built from the identity.
func (s *userService) Profile(ctx context.Context, actor Actor) (UserProfile, error) {
	seed, err := profileSeed(actor)
	if err != nil {
		return UserProfile{}, err
	}
	profile, err := s.users.FindByID(ctx, seed.ID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return seed, nil
		}
		return UserProfile{}, mapUserRepositoryError(err)
	}
	return profile, nil
}

// AddToWishlist appends productID unless it is already present. The catalog is not consulted.
func (s *userService) AddToWishlist(ctx context.Context, actor Actor, productID string) ([]string, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrUserInvalidInput)
	}
	profile, err := s.mutate(ctx, actor, func(profile *UserProfile) error {
		if !slices.Contains(profile.Wishlist, productID) {
			profile.Wishlist = append(profile.Wishlist, productID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile.Wishlist, nil
}

func (s *userService) RemoveFromWishlist(ctx context.Context, actor Actor, productID string) ([]string, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrUserInvalidInput)
	}
	profile, err := s.mutate(ctx, actor, func(profile *UserProfile) error {
		profile.Wishlist = slices.DeleteFunc(profile.Wishlist, func(id string) bool {
			return id == productID
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile.Wishlist, nil
}

// Wishlist resolves the stored product ids. Products deleted since they were added are skipped.
func (s *userService) Wishlist(ctx context.Context, actor Actor) ([]Product, error) {
	profile, err := s.Profile(ctx, actor)
	if err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(profile.Wishlist))
	for _, id := range profile.Wishlist {
		product, err := s.products.FindByID(ctx, id)
		if err != nil {
			var repoErr repositories.RepositoryError
			if errors.As(err, &repoErr) && repoErr.IsNotFound() {
				s.logger(ctx, "user.wishlist.missing_product", map[string]any{"productId": id})
				continue
			}
			return nil, mapUserRepositoryError(err)
		}
		products = append(products, product)
	}
	return products, nil
}

// AddAddress saves a new address. A new default clears the flag on every other address.
func (s *userService) AddAddress(ctx context.Context, actor Actor, input AddressInput) ([]Address, error) {
	addr := Address{
		Street:     strings.TrimSpace(input.Street),
		City:       strings.TrimSpace(input.City),
		State:      strings.TrimSpace(input.State),
		PostalCode: strings.TrimSpace(input.PostalCode),
		Country:    strings.TrimSpace(input.Country),
		IsDefault:  input.IsDefault,
	}
	var missing []string
	for field, value := range map[string]string{
		"street":     addr.Street,
		"city":       addr.City,
		"postalCode": addr.PostalCode,
		"country":    addr.Country,
	} {
		if value == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("%w: %s required", ErrUserInvalidInput, strings.Join(missing, ", "))
	}
	addr.ID = s.newID()

	profile, err := s.mutate(ctx, actor, func(profile *UserProfile) error {
		if addr.IsDefault {
			for i := range profile.Addresses {
				profile.Addresses[i].IsDefault = false
			}
		}
		profile.Addresses = append(profile.Addresses, addr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile.Addresses, nil
}

// RemoveAddress drops the address. Removing the default does not promote another one.
func (s *userService) RemoveAddress(ctx context.Context, actor Actor, addressID string) ([]Address, error) {
	addressID = strings.TrimSpace(addressID)
	if addressID == "" {
		return nil, fmt.Errorf("%w: address id is required", ErrUserInvalidInput)
	}
	profile, err := s.mutate(ctx, actor, func(profile *UserProfile) error {
		profile.Addresses = slices.DeleteFunc(profile.Addresses, func(a Address) bool {
			return a.ID == addressID
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile.Addresses, nil
}

func (s *userService) mutate(ctx context.Context, actor Actor, fn repositories.UserMutation) (UserProfile, error) {
	seed, err := profileSeed(actor)
	if err != nil {
		return UserProfile{}, err
	}
	profile, err := s.users.Mutate(ctx, seed, fn)
	if err != nil {
		return UserProfile{}, mapUserRepositoryError(err)
	}
	return profile, nil
}

func profileSeed(actor Actor) (UserProfile, error) {
	uid := strings.TrimSpace(actor.UserID)
	if uid == "" {
		return UserProfile{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	return UserProfile{
		ID:    uid,
		Email: strings.TrimSpace(actor.Email),
		Name:  strings.TrimSpace(actor.Name),
	}, nil
}

func mapUserRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return newStoreError(ErrUserNotFound, err)
		case repoErr.IsConflict():
			return newStoreError(ErrUserConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("user: repository unavailable: %w", err)
		}
	}
	return err
}
