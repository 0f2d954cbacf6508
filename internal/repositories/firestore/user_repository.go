package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/abhirana780/medical-backend/internal/domain"
	pfirestore "github.com/abhirana780/medical-backend/internal/platform/firestore"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

const userCollection = "users"

// UserRepository keeps one document per Firebase user holding the wishlist and saved addresses.
type UserRepository struct {
	base     *pfirestore.BaseRepository[userDocument]
	provider *pfirestore.Provider
	clock    func() time.Time
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[userDocument](provider, userCollection)
	return &UserRepository{base: base, provider: provider, clock: time.Now}, nil
}

// FindByID loads the user profile by UID.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.UserProfile, error) {
	if r == nil || r.base == nil {
		return domain.UserProfile{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.UserProfile{}, errors.New("user id is required")
	}

	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, err
	}
	profile := doc.Data.toDomain(doc.ID)
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = doc.CreateTime
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = doc.UpdateTime
	}
	return profile, nil
}

// Mutate runs fn against the user document inside a transaction. When the
// document does not exist it is created from seed; the transaction keys the
// write on the version that was read.
func (r *UserRepository) Mutate(ctx context.Context, seed domain.UserProfile, fn repositories.UserMutation) (domain.UserProfile, error) {
	if r == nil || r.provider == nil {
		return domain.UserProfile{}, errors.New("user repository not initialised")
	}
	if fn == nil {
		return domain.UserProfile{}, errors.New("user repository: mutation is required")
	}
	uid := strings.TrimSpace(seed.ID)
	if uid == "" {
		return domain.UserProfile{}, errors.New("user id is required")
	}

	var (
		saved       domain.UserProfile
		callbackErr error
	)
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, uid)
		if err != nil {
			return err
		}
		now := r.clock().UTC()

		var profile domain.UserProfile
		snap, err := tx.Get(ref)
		switch status.Code(err) {
		case codes.OK:
			var doc userDocument
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("decode user %s: %w", uid, err)
			}
			profile = doc.toDomain(uid)
			if profile.Email == "" {
				profile.Email = seed.Email
			}
			if profile.Name == "" {
				profile.Name = seed.Name
			}
		case codes.NotFound:
			profile = domain.UserProfile{
				ID:        uid,
				Email:     seed.Email,
				Name:      seed.Name,
				CreatedAt: now,
			}
		default:
			return err
		}

		if err := fn(&profile); err != nil {
			callbackErr = err
			return err
		}
		profile.ID = uid
		profile.UpdatedAt = now
		if err := tx.Set(ref, fromDomainUser(profile)); err != nil {
			return err
		}
		saved = profile
		return nil
	})
	if callbackErr != nil {
		return domain.UserProfile{}, callbackErr
	}
	if err != nil {
		return domain.UserProfile{}, pfirestore.WrapError("users.mutate", err)
	}
	return saved, nil
}

// Count returns the number of user documents.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("user repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	return countDocuments(ctx, client.Collection(userCollection).Query, "users.count")
}

type userDocument struct {
	UID       string            `firestore:"uid"`
	Email     string            `firestore:"email"`
	Name      string            `firestore:"name"`
	Wishlist  []string          `firestore:"wishlist"`
	Addresses []addressDocument `firestore:"addresses"`
	CreatedAt time.Time         `firestore:"createdAt"`
	UpdatedAt time.Time         `firestore:"updatedAt"`
}

type addressDocument struct {
	ID         string `firestore:"id"`
	Street     string `firestore:"street"`
	City       string `firestore:"city"`
	State      string `firestore:"state,omitempty"`
	PostalCode string `firestore:"postalCode"`
	Country    string `firestore:"country"`
	IsDefault  bool   `firestore:"isDefault"`
}

func (d userDocument) toDomain(id string) domain.UserProfile {
	addresses := make([]domain.Address, 0, len(d.Addresses))
	for _, addr := range d.Addresses {
		addresses = append(addresses, domain.Address{
			ID:         addr.ID,
			Street:     addr.Street,
			City:       addr.City,
			State:      addr.State,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
			IsDefault:  addr.IsDefault,
		})
	}
	return domain.UserProfile{
		ID:        id,
		Email:     d.Email,
		Name:      d.Name,
		Wishlist:  cloneStringSlice(d.Wishlist),
		Addresses: addresses,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func fromDomainUser(profile domain.UserProfile) userDocument {
	addresses := make([]addressDocument, 0, len(profile.Addresses))
	for _, addr := range profile.Addresses {
		addresses = append(addresses, addressDocument{
			ID:         addr.ID,
			Street:     addr.Street,
			City:       addr.City,
			State:      addr.State,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
			IsDefault:  addr.IsDefault,
		})
	}
	wishlist := cloneStringSlice(profile.Wishlist)
	if wishlist == nil {
		wishlist = []string{}
	}
	return userDocument{
		UID:       profile.ID,
		Email:     profile.Email,
		Name:      profile.Name,
		Wishlist:  wishlist,
		Addresses: addresses,
		CreatedAt: profile.CreatedAt.UTC(),
		UpdatedAt: profile.UpdatedAt.UTC(),
	}
}

func cloneStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

var _ repositories.UserRepository = (*UserRepository)(nil)
