package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/abhirana780/medical-backend/internal/domain"
	pfirestore "github.com/abhirana780/medical-backend/internal/platform/firestore"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

const couponsCollection = "coupons"

// CouponRepository stores coupons keyed by id with a unique code field.
type CouponRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[couponDocument]
}

// NewCouponRepository constructs a Firestore-backed coupon repository.
func NewCouponRepository(provider *pfirestore.Provider) (*CouponRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[couponDocument](provider, couponsCollection)
	return &CouponRepository{provider: provider, base: base}, nil
}

// Create inserts the coupon, checking code uniqueness in the same transaction.
func (r *CouponRepository) Create(ctx context.Context, coupon domain.Coupon) error {
	if r == nil || r.provider == nil {
		return errors.New("coupon repository not initialised")
	}
	id := strings.TrimSpace(coupon.ID)
	code := strings.TrimSpace(coupon.Code)
	if id == "" || code == "" {
		return errors.New("coupon repository: id and code are required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	coll := client.Collection(couponsCollection)

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(coll.Where("code", "==", code).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return status.Errorf(codes.AlreadyExists, "coupon code %s already exists", code)
		}
		return tx.Create(coll.Doc(id), fromDomainCoupon(coupon))
	})
	if err != nil {
		return pfirestore.WrapError("coupons.create", err)
	}
	return nil
}

// FindByCode returns the coupon with the exact code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	if r == nil || r.base == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	trimmed := strings.TrimSpace(code)
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("code", "==", trimmed).Limit(1)
	})
	if err != nil {
		return domain.Coupon{}, err
	}
	if len(docs) == 0 {
		return domain.Coupon{}, pfirestore.NotFound("coupons.findByCode", "coupon %s not found", trimmed)
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

// List returns all coupons, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]domain.Coupon, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("coupon repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	coupons := make([]domain.Coupon, 0, len(docs))
	for _, doc := range docs {
		coupons = append(coupons, doc.Data.toDomain(doc.ID))
	}
	return coupons, nil
}

// Delete removes the coupon. Missing coupons report a not-found error.
func (r *CouponRepository) Delete(ctx context.Context, couponID string) error {
	if r == nil || r.base == nil {
		return errors.New("coupon repository not initialised")
	}
	ref, err := r.base.DocumentRef(ctx, strings.TrimSpace(couponID))
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return pfirestore.WrapError("coupons.delete", err)
	}
	return nil
}

type couponDocument struct {
	Code               string    `firestore:"code"`
	DiscountPercentage int       `firestore:"discountPercentage"`
	ExpiryDate         time.Time `firestore:"expiryDate"`
	IsActive           bool      `firestore:"isActive"`
	CreatedAt          time.Time `firestore:"createdAt"`
}

func (d couponDocument) toDomain(id string) domain.Coupon {
	return domain.Coupon{
		ID:                 id,
		Code:               d.Code,
		DiscountPercentage: d.DiscountPercentage,
		ExpiryDate:         d.ExpiryDate,
		IsActive:           d.IsActive,
		CreatedAt:          d.CreatedAt,
	}
}

func fromDomainCoupon(coupon domain.Coupon) couponDocument {
	return couponDocument{
		Code:               coupon.Code,
		DiscountPercentage: coupon.DiscountPercentage,
		ExpiryDate:         coupon.ExpiryDate.UTC(),
		IsActive:           coupon.IsActive,
		CreatedAt:          coupon.CreatedAt.UTC(),
	}
}

var _ repositories.CouponRepository = (*CouponRepository)(nil)
