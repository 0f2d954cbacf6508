package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/abhirana780/medical-backend/internal/platform/textutil"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

const couponIDPrefix = "cpn_"

// CouponServiceDeps bundles dependencies required to construct a CouponService implementation.
type CouponServiceDeps struct {
	Coupons     repositories.CouponRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type couponService struct {
	repo  repositories.CouponRepository
	clock func() time.Time
	newID func() string
}

// NewCouponService wires a CouponService backed by the provided repository.
func NewCouponService(deps CouponServiceDeps) (CouponService, error) {
	if deps.Coupons == nil {
		return nil, ErrCouponRepositoryMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return couponIDPrefix + ulid.Make().String() }
	}
	return &couponService{
		repo:  deps.Coupons,
		clock: func() time.Time { return clock().UTC() },
		newID: idGen,
	}, nil
}

// Validate returns the coupon when it is active and not yet expired. Unknown codes
// are reported the same way as expired ones.
func (s *couponService) Validate(ctx context.Context, code string) (Coupon, error) {
	normalized := textutil.NormalizeCode(code)
	if normalized == "" {
		return Coupon{}, ErrCouponInvalid
	}
	coupon, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return Coupon{}, ErrCouponInvalid
		}
		return Coupon{}, err
	}
	if !coupon.IsValid(s.clock()) {
		return Coupon{}, ErrCouponInvalid
	}
	return coupon, nil
}

func (s *couponService) Create(ctx context.Context, cmd CreateCouponCommand) (Coupon, error) {
	if !cmd.Actor.IsAdmin {
		return Coupon{}, ErrCouponNotAuthorized
	}
	code := textutil.NormalizeCode(cmd.Code)
	if code == "" {
		return Coupon{}, fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}
	if cmd.DiscountPercentage < 1 || cmd.DiscountPercentage > 100 {
		return Coupon{}, fmt.Errorf("%w: discount percentage must be between 1 and 100", ErrCouponInvalidInput)
	}
	if cmd.ExpiryDate.IsZero() {
		return Coupon{}, fmt.Errorf("%w: expiry date is required", ErrCouponInvalidInput)
	}

	active := true
	if cmd.IsActive != nil {
		active = *cmd.IsActive
	}
	coupon := Coupon{
		ID:                 s.newID(),
		Code:               code,
		DiscountPercentage: cmd.DiscountPercentage,
		ExpiryDate:         cmd.ExpiryDate.UTC(),
		IsActive:           active,
		CreatedAt:          s.clock(),
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsConflict() {
			return Coupon{}, fmt.Errorf("%w: %s", ErrCouponExists, code)
		}
		return Coupon{}, err
	}
	return coupon, nil
}

func (s *couponService) List(ctx context.Context, actor Actor) ([]Coupon, error) {
	if !actor.IsAdmin {
		return nil, ErrCouponNotAuthorized
	}
	return s.repo.List(ctx)
}

func (s *couponService) Delete(ctx context.Context, actor Actor, couponID string) error {
	if !actor.IsAdmin {
		return ErrCouponNotAuthorized
	}
	couponID = strings.TrimSpace(couponID)
	if couponID == "" {
		return fmt.Errorf("%w: coupon id is required", ErrCouponInvalidInput)
	}
	if err := s.repo.Delete(ctx, couponID); err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return fmt.Errorf("%w: %s", ErrCouponNotFound, couponID)
		}
		return err
	}
	return nil
}
