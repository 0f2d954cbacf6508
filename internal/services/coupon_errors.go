package services

import "errors"

var (
	// ErrCouponRepositoryMissing indicates the coupon repository dependency is absent.
	ErrCouponRepositoryMissing = errors.New("coupon service: repository is not configured")
	// ErrCouponInvalidInput signals malformed coupon data such as an empty code.
	ErrCouponInvalidInput = errors.New("coupon service: invalid input")
	// ErrCouponInvalid is returned when a code is unknown, inactive or expired.
	ErrCouponInvalid = errors.New("coupon service: invalid or expired coupon")
	// ErrCouponExists indicates the code is already taken.
	ErrCouponExists = errors.New("coupon service: coupon already exists")
	// ErrCouponNotFound indicates no coupon exists for the provided id.
	ErrCouponNotFound = errors.New("coupon service: coupon not found")
	// ErrCouponNotAuthorized indicates the actor may not manage coupons.
	ErrCouponNotAuthorized = errors.New("coupon service: not authorized")
)
