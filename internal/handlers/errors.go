package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/abhirana780/medical-backend/internal/platform/httpx"
	"github.com/abhirana780/medical-backend/internal/platform/requestctx"
	"github.com/abhirana780/medical-backend/internal/repositories"
	"github.com/abhirana780/medical-backend/internal/services"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// serviceErrors maps service sentinels onto the error envelope. Order matters only where one
// error could wrap two sentinels; the first match wins.
var serviceErrors = []errorMapping{
	{services.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{services.ErrOrderProductNotFound, http.StatusNotFound, "product_not_found"},
	{services.ErrOrderEmpty, http.StatusBadRequest, "order_empty"},
	{services.ErrOrderInvalidInput, http.StatusBadRequest, "invalid_request"},
	{services.ErrOrderNotAuthorized, http.StatusForbidden, "forbidden"},
	{services.ErrOrderConflict, http.StatusConflict, "conflict"},
	{services.ErrOrderRepositoryUnavailable, http.StatusServiceUnavailable, "service_unavailable"},

	{services.ErrReviewProductNotFound, http.StatusNotFound, "product_not_found"},
	{services.ErrReviewNotFound, http.StatusNotFound, "review_not_found"},
	{services.ErrReviewInvalidInput, http.StatusBadRequest, "invalid_request"},
	{services.ErrReviewDuplicate, http.StatusBadRequest, "review_exists"},
	{services.ErrReviewNotAuthorized, http.StatusForbidden, "forbidden"},
	{services.ErrReviewConflict, http.StatusConflict, "conflict"},

	{services.ErrCatalogProductNotFound, http.StatusNotFound, "product_not_found"},
	{services.ErrCatalogInvalidInput, http.StatusBadRequest, "invalid_request"},
	{services.ErrCatalogNotAuthorized, http.StatusForbidden, "forbidden"},
	{services.ErrCatalogConflict, http.StatusConflict, "conflict"},

	{services.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{services.ErrUserInvalidInput, http.StatusBadRequest, "invalid_request"},
	{services.ErrUserConflict, http.StatusConflict, "conflict"},

	{services.ErrCouponNotFound, http.StatusNotFound, "coupon_not_found"},
	{services.ErrCouponInvalid, http.StatusBadRequest, "coupon_invalid"},
	{services.ErrCouponInvalidInput, http.StatusBadRequest, "invalid_request"},
	{services.ErrCouponExists, http.StatusBadRequest, "coupon_exists"},
	{services.ErrCouponNotAuthorized, http.StatusForbidden, "forbidden"},

	{services.ErrPaymentOrderNotFound, http.StatusNotFound, "order_not_found"},
	{services.ErrPaymentInvalidInput, http.StatusBadRequest, "invalid_request"},
	{services.ErrPaymentAlreadyPaid, http.StatusBadRequest, "order_already_paid"},
	{services.ErrPaymentNotAuthorized, http.StatusForbidden, "forbidden"},
	{services.ErrPaymentFailed, http.StatusBadGateway, "payment_failed"},
	{services.ErrPaymentUnavailable, http.StatusServiceUnavailable, "service_unavailable"},

	{services.ErrAnalyticsNotAuthorized, http.StatusForbidden, "forbidden"},
	{services.ErrAnalyticsUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
}

var coupon400Message = map[error]string{
	services.ErrCouponInvalid: "Invalid or expired coupon",
	services.ErrCouponExists:  "Coupon already exists",
}

// writeServiceError writes the envelope for err. Client errors echo the service message unless
// a repository failure sits in the chain, in which case only the sentinel's text is shown and
// the store error is logged. Anything unmapped is logged and reported as a generic internal error.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	for _, m := range serviceErrors {
		if !errors.Is(err, m.target) {
			continue
		}
		message := err.Error()
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) {
			requestctx.Logger(ctx).Info("repository error mapped", zap.String("code", m.code), zap.Error(repoErr))
			message = m.target.Error()
		}
		if fixed, ok := coupon400Message[m.target]; ok {
			message = fixed
		}
		if m.status >= http.StatusInternalServerError {
			requestctx.Logger(ctx).Warn("service unavailable", zap.Error(err))
			message = http.StatusText(m.status)
		}
		httpx.WriteError(ctx, w, httpx.NewError(m.code, message, m.status))
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		httpx.WriteError(ctx, w, httpx.NewError("request_timeout", "request was cancelled", http.StatusGatewayTimeout))
		return
	}
	requestctx.Logger(ctx).Error("unhandled service error", zap.Error(err))
	httpx.WriteError(ctx, w, httpx.Internal())
}

func writeBadRequest(ctx context.Context, w http.ResponseWriter, message string) {
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", message, http.StatusBadRequest))
}

func writeUnauthenticated(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
}
