package firestore

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWrapErrorClassifies(t *testing.T) {
	cases := []struct {
		code        codes.Code
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{code: codes.NotFound, notFound: true},
		{code: codes.Aborted, conflict: true},
		{code: codes.AlreadyExists, conflict: true},
		{code: codes.Unavailable, unavailable: true},
		{code: codes.InvalidArgument},
	}
	for _, tc := range cases {
		err := WrapError("orders.get", status.Error(tc.code, "x"))
		var repoErr *Error
		if !errors.As(err, &repoErr) {
			t.Fatalf("%s: expected *Error, got %T", tc.code, err)
		}
		if repoErr.IsNotFound() != tc.notFound || repoErr.IsConflict() != tc.conflict || repoErr.IsUnavailable() != tc.unavailable {
			t.Fatalf("%s: unexpected classification", tc.code)
		}
	}
}

func TestWrapErrorPassesThrough(t *testing.T) {
	if err := WrapError("x", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := WrapError("x", status.Error(codes.Canceled, "gone")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	plain := errors.New("insufficient stock")
	if err := WrapError("x", plain); err != plain {
		t.Fatalf("expected plain error unchanged, got %v", err)
	}
	nf := NotFound("coupons.findByCode", "coupon %s not found", "SAVE10")
	if err := WrapError("outer", nf); err != nf {
		t.Fatalf("expected classified error unchanged")
	}
}
