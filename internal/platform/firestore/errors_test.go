package firestore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWrapErrorCategorisesStatusCodes(t *testing.T) {
	cases := []struct {
		code        codes.Code
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{code: codes.NotFound, notFound: true},
		{code: codes.AlreadyExists, conflict: true},
		{code: codes.FailedPrecondition, conflict: true},
		{code: codes.Aborted, conflict: true},
		{code: codes.Unavailable, unavailable: true},
		{code: codes.ResourceExhausted, unavailable: true},
		{code: codes.PermissionDenied},
	}

	for _, tc := range cases {
		t.Run(tc.code.String(), func(t *testing.T) {
			err := WrapError("orders.get", status.Error(tc.code, "boom"))
			var repoErr *Error
			require.ErrorAs(t, err, &repoErr)
			require.Equal(t, tc.notFound, repoErr.IsNotFound())
			require.Equal(t, tc.conflict, repoErr.IsConflict())
			require.Equal(t, tc.unavailable, repoErr.IsUnavailable())
			require.Contains(t, err.Error(), "orders.get")
		})
	}
}

func TestWrapErrorPassesContextErrorsThrough(t *testing.T) {
	require.Nil(t, WrapError("op", nil))
	require.ErrorIs(t, WrapError("op", context.Canceled), context.Canceled)
	require.ErrorIs(t, WrapError("op", status.Error(codes.Canceled, "gone")), context.Canceled)
	require.ErrorIs(t, WrapError("op", status.Error(codes.DeadlineExceeded, "slow")), context.DeadlineExceeded)
}

func TestWrapErrorKeepsExistingCategory(t *testing.T) {
	inner := Conflict("", "status changed to %s", "shipped")
	err := WrapError("transaction", inner)
	var repoErr *Error
	require.ErrorAs(t, err, &repoErr)
	require.True(t, repoErr.IsConflict())
	require.Equal(t, "transaction: status changed to shipped", err.Error())

	missing := NotFound("orders.fetch", "order %s not found", "ord_1")
	require.True(t, errors.As(missing, &repoErr))
	require.True(t, repoErr.IsNotFound())
}
