package apperr_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campusmatch/campusmatch/internal/apperr"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("bad input"), http.StatusBadRequest},
		{apperr.Authorization("nope"), http.StatusForbidden},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{apperr.Conflict("stale"), http.StatusConflict},
		{apperr.RateLimited("slow down", 0, time.Now()), http.StatusTooManyRequests},
		{gorm.ErrRecordNotFound, http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, apperr.HTTPStatus(tc.err), "err=%v", tc.err)
	}
}

func TestAsUnwrapsChains(t *testing.T) {
	inner := apperr.NotFound("profile not found")
	wrapped := fmt.Errorf("loading profile: %w", inner)

	e, ok := apperr.As(wrapped)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, e.Kind)
	assert.Equal(t, "profile not found", e.Message)

	_, ok = apperr.As(errors.New("plain"))
	assert.False(t, ok)

	_, ok = apperr.As(nil)
	assert.False(t, ok)
}

func TestRateLimitedCarriesBudget(t *testing.T) {
	reset := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	e := apperr.RateLimited("daily swipe allowance exhausted", 0, reset)
	assert.Equal(t, 0, e.Remaining)
	assert.Equal(t, reset, e.ResetAt)
	assert.Contains(t, e.Error(), "allowance")
}
