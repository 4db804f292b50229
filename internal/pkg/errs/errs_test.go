package errs

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindAndCode(t *testing.T) {
	notFound := New(KindValidation, "not_found", "cart line not found")
	wrapped := fmt.Errorf("update item: %w", notFound)

	assert.ErrorIs(t, wrapped, ErrValidation)
	assert.ErrorIs(t, wrapped, notFound)
	assert.NotErrorIs(t, wrapped, ErrAvailability)
	assert.NotErrorIs(t, wrapped, New(KindValidation, "invalid_quantity", ""))
}

func TestWithfKeepsIdentity(t *testing.T) {
	base := New(KindAvailability, "insufficient_stock", "not enough stock")
	derived := base.Withf("only %d left", 2)

	assert.ErrorIs(t, derived, base)
	assert.Equal(t, "only 2 left", derived.Message)
	assert.Equal(t, "not enough stock", base.Message)
}

func TestKindOfAndRetryable(t *testing.T) {
	conflict := Wrap(KindConcurrency, "deadlock", errors.New("Error 1213"))

	assert.Equal(t, KindConcurrency, KindOf(errors.Wrap(conflict, "place order")))
	assert.True(t, IsRetryable(conflict))
	assert.False(t, IsRetryable(ErrValidation))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation is specific", New(KindValidation, "invalid_quantity", "quantity must be between 1 and 99"), "quantity must be between 1 and 99"},
		{"availability is specific", New(KindAvailability, "coupon_inactive", "coupon is not active"), "coupon is not active"},
		{"lockout is generic", New(KindSecurityPolicy, "locked_out", "account locked"), genericRejection},
		{"rate limit is generic", New(KindSecurityPolicy, "rate_limited", "too many requests"), genericRejection},
		{"integrity is hidden", New(KindIntegrity, "digest_mismatch", "digest mismatch for ORD-1"), genericFailure},
		{"unknown is hidden", errors.New("sql: connection refused"), genericFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PublicMessage(tt.err))
		})
	}
}
