package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/pkg/counter"
	"storefront/internal/pkg/errs"
	"storefront/internal/service/ratelimit"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestAllowFixedWindow(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	l := ratelimit.NewLimiter(counter.NewMemoryStore(c.Now), nil)

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "call %d", i+1)
	}
	ok, err := l.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	c.now = c.now.Add(time.Minute + time.Second)
	ok, err = l.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckRegistrationByIP(t *testing.T) {
	ctx := context.Background()
	l := ratelimit.NewLimiter(counter.NewMemoryStore(nil), nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Check(ctx, ratelimit.ActionRegistration, "10.0.0.1"))
	}
	err := l.Check(ctx, ratelimit.ActionRegistration, "10.0.0.1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrSecurityPolicy))
	assert.Equal(t, errs.PublicMessage(err), errs.PublicMessage(errs.ErrSecurityPolicy))

	// 其他 IP 和其他动作不受影响
	assert.NoError(t, l.Check(ctx, ratelimit.ActionRegistration, "10.0.0.2"))
	assert.NoError(t, l.Check(ctx, ratelimit.ActionCartAdd, "10.0.0.1"))
}

func TestReviewOnePerWindow(t *testing.T) {
	ctx := context.Background()
	l := ratelimit.NewLimiter(counter.NewMemoryStore(nil), nil)

	require.NoError(t, l.Check(ctx, ratelimit.ActionReview, "user-1"))
	assert.ErrorIs(t, l.Check(ctx, ratelimit.ActionReview, "user-1"), ratelimit.ErrRateLimited)
}

func TestPasswordResetThreePerHour(t *testing.T) {
	ctx := context.Background()
	l := ratelimit.NewLimiter(counter.NewMemoryStore(nil), nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Check(ctx, ratelimit.ActionPasswordReset, "10.0.0.9"))
	}
	assert.ErrorIs(t, l.Check(ctx, ratelimit.ActionPasswordReset, "10.0.0.9"), ratelimit.ErrRateLimited)
}

func TestExceededOnlyCountsHits(t *testing.T) {
	ctx := context.Background()
	l := ratelimit.NewLimiter(counter.NewMemoryStore(nil), map[ratelimit.Action]ratelimit.Rule{
		ratelimit.ActionLogin: {Limit: 2, Window: time.Minute},
	})

	for i := 0; i < 5; i++ {
		exceeded, err := l.Exceeded(ctx, ratelimit.ActionLogin, "1.1.1.1")
		require.NoError(t, err)
		assert.False(t, exceeded)
	}

	require.NoError(t, l.Hit(ctx, ratelimit.ActionLogin, "1.1.1.1"))
	require.NoError(t, l.Hit(ctx, ratelimit.ActionLogin, "1.1.1.1"))
	exceeded, err := l.Exceeded(ctx, ratelimit.ActionLogin, "1.1.1.1")
	require.NoError(t, err)
	assert.True(t, exceeded)
}

type brokenStore struct{}

func (brokenStore) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}
func (brokenStore) Get(context.Context, string) (int64, error) { return 0, errors.New("connection refused") }
func (brokenStore) Reset(context.Context, string) error        { return errors.New("connection refused") }

func TestCheckFailsOpenWhenStoreIsDown(t *testing.T) {
	l := ratelimit.NewLimiter(brokenStore{}, nil)
	assert.NoError(t, l.Check(context.Background(), ratelimit.ActionCheckout, "user-1"))
}
