package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/pkg/counter"
	"storefront/internal/pkg/database"
	"storefront/internal/pkg/database/dbtest"
	"storefront/internal/pkg/errs"
	"storefront/internal/service/account/application"
	"storefront/internal/service/account/domain"
	"storefront/internal/service/account/infrastructure"
	"storefront/internal/service/ratelimit"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	clock    *clock
	tx       *database.Transactor
	users    *infrastructure.GormUserRepository
	guard    *application.SecurityGuard
	auth     *application.Authenticator
	accounts *application.AccountService
}

func newFixture(t *testing.T, rules map[ratelimit.Action]ratelimit.Rule) *fixture {
	t.Helper()
	db, err := dbtest.OpenInMemory(&infrastructure.UserModel{}, &infrastructure.AddressModel{})
	require.NoError(t, err)

	c := &clock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	tx := database.NewTransactor(db, 0)
	tracer := otel.Tracer("test")
	users := infrastructure.NewGormUserRepository(db)
	hasher, err := infrastructure.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	limiter := ratelimit.NewLimiter(counter.NewMemoryStore(c.Now), rules)

	guard := application.NewSecurityGuard(users, tx, domain.DefaultLockoutPolicy(), tracer, c.Now)
	return &fixture{
		clock:    c,
		tx:       tx,
		users:    users,
		guard:    guard,
		auth:     application.NewAuthenticator(users, guard, limiter, hasher, tracer, c.Now),
		accounts: application.NewAccountService(users, infrastructure.NewGormAddressRepository(db), hasher, limiter, tx, tracer),
	}
}

func (f *fixture) register(t *testing.T, name, ip string) *domain.User {
	t.Helper()
	u, err := f.accounts.Register(context.Background(), application.RegisterRequest{
		Username: name, Email: name + "@example.com", Password: "correct-horse", IP: ip,
	})
	require.NoError(t, err)
	return u
}

func TestAuthenticateSuccess(t *testing.T) {
	f := newFixture(t, nil)
	u := f.register(t, "ada", "10.0.0.1")

	got, err := f.auth.Authenticate(context.Background(), application.LoginAttempt{Identity: "ADA@example.com", Password: "correct-horse", IP: "10.0.0.2"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestFiveFailuresLockTheAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.register(t, "ada", "10.0.0.1")

	for i := 0; i < 5; i++ {
		_, err := f.auth.Authenticate(ctx, application.LoginAttempt{Identity: "ada", Password: "wrong", IP: "10.0.0.2"})
		require.ErrorIs(t, err, domain.ErrAuthenticationFailed)
	}
	locked, err := f.guard.IsLockedOut(ctx, "ada")
	require.NoError(t, err)
	assert.True(t, locked)

	// 锁定期内口令正确也被拒绝，错误与口令错误完全一致
	_, lockedErr := f.auth.Authenticate(ctx, application.LoginAttempt{Identity: "ada", Password: "correct-horse", IP: "10.0.0.3"})
	_, badErr := f.auth.Authenticate(ctx, application.LoginAttempt{Identity: "nobody", Password: "x", IP: "10.0.0.3"})
	assert.Equal(t, badErr, lockedErr)
	assert.Equal(t, errs.PublicMessage(badErr), errs.PublicMessage(lockedErr))

	f.clock.Advance(31 * time.Minute)
	_, err = f.auth.Authenticate(ctx, application.LoginAttempt{Identity: "ada", Password: "correct-horse", IP: "10.0.0.4"})
	require.NoError(t, err)

	u, err := f.users.FindByIdentity(ctx, "ada")
	require.NoError(t, err)
	assert.Zero(t, u.Security.FailedAttempts)
	assert.Nil(t, u.Security.LockoutUntil)
}

// countingUsers 记录仓储调用次数。
type countingUsers struct {
	domain.UserRepository
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingUsers) hit(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[name]++
}

func (c *countingUsers) take() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	got := c.calls
	c.calls = map[string]int{}
	return got
}

func (c *countingUsers) FindByIdentity(ctx context.Context, identity string) (*domain.User, error) {
	c.hit("FindByIdentity")
	return c.UserRepository.FindByIdentity(ctx, identity)
}

func (c *countingUsers) FindByIDForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	c.hit("FindByIDForUpdate")
	return c.UserRepository.FindByIDForUpdate(ctx, id)
}

func (c *countingUsers) SaveSecurity(ctx context.Context, userID int64, s domain.SecurityState) error {
	c.hit("SaveSecurity")
	return c.UserRepository.SaveSecurity(ctx, userID, s)
}

func TestLockedAndBadPasswordDoTheSameWork(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.register(t, "ada", "10.0.0.1")
	f.register(t, "bob", "10.0.0.1")

	users := &countingUsers{UserRepository: f.users, calls: map[string]int{}}
	guard := application.NewSecurityGuard(users, f.tx, domain.DefaultLockoutPolicy(), otel.Tracer("test"), f.clock.Now)
	hasher, err := infrastructure.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	auth := application.NewAuthenticator(users, guard, ratelimit.NewLimiter(counter.NewMemoryStore(f.clock.Now), nil), hasher, otel.Tracer("test"), f.clock.Now)

	for i := 0; i < 5; i++ {
		require.NoError(t, guard.RecordFailure(ctx, "ada"))
	}
	users.take()

	_, lockedErr := auth.Authenticate(ctx, application.LoginAttempt{Identity: "ada", Password: "wrong", IP: "10.0.0.2"})
	locked := users.take()
	_, badErr := auth.Authenticate(ctx, application.LoginAttempt{Identity: "bob", Password: "wrong", IP: "10.0.0.3"})
	bad := users.take()

	assert.Equal(t, badErr, lockedErr)
	assert.Equal(t, bad, locked)
	assert.Equal(t, 1, locked["FindByIDForUpdate"])
	assert.Equal(t, 1, locked["SaveSecurity"])

	// 锁定期内的失败只累加次数，锁定截止时间不变
	before, err := f.users.FindByIdentity(ctx, "ada")
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, application.LoginAttempt{Identity: "ada", Password: "correct-horse", IP: "10.0.0.2"})
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)
	after, err := f.users.FindByIdentity(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, before.Security.FailedAttempts+1, after.Security.FailedAttempts)
	assert.True(t, before.Security.LockoutUntil.Equal(*after.Security.LockoutUntil))
}

func TestRecordSuccessClearsLockout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.register(t, "bob", "10.0.0.1")

	for i := 0; i < 5; i++ {
		require.NoError(t, f.guard.RecordFailure(ctx, "bob"))
	}
	locked, _ := f.guard.IsLockedOut(ctx, "bob")
	require.True(t, locked)

	require.NoError(t, f.guard.RecordSuccess(ctx, "bob"))
	locked, _ = f.guard.IsLockedOut(ctx, "bob")
	assert.False(t, locked)

	// 未知身份不报错也不锁定
	require.NoError(t, f.guard.RecordFailure(ctx, "ghost"))
	locked, err := f.guard.IsLockedOut(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestConcurrentFailuresAreNotLost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.register(t, "eve", "10.0.0.1")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.guard.RecordFailure(ctx, "eve"))
		}()
	}
	wg.Wait()

	u, err := f.users.FindByIdentity(ctx, "eve")
	require.NoError(t, err)
	assert.Equal(t, 4, u.Security.FailedAttempts)
}

func TestLoginThrottledPerIP(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[ratelimit.Action]ratelimit.Rule{
		ratelimit.ActionLogin: {Limit: 2, Window: time.Minute},
	})
	f.register(t, "ada", "10.0.0.1")

	for i := 0; i < 2; i++ {
		_, err := f.auth.Authenticate(ctx, application.LoginAttempt{Identity: "nobody", Password: "x", IP: "6.6.6.6"})
		require.ErrorIs(t, err, domain.ErrAuthenticationFailed)
	}
	// 同一 IP 即使口令正确也被拒绝，其他 IP 不受影响
	_, err := f.auth.Authenticate(ctx, application.LoginAttempt{Identity: "ada", Password: "correct-horse", IP: "6.6.6.6"})
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)
	_, err = f.auth.Authenticate(ctx, application.LoginAttempt{Identity: "ada", Password: "correct-horse", IP: "7.7.7.7"})
	require.NoError(t, err)

	// 被限流的请求不增加用户的失败计数
	u, _ := f.users.FindByIdentity(ctx, "ada")
	assert.Zero(t, u.Security.FailedAttempts)

	f.clock.Advance(time.Minute)
	_, err = f.auth.Authenticate(ctx, application.LoginAttempt{Identity: "ada", Password: "correct-horse", IP: "6.6.6.6"})
	require.NoError(t, err)
}

func TestRegistrationRateLimitedAndValidated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[ratelimit.Action]ratelimit.Rule{
		ratelimit.ActionRegistration: {Limit: 2, Window: time.Hour},
	})
	f.register(t, "one", "1.1.1.1")

	_, err := f.accounts.Register(ctx, application.RegisterRequest{Username: "One", Email: "x@example.com", Password: "long-enough", IP: "1.1.1.1"})
	require.ErrorIs(t, err, domain.ErrDuplicateUser)

	_, err = f.accounts.Register(ctx, application.RegisterRequest{Username: "two", Email: "two@example.com", Password: "long-enough", IP: "1.1.1.1"})
	require.ErrorIs(t, err, ratelimit.ErrRateLimited)

	_, err = f.accounts.Register(ctx, application.RegisterRequest{Username: "two", Email: "two@example.com", Password: "short", IP: "2.2.2.2"})
	require.ErrorIs(t, err, domain.ErrWeakPassword)
}

func TestSingleDefaultAddressPerType(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	u := f.register(t, "ada", "10.0.0.1")
	other := f.register(t, "bob", "10.0.0.1")

	addr := func(typ domain.AddressType, def bool) *domain.Address {
		return &domain.Address{
			UserID: u.ID, Type: typ, FullName: "Ada", AddressLine1: "1 Main St", City: "Springfield",
			State: "IL", PostalCode: "62701", Country: "US", Phone: "555-0100", IsDefault: def,
		}
	}
	first, second, billing := addr(domain.AddressShipping, true), addr(domain.AddressShipping, true), addr(domain.AddressBilling, true)
	require.NoError(t, f.accounts.AddAddress(ctx, first))
	require.NoError(t, f.accounts.AddAddress(ctx, second))
	require.NoError(t, f.accounts.AddAddress(ctx, billing))

	list, err := f.accounts.Addresses(ctx, u.ID)
	require.NoError(t, err)
	defaults := map[domain.AddressType][]int64{}
	for _, a := range list {
		if a.IsDefault {
			defaults[a.Type] = append(defaults[a.Type], a.ID)
		}
	}
	assert.Equal(t, []int64{second.ID}, defaults[domain.AddressShipping])
	assert.Equal(t, []int64{billing.ID}, defaults[domain.AddressBilling])

	require.NoError(t, f.accounts.SetDefaultAddress(ctx, u.ID, first.ID))
	got, err := f.accounts.Address(ctx, u.ID, second.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDefault)

	_, err = f.accounts.Address(ctx, other.ID, first.ID)
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)
}
