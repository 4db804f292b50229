package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"storefront/internal/pkg/counter"
	"storefront/internal/pkg/database"
	"storefront/internal/pkg/database/dbtest"
	accountapp "storefront/internal/service/account/application"
	account "storefront/internal/service/account/domain"
	accountinfra "storefront/internal/service/account/infrastructure"
	cartapp "storefront/internal/service/cart/application"
	cart "storefront/internal/service/cart/domain"
	cartinfra "storefront/internal/service/cart/infrastructure"
	catalog "storefront/internal/service/catalog/domain"
	cataloginfra "storefront/internal/service/catalog/infrastructure"
	"storefront/internal/service/order/application"
	"storefront/internal/service/order/application/checkout"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/domain/port"
	orderinfra "storefront/internal/service/order/infrastructure"
	"storefront/internal/service/order/infrastructure/adapter"
	promoapp "storefront/internal/service/promotion/application"
	promotion "storefront/internal/service/promotion/domain"
	promoinfra "storefront/internal/service/promotion/infrastructure"
	"storefront/internal/service/promotion/infrastructure/rule"
	"storefront/internal/service/ratelimit"
)

var (
	testSecret = []byte("test-integrity-secret")
	testNow    = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// recorder 记录发布的事件。
type recorder struct {
	mu        sync.Mutex
	placed    []*domain.OrderPlaced
	cancelled []*domain.OrderCancelled
	alerts    []*domain.IntegrityViolationDetected
}

func (r *recorder) PublishOrderPlaced(_ context.Context, e *domain.OrderPlaced) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed = append(r.placed, e)
	return nil
}

func (r *recorder) PublishOrderCancelled(_ context.Context, e *domain.OrderCancelled) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, e)
	return nil
}

func (r *recorder) PublishIntegrityAlert(_ context.Context, e *domain.IntegrityViolationDetected) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, e)
	return nil
}

type fixture struct {
	db       *gorm.DB
	svc      *application.OrderApplicationService
	carts    *cartapp.CartService
	coupons  *promoapp.CouponService
	accounts *accountapp.AccountService
	products *cataloginfra.GormProductRepository
	events   *recorder
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	policy  checkout.CouponPolicy
	wrapper func(port.CouponEngine) port.CouponEngine
	db      *gorm.DB
}

func fixtureModels() []any {
	return []any{
		&cataloginfra.ProductModel{},
		&cartinfra.CartModel{}, &cartinfra.CartLineModel{},
		&promoinfra.CouponModel{}, &promoinfra.CouponUsageModel{},
		&orderinfra.OrderModel{}, &orderinfra.OrderItemModel{},
		&accountinfra.UserModel{}, &accountinfra.AddressModel{},
	}
}

func withPolicy(p checkout.CouponPolicy) fixtureOption {
	return func(c *fixtureConfig) { c.policy = p }
}

// withDB 使用外部数据库代替 SQLite 内存库。
func withDB(db *gorm.DB) fixtureOption {
	return func(c *fixtureConfig) { c.db = db }
}

func withCouponEngine(wrap func(port.CouponEngine) port.CouponEngine) fixtureOption {
	return func(c *fixtureConfig) { c.wrapper = wrap }
}

func newFixture(t testing.TB, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	db := cfg.db
	if db == nil {
		var err error
		db, err = dbtest.OpenInMemory(fixtureModels()...)
		require.NoError(t, err)
	} else {
		require.NoError(t, db.AutoMigrate(fixtureModels()...))
	}

	tx := database.NewTransactor(db, 0)
	tracer := otel.Tracer("test")
	clock := func() time.Time { return testNow }

	products := cataloginfra.NewGormProductRepository(db)
	carts := cartinfra.NewGormCartRepository(db)
	cartSvc := cartapp.NewCartService(carts, products, tx, tracer)

	engine, err := rule.NewCELRuleEngine()
	require.NoError(t, err)
	couponSvc := promoapp.NewCouponService(promoinfra.NewGormCouponRepository(db), engine, tracer, clock)

	hasher, err := accountinfra.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	limiter := ratelimit.NewLimiter(counter.NewMemoryStore(nil), nil)
	accounts := accountapp.NewAccountService(accountinfra.NewGormUserRepository(db), accountinfra.NewGormAddressRepository(db), hasher, limiter, tx, tracer)

	var coupons port.CouponEngine = adapter.NewCouponAdapter(couponSvc)
	if cfg.wrapper != nil {
		coupons = cfg.wrapper(coupons)
	}
	events := &recorder{}
	svc := application.NewOrderApplicationService(
		orderinfra.NewGormOrderRepository(db), carts, products, coupons,
		adapter.NewAddressBookAdapter(accounts), events, adapter.StaticSecret(testSecret),
		tx, tracer, application.Options{CouponPolicy: cfg.policy, Now: clock},
	)
	return &fixture{db: db, svc: svc, carts: cartSvc, coupons: couponSvc, accounts: accounts, products: products, events: events}
}

func (f *fixture) product(t testing.TB, name, price string, stock int) *catalog.Product {
	t.Helper()
	p := &catalog.Product{SKU: name, Name: name, Price: dec(price), Stock: stock, IsActive: true}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f *fixture) stock(t testing.TB, id int64) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) address(t testing.TB, userID int64) int64 {
	t.Helper()
	a := &account.Address{
		UserID: userID, Type: account.AddressShipping, FullName: "Ada Lovelace", AddressLine1: "12 St James's Sq",
		City: "London", State: "LDN", PostalCode: "SW1Y 4JH", Country: "GB", Phone: "+44 20 0000 0000",
	}
	require.NoError(t, f.accounts.AddAddress(context.Background(), a))
	return a.ID
}

func (f *fixture) addToCart(t testing.TB, userID, productID int64, qty int) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), cart.UserOwner(userID), productID, qty)
	require.NoError(t, err)
}

func (f *fixture) coupon(t testing.TB, c *promotion.Coupon) *promotion.Coupon {
	t.Helper()
	if c.ValidFrom.IsZero() {
		c.ValidFrom = testNow.Add(-24 * time.Hour)
	}
	if c.ValidUntil.IsZero() {
		c.ValidUntil = testNow.Add(24 * time.Hour)
	}
	c.IsActive = true
	require.NoError(t, f.coupons.Create(context.Background(), c))
	return c
}

func (f *fixture) save10(t testing.TB) *promotion.Coupon {
	return f.coupon(t, &promotion.Coupon{
		Code:            "SAVE10",
		DiscountType:    promotion.DiscountPercentage,
		DiscountValue:   dec("10"),
		MaximumDiscount: decimal.NewNullDecimal(dec("20.00")),
	})
}

func (f *fixture) place(userID, addrID int64, code string) (*application.PlaceOrderResponse, error) {
	return f.svc.PlaceOrder(context.Background(), &application.PlaceOrderRequest{
		UserID:            userID,
		ShippingAddressID: addrID,
		BillingAddressID:  addrID,
		PaymentMethod:     "credit_card",
		CouponCode:        code,
		IPAddress:         "203.0.113.7",
		UserAgent:         "test-agent",
	})
}

func (f *fixture) couponUsages(t testing.TB, couponID int64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&promoinfra.CouponUsageModel{}).Where("coupon_id = ?", couponID).Count(&n).Error)
	return n
}
