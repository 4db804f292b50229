// Package app 是进程的组装根：按配置创建全部依赖并注册 HTTP 路由。
package app

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/counter"
	"storefront/internal/pkg/database"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/mq"
	"storefront/internal/pkg/redis"
	accountapp "storefront/internal/service/account/application"
	account "storefront/internal/service/account/domain"
	accountinfra "storefront/internal/service/account/infrastructure"
	cartapp "storefront/internal/service/cart/application"
	cartinfra "storefront/internal/service/cart/infrastructure"
	cataloginfra "storefront/internal/service/catalog/infrastructure"
	orderapp "storefront/internal/service/order/application"
	"storefront/internal/service/order/application/checkout"
	order "storefront/internal/service/order/domain"
	"storefront/internal/service/order/domain/port"
	orderinfra "storefront/internal/service/order/infrastructure"
	"storefront/internal/service/order/infrastructure/adapter"
	promoapp "storefront/internal/service/promotion/application"
	promoinfra "storefront/internal/service/promotion/infrastructure"
	"storefront/internal/service/promotion/infrastructure/rule"
	"storefront/internal/service/ratelimit"
)

// Models 是需要迁移的全部表。
func Models() []any {
	return []any{
		&cataloginfra.ProductModel{},
		&cartinfra.CartModel{}, &cartinfra.CartLineModel{},
		&promoinfra.CouponModel{}, &promoinfra.CouponUsageModel{},
		&orderinfra.OrderModel{}, &orderinfra.OrderItemModel{},
		&accountinfra.UserModel{}, &accountinfra.AddressModel{},
	}
}

func Migrate(db *gorm.DB) error {
	return errors.Wrap(db.AutoMigrate(Models()...), "auto migrate")
}

type Container struct {
	Config *bootstrap.Config
	DB     *gorm.DB
	Tracer trace.Tracer

	Limiter  *ratelimit.Limiter
	Carts    *cartapp.CartService
	Coupons  *promoapp.CouponService
	Accounts *accountapp.AccountService
	Auth     *accountapp.Authenticator
	Orders   *orderapp.OrderApplicationService
	Events   port.EventPublisher

	closers []func() error
}

// New 组装所有服务。db 由调用方打开，Close 不会关闭它。
func New(ctx context.Context, cfg *bootstrap.Config, db *gorm.DB) (*Container, error) {
	c := &Container{Config: cfg, DB: db, Tracer: otel.Tracer(cfg.App.Name)}
	ok := false
	defer func() {
		if !ok {
			_ = c.Close()
		}
	}()

	pricing, err := PricingPolicy(cfg)
	if err != nil {
		return nil, err
	}
	store, err := c.counterStore(ctx)
	if err != nil {
		return nil, err
	}
	c.Limiter = ratelimit.NewLimiter(store, RateRules(cfg))

	tx := database.NewTransactor(db, cfg.Checkout.TxTimeout)
	products := cataloginfra.NewGormProductRepository(db)
	carts := cartinfra.NewGormCartRepository(db)
	c.Carts = cartapp.NewCartService(carts, products, tx, c.Tracer)

	engine, err := rule.NewCELRuleEngine()
	if err != nil {
		return nil, errors.Wrap(err, "create rule engine")
	}
	c.Coupons = promoapp.NewCouponService(promoinfra.NewGormCouponRepository(db), engine, c.Tracer, nil)

	hasher, err := accountinfra.NewBcryptHasher(bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "create password hasher")
	}
	users := accountinfra.NewGormUserRepository(db)
	lockout := account.LockoutPolicy{Threshold: cfg.Security.LockoutThreshold, Duration: cfg.Security.LockoutDuration}
	guard := accountapp.NewSecurityGuard(users, tx, lockout, c.Tracer, nil)
	c.Auth = accountapp.NewAuthenticator(users, guard, c.Limiter, hasher, c.Tracer, nil)
	c.Accounts = accountapp.NewAccountService(users, accountinfra.NewGormAddressRepository(db), hasher, c.Limiter, tx, c.Tracer)

	c.Events = c.eventPublisher()
	c.Orders = orderapp.NewOrderApplicationService(
		orderinfra.NewGormOrderRepository(db), carts, products,
		adapter.NewCouponAdapter(c.Coupons),
		adapter.NewAddressBookAdapter(c.Accounts),
		c.Events,
		adapter.StaticSecret(cfg.Security.IntegritySecret),
		tx, c.Tracer,
		orderapp.Options{Pricing: &pricing, CouponPolicy: checkout.CouponPolicy(cfg.Checkout.CouponFailurePolicy)},
	)

	ok = true
	return c, nil
}

func (c *Container) counterStore(ctx context.Context) (counter.Store, error) {
	if c.Config.Security.CounterBackend == "memory" {
		store := counter.NewMemoryStore(nil)
		stop := make(chan struct{})
		go func() {
			t := time.NewTicker(time.Minute)
			defer t.Stop()
			for {
				select {
				case <-t.C:
					store.Sweep()
				case <-stop:
					return
				}
			}
		}()
		c.closers = append(c.closers, func() error { close(stop); return nil })
		logger.L().Warn().Msg("using in-process counters, limits are not shared between instances")
		return store, nil
	}

	client, err := redis.NewClient(ctx, c.Config.Infra.Redis)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, client.Close)
	return counter.NewRedisStore(client, "storefront:")
}

func (c *Container) eventPublisher() port.EventPublisher {
	k := c.Config.Infra.Kafka
	if len(k.Brokers) == 0 {
		logger.L().Warn().Msg("kafka not configured, order events are only logged")
		return adapter.LogEventPublisher{}
	}
	pub := adapter.NewEventKafkaAdapter(mq.NewKafkaWriter(k.Brokers, k.OrderTopic), mq.NewKafkaWriter(k.Brokers, k.AlertTopic))
	c.closers = append(c.closers, pub.Close)
	return pub
}

// Reader 为消费者创建一个 reader，由调用方负责关闭。
func (c *Container) Reader(topic string) *kafka.Reader {
	k := c.Config.Infra.Kafka
	return mq.NewKafkaReader(k.Brokers, topic, k.ConsumerGrp)
}

// Close 按创建的逆序释放资源。
func (c *Container) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

// PricingPolicy 从配置解析税率和运费规则。
func PricingPolicy(cfg *bootstrap.Config) (order.PricingPolicy, error) {
	var p order.PricingPolicy
	var err error
	if p.TaxRate, err = bootstrap.Decimal("checkout.tax_rate", cfg.Checkout.TaxRate); err != nil {
		return p, err
	}
	if p.ShippingFee, err = bootstrap.Decimal("checkout.shipping_fee", cfg.Checkout.ShippingFee); err != nil {
		return p, err
	}
	if p.FreeShippingThreshold, err = bootstrap.Decimal("checkout.free_shipping_threshold", cfg.Checkout.FreeShippingThreshold); err != nil {
		return p, err
	}
	return p, nil
}

func RateRules(cfg *bootstrap.Config) map[ratelimit.Action]ratelimit.Rule {
	r := cfg.RateLimits
	rule := func(rr bootstrap.RateRule) ratelimit.Rule { return ratelimit.Rule{Limit: rr.Limit, Window: rr.Window} }
	return map[ratelimit.Action]ratelimit.Rule{
		ratelimit.ActionRegistration:  rule(r.Registration),
		ratelimit.ActionLogin:         rule(r.Login),
		ratelimit.ActionPasswordReset: rule(r.PasswordReset),
		ratelimit.ActionCartAdd:       rule(r.CartAdd),
		ratelimit.ActionCheckout:      rule(r.Checkout),
		ratelimit.ActionReview:        rule(r.Review),
	}
}
