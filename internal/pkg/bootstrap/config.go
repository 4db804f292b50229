package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"storefront/internal/pkg/database"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/nacos"
	"storefront/internal/pkg/redis"
)

// Config 是进程的完整配置。加载顺序: 默认值 -> YAML 文件 -> Nacos 配置中心 -> 环境变量。
type Config struct {
	App        AppConfig        `yaml:"app"`
	Infra      InfraConfig      `yaml:"infra"`
	Checkout   CheckoutConfig   `yaml:"checkout"`
	Security   SecurityConfig   `yaml:"security"`
	RateLimits RateLimitsConfig `yaml:"rate_limits"`
}

type AppConfig struct {
	Name     string `yaml:"name"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

type InfraConfig struct {
	Database  database.Config `yaml:"database"`
	Redis     redis.Config    `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	Nacos     NacosConfig     `yaml:"nacos"`
	Zookeeper ZookeeperConfig `yaml:"zookeeper"`
}

type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	OrderTopic  string   `yaml:"order_topic"`
	AlertTopic  string   `yaml:"alert_topic"`
	ConsumerGrp string   `yaml:"consumer_group"`
}

type JaegerConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type NacosConfig struct {
	ServerAddrs string `yaml:"server_addrs"` // "ip1:port1,ip2:port2"，为空则不接入 Nacos
	Namespace   string `yaml:"namespace"`
	Group       string `yaml:"group"`
	DataID      string `yaml:"data_id"`
}

type ZookeeperConfig struct {
	Servers        string        `yaml:"servers"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

// CheckoutConfig 中的金额使用字符串，避免浮点误差，由 Decimal 方法解析。
type CheckoutConfig struct {
	TaxRate               string        `yaml:"tax_rate"`
	ShippingFee           string        `yaml:"shipping_fee"`
	FreeShippingThreshold string        `yaml:"free_shipping_threshold"`
	CouponFailurePolicy   string        `yaml:"coupon_failure_policy"` // degrade | reject
	TxTimeout             time.Duration `yaml:"tx_timeout"`
}

type SecurityConfig struct {
	IntegritySecret  string        `yaml:"integrity_secret"`
	LockoutThreshold int           `yaml:"lockout_threshold"`
	LockoutDuration  time.Duration `yaml:"lockout_duration"`
	CounterBackend   string        `yaml:"counter_backend"` // redis | memory
}

// RateRule 表示一个固定窗口内允许的次数。
type RateRule struct {
	Limit  int64         `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type RateLimitsConfig struct {
	Registration  RateRule `yaml:"registration"`
	Login         RateRule `yaml:"login"`
	PasswordReset RateRule `yaml:"password_reset"`
	CartAdd       RateRule `yaml:"cart_add"`
	Checkout      RateRule `yaml:"checkout"`
	Review        RateRule `yaml:"review"`
}

// Decimal 解析金额/比例配置。
func Decimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "invalid decimal for %s", field)
	}
	return d, nil
}

// DefaultConfig 返回与线上行为一致的默认值。
func DefaultConfig() Config {
	return Config{
		App: AppConfig{Name: "checkout-service", Port: 8080, LogLevel: "info"},
		Infra: InfraConfig{
			Database: database.Config{Driver: "mysql", Host: "localhost", Port: 3306, User: "root", Name: "storefront", MaxOpenConns: 50, MaxIdleConns: 10, ConnMaxLifetime: time.Hour},
			Redis:    redis.Config{Addr: "localhost:6379"},
			Kafka:    KafkaConfig{Brokers: []string{"localhost:9092"}, OrderTopic: "order-events", AlertTopic: "order-integrity-alerts", ConsumerGrp: "integrity-audit"},
			Jaeger:   JaegerConfig{SampleRatio: 1},
			Nacos:    NacosConfig{Group: "DEFAULT_GROUP", DataID: "storefront.yaml"},
			Zookeeper: ZookeeperConfig{
				SessionTimeout: 10 * time.Second,
			},
		},
		Checkout: CheckoutConfig{
			TaxRate:               "0.15",
			ShippingFee:           "10.00",
			FreeShippingThreshold: "100.00",
			CouponFailurePolicy:   "degrade",
			TxTimeout:             800 * time.Millisecond,
		},
		Security: SecurityConfig{LockoutThreshold: 5, LockoutDuration: 30 * time.Minute, CounterBackend: "redis"},
		RateLimits: RateLimitsConfig{
			Registration:  RateRule{Limit: 5, Window: time.Hour},
			Login:         RateRule{Limit: 10, Window: 30 * time.Minute},
			PasswordReset: RateRule{Limit: 3, Window: time.Hour},
			CartAdd:       RateRule{Limit: 30, Window: time.Minute},
			Checkout:      RateRule{Limit: 5, Window: time.Minute},
			Review:        RateRule{Limit: 1, Window: 5 * time.Minute},
		},
	}
}

// Validate 检查启动必需的配置项。
func (c *Config) Validate() error {
	if c.Security.IntegritySecret == "" {
		return errors.New("security.integrity_secret (ORDER_INTEGRITY_SECRET) must be set; it is never generated at runtime")
	}
	for field, v := range map[string]string{
		"checkout.tax_rate":                c.Checkout.TaxRate,
		"checkout.shipping_fee":            c.Checkout.ShippingFee,
		"checkout.free_shipping_threshold": c.Checkout.FreeShippingThreshold,
	} {
		d, err := Decimal(field, v)
		if err != nil {
			return err
		}
		if d.IsNegative() {
			return errors.Errorf("%s must not be negative", field)
		}
	}
	switch c.Checkout.CouponFailurePolicy {
	case "degrade", "reject":
	default:
		return errors.Errorf("checkout.coupon_failure_policy must be degrade or reject, got %q", c.Checkout.CouponFailurePolicy)
	}
	if c.Security.LockoutThreshold <= 0 || c.Security.LockoutDuration <= 0 {
		return errors.New("security.lockout_threshold and lockout_duration must be positive")
	}
	return nil
}

var currentConfig atomic.Pointer[Config]

// GetCurrentConfig 返回当前生效的配置。Nacos 推送新配置时会被整体替换。
func GetCurrentConfig() *Config {
	if c := currentConfig.Load(); c != nil {
		return c
	}
	c := DefaultConfig()
	return &c
}

func setCurrentConfig(c *Config) { currentConfig.Store(c) }

var nacosConfigClient *nacos.ConfigClient

// LoadConfig 按顺序合并所有配置来源并校验，成功后成为 GetCurrentConfig 的返回值。
func LoadConfig() (*Config, error) {
	// .env 只用于本地开发，文件不存在不是错误
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	cfg.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", cfg.Infra.Nacos.ServerAddrs)
	cfg.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", cfg.Infra.Nacos.Namespace)
	cfg.Infra.Nacos.Group = getEnv("NACOS_GROUP", cfg.Infra.Nacos.Group)
	if cfg.Infra.Nacos.ServerAddrs != "" {
		if err := overlayFromNacos(&cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	setCurrentConfig(&cfg)
	return &cfg, nil
}

func overlayFromNacos(cfg *Config) error {
	n := cfg.Infra.Nacos
	client, err := nacos.NewConfigClient(n.ServerAddrs, n.Namespace, n.Group)
	if err != nil {
		return err
	}
	nacosConfigClient = client

	content, err := client.Get(n.DataID)
	if err != nil {
		return err
	}
	if content != "" {
		if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
			return errors.Wrapf(err, "parse nacos config %s", n.DataID)
		}
	}

	// 热更新只替换整份配置；解析或校验失败时保留旧配置
	return client.Listen(n.DataID, func(data string) {
		next := *GetCurrentConfig()
		if err := yaml.Unmarshal([]byte(data), &next); err != nil {
			logger.L().Error().Err(err).Str("data_id", n.DataID).Msg("ignoring invalid config push from nacos")
			return
		}
		applyEnv(&next)
		if err := next.Validate(); err != nil {
			logger.L().Error().Err(err).Str("data_id", n.DataID).Msg("ignoring invalid config push from nacos")
			return
		}
		setCurrentConfig(&next)
		logger.L().Info().Str("data_id", n.DataID).Msg("config reloaded from nacos")
	})
}

// applyEnv 用环境变量覆盖配置，环境变量优先级最高。
func applyEnv(cfg *Config) {
	cfg.App.Name = getEnv("SERVICE_NAME", cfg.App.Name)
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.Port = getEnvInt("PORT", cfg.App.Port)

	cfg.Infra.Database.Driver = getEnv("DB_DRIVER", cfg.Infra.Database.Driver)
	cfg.Infra.Database.DSN = getEnv("DB_DSN", cfg.Infra.Database.DSN)
	cfg.Infra.Database.Host = getEnv("DB_HOST", cfg.Infra.Database.Host)
	cfg.Infra.Database.Port = getEnvInt("DB_PORT", cfg.Infra.Database.Port)
	cfg.Infra.Database.User = getEnv("DB_USER", cfg.Infra.Database.User)
	cfg.Infra.Database.Password = getEnv("DB_PASSWORD", cfg.Infra.Database.Password)
	cfg.Infra.Database.Name = getEnv("DB_NAME", cfg.Infra.Database.Name)

	cfg.Infra.Redis.Addr = getEnv("REDIS_ADDR", cfg.Infra.Redis.Addr)
	cfg.Infra.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Infra.Redis.Password)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(brokers, ",")
	}
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Infra.Zookeeper.Servers = getEnv("ZK_SERVERS", cfg.Infra.Zookeeper.Servers)

	cfg.Checkout.CouponFailurePolicy = getEnv("COUPON_FAILURE_POLICY", cfg.Checkout.CouponFailurePolicy)
	cfg.Security.IntegritySecret = getEnv("ORDER_INTEGRITY_SECRET", cfg.Security.IntegritySecret)
	cfg.Security.CounterBackend = getEnv("COUNTER_BACKEND", cfg.Security.CounterBackend)
}

// getEnv 从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.L().Warn().Str("key", key).Str("value", v).Int("fallback", fallback).Msg("invalid integer env, using fallback")
		return fallback
	}
	return n
}
