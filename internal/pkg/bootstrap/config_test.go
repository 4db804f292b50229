package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigRequiresSecret(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.Security.IntegritySecret = "s3cret"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Security.IntegritySecret = "s3cret"
	cfg.Checkout.CouponFailurePolicy = "ignore"
	assert.Error(t, cfg.Validate())

	cfg.Checkout.CouponFailurePolicy = "reject"
	cfg.Checkout.TaxRate = "fifteen"
	assert.Error(t, cfg.Validate())
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  port: 9090
checkout:
  tax_rate: "0.20"
  tx_timeout: 500ms
security:
  integrity_secret: from-file
rate_limits:
  login:
    limit: 3
    window: 10m
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("NACOS_SERVER_ADDRS", "")
	t.Setenv("ORDER_INTEGRITY_SECRET", "from-env")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "0.20", cfg.Checkout.TaxRate)
	assert.Equal(t, 500*time.Millisecond, cfg.Checkout.TxTimeout)
	assert.Equal(t, "10.00", cfg.Checkout.ShippingFee)
	assert.Equal(t, "from-env", cfg.Security.IntegritySecret)
	assert.Equal(t, RateRule{Limit: 3, Window: 10 * time.Minute}, cfg.RateLimits.Login)
	assert.Equal(t, RateRule{Limit: 5, Window: time.Hour}, cfg.RateLimits.Registration)
	assert.Same(t, cfg, GetCurrentConfig())
}
