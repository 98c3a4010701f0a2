package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 336*time.Hour, cfg.Session.TTL)
	assert.EqualValues(t, 8453, cfg.Settlement.ChainID)
	assert.Equal(t, "/checkout", cfg.Checkout.BasePath)
	assert.False(t, cfg.Production())
	assert.Empty(t, cfg.HTTP.TrustedProxies)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BYUND_SESSION_TTL", "2h")
	t.Setenv("BYUND_SETTLEMENT_TOKEN_ADDRESS", "0xabc")
	t.Setenv("BYUND_HTTP_ALLOWED_ORIGINS", "https://a.test, https://b.test")
	t.Setenv("BYUND_HTTP_TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "0xabc", cfg.Settlement.TokenAddress)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.10"}, cfg.HTTP.TrustedProxies)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "byund.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_addr: \":9999\"\nlogs:\n  level: debug\n"), 0o600))
	t.Setenv("BYUND_CONFIG_FILE", path)

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestProductionRequiresOriginsAndDSN(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BYUND_APP_ENV", "production")
	_, err := load(viper.New())
	assert.ErrorContains(t, err, "allowed_origins")

	t.Setenv("BYUND_HTTP_ALLOWED_ORIGINS", "https://app.byund.io")
	_, err = load(viper.New())
	assert.ErrorContains(t, err, "database.dsn")

	t.Setenv("BYUND_DATABASE_DSN", "postgres://localhost/byund")
	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.True(t, cfg.Production())
}

func TestInvalidEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BYUND_APP_ENV", "staging")
	_, err := load(viper.New())
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir in Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
