package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:5000/api", cfg.APIURL)
	assert.Equal(t, BackendFile, cfg.Credentials.Backend)
	assert.Equal(t, "token", cfg.Credentials.Key)
	assert.Equal(t, "8080", cfg.Gateway.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.OrderWatch.Interval)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: https://shop.example/api
request_timeout: 5s
credentials:
  backend: redis
  redis_addr: redis:6379
  key: shop:token
order_watch:
  interval: 2s
  max_attempts: 10
logging:
  level: debug
  development: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example/api", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, BackendRedis, cfg.Credentials.Backend)
	assert.Equal(t, "redis:6379", cfg.Credentials.RedisAddr)
	assert.Equal(t, "shop:token", cfg.Credentials.Key)
	assert.Equal(t, 2*time.Second, cfg.OrderWatch.Interval)
	assert.Equal(t, 10, cfg.OrderWatch.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.OrderWatch.MaxInterval, "unset keys keep defaults")
	assert.True(t, cfg.Logging.Development)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: https://file.example/api\n"), 0o600))
	t.Setenv("STOREFRONT_API_URL", "https://env.example/api")
	t.Setenv("STOREFRONT_CREDENTIALS_BACKEND", "memory")
	t.Setenv("STOREFRONT_REQUEST_TIMEOUT", "750ms")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example/api", cfg.APIURL)
	assert.Equal(t, BackendMemory, cfg.Credentials.Backend)
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.Credentials.RedisDB)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("api_url: [unterminated"), 0o600))
		_, err := Load(path)
		assert.ErrorContains(t, err, "failed to parse config")
	})
	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("STOREFRONT_CREDENTIALS_BACKEND", "keychain")
		_, err := Load("")
		assert.ErrorContains(t, err, `unknown credentials backend "keychain"`)
	})
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("STOREFRONT_REQUEST_TIMEOUT", "soon")
		_, err := Load("")
		assert.ErrorContains(t, err, "STOREFRONT_REQUEST_TIMEOUT")
	})
}
