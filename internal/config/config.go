package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all storefront client configuration. Values come from the
// defaults, then an optional YAML file, then STOREFRONT_* environment
// variables.
type Config struct {
	APIURL         string        `yaml:"api_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Credentials CredentialsConfig `yaml:"credentials"`
	Gateway     GatewayConfig     `yaml:"gateway"`
	OrderWatch  OrderWatchConfig  `yaml:"order_watch"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// CredentialsConfig selects where the bearer token is persisted.
type CredentialsConfig struct {
	Backend       string `yaml:"backend"` // file, redis, memory
	Path          string `yaml:"path"`
	Key           string `yaml:"key"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type GatewayConfig struct {
	HTTPPort           string        `yaml:"http_port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`
}

type OrderWatchConfig struct {
	Interval         time.Duration `yaml:"interval"`
	MaxInterval      time.Duration `yaml:"max_interval"`
	MaxAttempts      int           `yaml:"max_attempts"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
	BreakerTimeout   time.Duration `yaml:"breaker_timeout"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

func Default() *Config {
	return &Config{
		APIURL:         "http://127.0.0.1:5000/api",
		RequestTimeout: 30 * time.Second,
		Credentials: CredentialsConfig{
			Backend:   BackendFile,
			Key:       "token",
			RedisAddr: "localhost:6379",
		},
		Gateway: GatewayConfig{
			HTTPPort:           "8080",
			RequestTimeout:     30 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			MaxRequestBodySize: 1 << 20, // 1MB
		},
		OrderWatch: OrderWatchConfig{
			Interval:         5 * time.Second,
			MaxInterval:      30 * time.Second,
			MaxAttempts:      60,
			FailureThreshold: 3,
			BreakerTimeout:   30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path on top of the defaults and applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.APIURL = getEnv("STOREFRONT_API_URL", c.APIURL)
	c.Credentials.Backend = getEnv("STOREFRONT_CREDENTIALS_BACKEND", c.Credentials.Backend)
	c.Credentials.Path = getEnv("STOREFRONT_CREDENTIALS_PATH", c.Credentials.Path)
	c.Credentials.Key = getEnv("STOREFRONT_CREDENTIALS_KEY", c.Credentials.Key)
	c.Credentials.RedisAddr = getEnv("REDIS_ADDR", c.Credentials.RedisAddr)
	c.Credentials.RedisPassword = getEnv("REDIS_PASSWORD", c.Credentials.RedisPassword)
	c.Gateway.HTTPPort = getEnv("HTTP_PORT", c.Gateway.HTTPPort)
	c.Logging.Level = getEnv("STOREFRONT_LOG_LEVEL", c.Logging.Level)

	var err error
	if c.RequestTimeout, err = getDurationEnv("STOREFRONT_REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if c.OrderWatch.Interval, err = getDurationEnv("STOREFRONT_ORDER_POLL_INTERVAL", c.OrderWatch.Interval); err != nil {
		return err
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		c.Credentials.RedisDB = db
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("api_url is required"))
	}
	switch c.Credentials.Backend {
	case BackendFile, BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown credentials backend %q", c.Credentials.Backend))
	}
	if c.Credentials.Backend == BackendRedis && c.Credentials.RedisAddr == "" {
		errs = append(errs, errors.New("credentials.redis_addr is required for the redis backend"))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, errors.New("request_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
