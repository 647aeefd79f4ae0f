package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/apiclient"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/fjod/go_cart/storefront/internal/session"
)

// app wires the core for one process: the session owns the credential, the
// API client reads it on every request, and the mirror follows the session.
type app struct {
	session *session.Store
	api     *apiclient.Client
	mirror  *cart.Mirror
	watcher *orders.Watcher

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	tokens, err := a.tokenStore(cfg)
	if err != nil {
		return nil, err
	}

	base, err := apiclient.New(cfg.APIURL,
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithLogger(logger.Named("api")),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.session = session.NewStore(base, tokens, logger.Named("session"))
	a.api = base.WithTokenSource(a.session)
	a.mirror = cart.NewMirror(a.session, a.api, logger.Named("cart"))
	a.watcher = orders.NewWatcher(a.api, orders.Config{
		Interval:         cfg.OrderWatch.Interval,
		MaxInterval:      cfg.OrderWatch.MaxInterval,
		MaxAttempts:      cfg.OrderWatch.MaxAttempts,
		FailureThreshold: cfg.OrderWatch.FailureThreshold,
		BreakerTimeout:   cfg.OrderWatch.BreakerTimeout,
	}, logger.Named("orders"))

	if a.session.Restore(ctx) {
		logger.Debug("restored persisted credential")
	}
	return a, nil
}

func (a *app) tokenStore(cfg *config.Config) (session.TokenStore, error) {
	c := cfg.Credentials
	switch c.Backend {
	case config.BackendMemory:
		return session.NewMemoryTokenStore(), nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		a.closers = append(a.closers, client.Close)
		return session.NewRedisTokenStore(client, c.Key), nil
	case config.BackendFile, "":
		path := c.Path
		if path == "" {
			var err error
			if path, err = session.DefaultTokenPath(); err != nil {
				return nil, err
			}
		}
		return session.NewFileTokenStore(path, c.Key), nil
	default:
		return nil, fmt.Errorf("unknown credentials backend %q", c.Backend)
	}
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		_ = closeFn()
	}
}

// withApp builds the core for a single command and tears it down afterwards.
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
