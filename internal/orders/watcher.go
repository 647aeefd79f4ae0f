package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/apiclient"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Fetcher interface {
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
}

type Config struct {
	Interval         time.Duration
	MaxInterval      time.Duration
	MaxAttempts      int
	FailureThreshold uint32
	BreakerTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:         5 * time.Second,
		MaxInterval:      30 * time.Second,
		MaxAttempts:      60,
		FailureThreshold: 3,
		BreakerTimeout:   30 * time.Second,
	}
}

var ErrWatchExhausted = errors.New("order did not reach a terminal status")

// Watcher polls an order until payment is confirmed or cancelled. The
// breaker is shared by every Wait call on the same watcher, so a remote
// outage noticed by one watch pauses the others as well.
type Watcher struct {
	fetcher Fetcher
	breaker *gobreaker.CircuitBreaker[*domain.Order]
	cfg     Config
	logger  *zap.Logger
}

func NewWatcher(fetcher Fetcher, cfg Config, logger *zap.Logger) *Watcher {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.MaxInterval < cfg.Interval {
		cfg.MaxInterval = cfg.Interval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Watcher{fetcher: fetcher, cfg: cfg, logger: logger}
	w.breaker = gobreaker.NewCircuitBreaker[*domain.Order](gobreaker.Settings{
		Name:        "order-status",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("order status breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return w
}

// Wait polls orderID until its status is terminal, the context is done, or
// MaxAttempts checks have been made. onUpdate, when set, sees every order
// fetched. The first check happens immediately; the delay then doubles from
// Interval up to MaxInterval.
func (w *Watcher) Wait(ctx context.Context, orderID int64, onUpdate func(*domain.Order)) (*domain.Order, error) {
	var last *domain.Order
	var lastErr error
	interval := w.cfg.Interval

	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-timer.C:
		}

		order, err := w.breaker.Execute(func() (*domain.Order, error) {
			return w.fetcher.GetOrder(ctx, orderID)
		})
		switch {
		case err == nil:
			last, lastErr = order, nil
			if onUpdate != nil {
				onUpdate(order)
			}
			if order.Status.IsTerminal() {
				w.logger.Info("order settled",
					zap.Int64("order_id", orderID),
					zap.String("status", order.Status.String()),
					zap.Int("attempts", attempt))
				return order, nil
			}
		case isPermanent(err):
			return last, fmt.Errorf("watch order %d: %w", orderID, err)
		case ctx.Err() != nil:
			return last, ctx.Err()
		default:
			lastErr = err
			w.logger.Warn("order status check failed",
				zap.Int64("order_id", orderID),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}

		if attempt >= w.cfg.MaxAttempts {
			if lastErr != nil {
				return last, fmt.Errorf("%w: order %d after %d checks: %w", ErrWatchExhausted, orderID, attempt, lastErr)
			}
			return last, fmt.Errorf("%w: order %d after %d checks", ErrWatchExhausted, orderID, attempt)
		}

		timer.Reset(interval)
		interval = min(interval*2, w.cfg.MaxInterval)
	}
}

// isPermanent reports remote answers that will not change by asking again,
// such as an unknown order or a rejected credential.
func isPermanent(err error) bool {
	var re *apiclient.RemoteError
	return errors.As(err, &re) && re.IsClientError()
}
