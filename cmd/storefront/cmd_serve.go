package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/gateway"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the session, cart and orders over a local HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return withApp(ctx, func(a *app) error {
			return serve(ctx, a)
		})
	},
}

func serve(ctx context.Context, a *app) error {
	router := gateway.NewRouter(gateway.Deps{
		Session:            a.session,
		Cart:               a.mirror,
		Orders:             a.api,
		Watcher:            a.watcher,
		Products:           a.api,
		Newsletter:         a.api,
		Logger:             logger.Named("gateway"),
		RequestTimeout:     cfg.Gateway.RequestTimeout,
		MaxRequestBodySize: cfg.Gateway.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Gateway.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Gateway.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway starting", zap.String("addr", srv.Addr), zap.String("api", a.api.BaseURL()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Gateway.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server exited")
	return nil
}
