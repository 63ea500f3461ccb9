package kit

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	readHeaderTimeout   = 5 * time.Second
	defaultDrainTimeout = 10 * time.Second
)

// RunHTTPServer serves h on addr until the process receives SIGINT or
// SIGTERM, then drains in-flight requests for up to drain before forcing
// connections closed. A non-positive drain falls back to the default.
func RunHTTPServer(addr string, h http.Handler, log *zap.Logger, drain time.Duration) error {
	if drain <= 0 {
		drain = defaultDrainTimeout
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()), zap.Duration("drain", drain))
	case err := <-errCh:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("drain deadline exceeded, closing", zap.Error(err))
		return srv.Close()
	}
	return nil
}
