package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"simcheck/internal/app"
)

// ServeHealth serves /healthz on the configured port until ctx is done.
// Workers use it so orchestrators can probe them.
func ServeHealth(ctx context.Context, deps app.Deps, service string) error {
	r := NewRouter(deps.Log)
	r.Get("/healthz", HealthHandler(deps))
	return Serve(ctx, deps, service, r)
}

// Serve runs h on the configured port and shuts down gracefully when ctx is done.
func Serve(ctx context.Context, deps app.Deps, service string, h http.Handler) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		deps.Log.Info(service+" listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
