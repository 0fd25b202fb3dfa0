package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aretw0/ivy/internal/runtime"
	ivyhttp "github.com/aretw0/ivy/pkg/adapters/http"
	"github.com/aretw0/ivy/pkg/adapters/recorder"
)

// ServeOptions contains the configuration for the Serve command.
type ServeOptions struct {
	EngineOptions
	Addr     string
	Scenario string // optional scenario loaded before serving
}

// Serve exposes an engine over HTTP until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, opts ServeOptions, out io.Writer) error {
	bundle, err := createEngine(opts.EngineOptions, recorder.Null())
	if err != nil {
		return err
	}
	defer func() { _ = bundle.engine.Close() }()

	if opts.Scenario != "" {
		sc, err := LoadScenario(opts.Scenario)
		if err != nil {
			return err
		}
		player, err := runtime.Load(ctx, bundle.engine, sc, runtime.WithLogger(bundle.logger))
		if err != nil {
			return err
		}
		defer player.Close()
	}

	srv := &http.Server{
		Addr: opts.Addr,
		Handler: ivyhttp.NewHandler(bundle.engine,
			ivyhttp.WithLogger(bundle.logger),
			ivyhttp.WithMetrics(bundle.registry),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(out, "Starting ivy server on %s", opts.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		printSystemMessage(out, "Server stopped gracefully")
		return nil
	}
}
