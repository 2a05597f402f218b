package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-builder/internal/bootstrap"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/server"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/shared/tracing"
)

var version = "dev"

func main() {
	cfg := config.Load()
	restore := telemetry.SetLogger(telemetry.New(telemetry.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		LogFile: cfg.LogFile,
	}))
	defer restore()
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Options{
		ServiceName: cfg.ServiceName,
		Env:         cfg.Env,
		Version:     version,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		telemetry.Error("tracing.init_failed", map[string]any{"err": err})
		os.Exit(1)
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		telemetry.Error("bootstrap.failed", map[string]any{"err": err})
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		telemetry.Info("server.start", map[string]any{"addr": srv.Addr, "env": cfg.Env})
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Error("server.failed", map[string]any{"err": err})
		}
	case <-ctx.Done():
		telemetry.Info("server.draining", map[string]any{"timeout": cfg.ShutdownTimeout.String()})
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		telemetry.Error("server.shutdown_failed", map[string]any{"err": err})
	}
	if err := app.Close(); err != nil {
		telemetry.Error("db.close_failed", map[string]any{"err": err})
	}
	if err := shutdownTracing(drainCtx); err != nil {
		telemetry.Warn("tracing.shutdown_failed", map[string]any{"err": err})
	}
	telemetry.Info("server.stopped", nil)
}
