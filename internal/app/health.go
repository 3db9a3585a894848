package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"graphout/internal/config"
)

const healthPollInterval = time.Second

// startHealthServer starts the optional gRPC health endpoint.
// The overall service reports SERVING while ready returns true.
// Params: ctx controls lifecycle; cfg provides enabled/listen options; ready readiness probe; logger reports runtime events.
// Returns: stop function (idempotent) and startup error.
func startHealthServer(ctx context.Context, cfg config.HealthConfig, ready func() bool, logger *slog.Logger) (func(), error) {
	if !cfg.Enabled {
		return func() {}, nil
	}

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("listen %q: %w", cfg.Listen, err)
	}

	stop := serveHealth(ctx, listener, ready, healthPollInterval, logger)
	logger.Info("health server started", slog.String("addr", listener.Addr().String()))
	return stop, nil
}

// serveHealth serves grpc health checks on listener and mirrors ready into the serving status.
// Params: ctx lifecycle; listener bound socket; ready probe; interval probe period; logger diagnostics.
// Returns: stop function (idempotent).
func serveHealth(
	ctx context.Context,
	listener net.Listener,
	ready func() bool,
	interval time.Duration,
	logger *slog.Logger,
) func() {
	server := grpc.NewServer()
	status := health.NewServer()
	healthpb.RegisterHealthServer(server, status)

	pollCtx, cancelPoll := context.WithCancel(ctx)
	var pollDone sync.WaitGroup
	pollDone.Add(1)
	go func() {
		defer pollDone.Done()
		pollReadiness(pollCtx, status, ready, interval)
	}()

	go func() {
		if err := server.Serve(listener); err != nil {
			logger.Error("health server failed", slog.String("addr", listener.Addr().String()), slog.String("error", err.Error()))
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancelPoll()
			pollDone.Wait()
			status.Shutdown()
			stopGRPC(server, debugShutdownTimeout)
		})
	}

	go func() {
		<-ctx.Done()
		stop()
	}()

	return stop
}

// pollReadiness updates the overall serving status until ctx is canceled.
// Params: ctx lifecycle; status health registry; ready probe; interval probe period.
// Returns: none.
func pollReadiness(ctx context.Context, status *health.Server, ready func() bool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		serving := healthpb.HealthCheckResponse_NOT_SERVING
		if ready() {
			serving = healthpb.HealthCheckResponse_SERVING
		}
		status.SetServingStatus("", serving)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// stopGRPC drains server gracefully and forces close after timeout.
// Params: server running grpc server; timeout graceful drain limit.
// Returns: none.
func stopGRPC(server *grpc.Server, timeout time.Duration) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(timeout):
		server.Stop()
		<-stopped
	}
}
