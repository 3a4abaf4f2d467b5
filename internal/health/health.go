// Package health serves grpc.health.v1 and keeps its status in line with
// frame freshness.
package health

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service reported alongside the overall ("") status.
const ServiceName = "facestream.Stream"

// StalenessChecker reports whether the latest frame is too old.
type StalenessChecker interface {
	Stale(threshold time.Duration) bool
}

// Monitor periodically flips the health status between SERVING and NOT_SERVING.
type Monitor struct {
	checker   StalenessChecker
	health    *grpchealth.Server
	interval  time.Duration
	threshold time.Duration
	logger    zerolog.Logger

	serving bool
}

func NewMonitor(checker StalenessChecker, interval, threshold time.Duration, logger zerolog.Logger) *Monitor {
	m := &Monitor{
		checker:   checker,
		health:    grpchealth.NewServer(),
		interval:  interval,
		threshold: threshold,
		logger:    logger,
	}
	m.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return m
}

// HealthServer returns the grpc health implementation driven by this monitor.
func (m *Monitor) HealthServer() *grpchealth.Server {
	return m.health
}

// Check evaluates staleness once and updates the status.
func (m *Monitor) Check() bool {
	serving := !m.checker.Stale(m.threshold)
	if serving != m.serving {
		m.logger.Info().Bool("serving", serving).Msg("Health status changed")
	}
	m.serving = serving
	if serving {
		m.set(healthpb.HealthCheckResponse_SERVING)
	} else {
		m.set(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return serving
}

func (m *Monitor) set(status healthpb.HealthCheckResponse_ServingStatus) {
	m.health.SetServingStatus("", status)
	m.health.SetServingStatus(ServiceName, status)
}

// Run checks every interval until ctx ends, then marks everything NOT_SERVING
// so watchers see the shutdown.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check()
	for {
		select {
		case <-ctx.Done():
			m.health.Shutdown()
			return nil
		case <-ticker.C:
			m.Check()
		}
	}
}

// Serve exposes the health service on lis until ctx is cancelled.
func Serve(ctx context.Context, lis net.Listener, hs healthpb.HealthServer, logger zerolog.Logger) error {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server listening")
	if err := srv.Serve(lis); err != nil {
		return fmt.Errorf("gRPC health server failed: %w", err)
	}
	return nil
}

// ListenAndServe binds addr and calls Serve.
func ListenAndServe(ctx context.Context, addr string, hs healthpb.HealthServer, logger zerolog.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return Serve(ctx, lis, hs, logger)
}
