// Package grpcserver serves the standard gRPC health protocol for the API.
package grpcserver

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported next to the overall "" entry.
const ServiceName = "podcasts.v1.PodcastService"

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// HealthServer keeps the gRPC health status in line with periodic dependency checks.
type HealthServer struct {
	srv      *health.Server
	checks   map[string]Check
	interval time.Duration
}

// NewHealthServer creates a health server that probes checks every interval.
// Status starts as NOT_SERVING until the first probe.
func NewHealthServer(checks map[string]Check, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{srv: srv, checks: checks, interval: interval}
}

// Register attaches the health service to s.
func (h *HealthServer) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// Probe runs every check once and updates the serving status.
func (h *HealthServer) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			log.Warn().Err(err).Str("check", name).Msg("Dependency unhealthy")
			healthy = false
		}
	}

	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.srv.SetServingStatus("", status)
	h.srv.SetServingStatus(ServiceName, status)
	return healthy
}

// Run probes until ctx is cancelled, then marks everything NOT_SERVING.
func (h *HealthServer) Run(ctx context.Context) {
	h.Probe(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C:
			h.Probe(ctx)
		}
	}
}
