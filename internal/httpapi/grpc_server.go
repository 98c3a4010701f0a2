package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"byund.io/internal/obs"
)

// GRPCServer exposes grpc.health.v1.Health driven by the readiness probe.
type GRPCServer struct {
	health    *health.Server
	readiness readinessChecker
	interval  time.Duration
}

// NewGRPCServer creates the health wrapper. interval <= 0 disables polling;
// call Refresh to update the status manually.
func NewGRPCServer(r readinessChecker, interval time.Duration) *GRPCServer {
	if r == nil {
		r = ReadyProbe{}
	}
	s := &GRPCServer{
		health:    health.NewServer(),
		readiness: r,
		interval:  interval,
	}
	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Register attaches the health service to srv.
func (s *GRPCServer) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, s.health)
}

// Refresh runs the readiness probe once and publishes the result.
func (s *GRPCServer) Refresh(ctx context.Context) bool {
	status := healthpb.HealthCheckResponse_SERVING
	ok := true
	if err := s.readiness.Check(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		ok = false
		obs.Logger().WithError(err).Warn("readiness probe failed")
	}
	obs.SetReady(ok)
	s.health.SetServingStatus(serviceName, status)
	s.health.SetServingStatus("", status)
	return ok
}

// Run refreshes on every interval until ctx ends, then marks the service as
// shutting down.
func (s *GRPCServer) Run(ctx context.Context) {
	s.Refresh(ctx)
	if s.interval <= 0 {
		<-ctx.Done()
		s.health.Shutdown()
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}
