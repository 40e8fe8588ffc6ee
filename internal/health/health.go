// Package health exposes the standard gRPC health service and keeps its
// status in line with the backing stores.
package health

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger is anything that can report whether it is reachable, such as
// *sql.DB or a redis client wrapper.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

func NewServer() *Server {
	gs := grpc.NewServer(grpc.UnaryInterceptor(logInterceptor))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	return &Server{grpc: gs, health: hs}
}

func logInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "grpc call failed", "method", info.FullMethod, "error", err)
	}
	return resp, err
}

func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
}

// Watch pings every dependency on each tick and reports SERVING only while
// all of them answer.
func (s *Server) Watch(ctx context.Context, interval time.Duration, deps ...Pinger) {
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, interval/2)
		defer cancel()
		for _, d := range deps {
			if err := d.PingContext(pingCtx); err != nil {
				slog.WarnContext(ctx, "health check failed", "error", err)
				s.SetServing(false)
				return
			}
		}
		s.SetServing(true)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			check()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) Serve(lis net.Listener) error {
	slog.Info("grpc health server listening", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Shutdown marks the service as not serving before stopping.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }
