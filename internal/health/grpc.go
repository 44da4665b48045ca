package health

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCServer exposes the readiness checks through the standard gRPC health
// service, for orchestrators that probe over gRPC.
type GRPCServer struct {
	server   *grpc.Server
	health   *grpchealth.Server
	checks   *Handler
	interval time.Duration
	logger   *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	done    chan struct{}
}

func NewGRPCServer(checks *Handler, interval time.Duration, logger *slog.Logger) *GRPCServer {
	server := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))

	healthServer := grpchealth.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	if interval <= 0 {
		interval = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &GRPCServer{
		server:   server,
		health:   healthServer,
		checks:   checks,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Serve probes the checks in the background and blocks serving lis.
func (g *GRPCServer) Serve(lis net.Listener) error {
	ctx := g.ctx
	g.started.Store(true)

	g.probe(ctx)
	go func() {
		defer close(g.done)
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.probe(ctx)
			}
		}
	}()

	g.logger.Info("gRPC health server starting", "addr", lis.Addr().String())
	return g.server.Serve(lis)
}

func (g *GRPCServer) probe(ctx context.Context) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if _, ok := g.checks.Check(ctx); !ok {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
}

// Stop marks the service as not serving and drains in-flight calls.
func (g *GRPCServer) Stop() {
	g.cancel()
	if g.started.Load() {
		<-g.done
	}
	g.health.Shutdown()
	g.server.GracefulStop()
}
