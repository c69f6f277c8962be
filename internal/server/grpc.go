package server

import (
	"context"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"tenant-storage-core/backend/internal/security"
	"tenant-storage-core/backend/internal/server/interceptors"
)

// HealthMethods are callable without a token.
var HealthMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
	healthpb.Health_Watch_FullMethodName: true,
}

// Deps holds what the gRPC server needs.
type Deps struct {
	// Verifier validates Bearer access tokens. If nil, every caller is anonymous.
	Verifier *security.Verifier
	// PublicMethods are full method names callable without a token, in addition to HealthMethods.
	PublicMethods map[string]bool
	Logger        *zap.Logger
}

// NewServer returns a gRPC server with the auth and error interceptors installed and the
// standard health service registered. RPCs are traced through the global OpenTelemetry
// providers. Health starts NOT_SERVING until MonitorReadiness reports otherwise.
func NewServer(deps Deps, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	public := make(map[string]bool, len(HealthMethods)+len(deps.PublicMethods))
	for m := range HealthMethods {
		public[m] = true
	}
	for m, ok := range deps.PublicMethods {
		public[m] = ok
	}
	opts = append(opts, grpc.StatsHandler(otelgrpc.NewServerHandler()), grpc.ChainUnaryInterceptor(
		interceptors.AuthUnary(deps.Verifier, public),
		interceptors.ErrorUnary(deps.Logger),
	))
	s := grpc.NewServer(opts...)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}

// Check is a readiness probe, e.g. a database ping.
type Check func(ctx context.Context) error

// MonitorReadiness runs checks every interval until ctx is done and publishes the result as
// the server's overall health.
func MonitorReadiness(ctx context.Context, hs *health.Server, interval time.Duration, log *zap.Logger, checks ...Check) {
	if log == nil {
		log = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		updateHealth(ctx, hs, log, checks)
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

func updateHealth(ctx context.Context, hs *health.Server, log *zap.Logger, checks []Check) {
	var err error
	for _, c := range checks {
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = multierr.Append(err, c(cctx))
		cancel()
	}
	if err != nil {
		log.Warn("readiness check failed", zap.Error(err))
		hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
}
