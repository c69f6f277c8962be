package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func serving(t *testing.T, hs *health.Server) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	return resp.GetStatus()
}

func TestNewServer_RegistersHealth(t *testing.T) {
	s, hs := NewServer(Deps{})
	defer s.Stop()

	if _, ok := s.GetServiceInfo()[healthpb.Health_ServiceDesc.ServiceName]; !ok {
		t.Fatal("health service not registered")
	}
	if got := serving(t, hs); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("initial status = %v, want NOT_SERVING", got)
	}
}

func TestUpdateHealth(t *testing.T) {
	hs := health.NewServer()
	ok := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("db down") }

	updateHealth(context.Background(), hs, nil, []Check{ok})
	if got := serving(t, hs); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", got)
	}
	updateHealth(context.Background(), hs, zap.NewNop(), []Check{ok, failing})
	if got := serving(t, hs); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", got)
	}
}

func TestMonitorReadiness_StopsWithContext(t *testing.T) {
	hs := health.NewServer()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		MonitorReadiness(ctx, hs, time.Hour, nil)
		close(done)
	}()
	cancel()
	<-done
	if got := serving(t, hs); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status after shutdown = %v, want NOT_SERVING", got)
	}
}
