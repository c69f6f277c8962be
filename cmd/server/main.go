package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tenant-storage-core/backend/internal/app"
	"tenant-storage-core/backend/internal/config"
	"tenant-storage-core/backend/internal/db"
	"tenant-storage-core/backend/internal/logging"
	"tenant-storage-core/backend/internal/platform/apperr"
	"tenant-storage-core/backend/internal/security"
	"tenant-storage-core/backend/internal/server"
	"tenant-storage-core/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, otel.Config{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		logger.Fatal("telemetry", zap.Error(err))
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer conn.Close()
	if strings.HasPrefix(cfg.DatabaseURL, "sqlite://") {
		if _, err := conn.Exec(db.SQLiteSchema); err != nil {
			logger.Fatal("sqlite schema", zap.Error(err))
		}
	}

	core, err := app.New(ctx, cfg, conn, logger)
	if err != nil {
		// Missing capabilities must stop the process before it serves anything.
		apperr.MustNotBeConfiguration(err)
		logger.Fatal("startup", zap.Error(err))
	}
	logger.Info("core ready",
		zap.String("storage_provider", cfg.StorageProvider),
		zap.Strings("manifests", core.Manifests.Types()),
	)

	var verifier *security.Verifier
	if cfg.JWTPublicKey != "" {
		pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
		if err != nil {
			logger.Fatal("jwt public key", zap.Error(err))
		}
		verifier = security.NewVerifier(pub, cfg.JWTIssuer, cfg.JWTAudience)
	} else {
		logger.Warn("JWT_PUBLIC_KEY is not set; all callers are anonymous")
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	defer lis.Close()

	s, hs := server.NewServer(server.Deps{Verifier: verifier, Logger: logger.Named("grpc")})
	go server.MonitorReadiness(ctx, hs, 15*time.Second, logger, conn.PingContext)

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := s.Serve(lis); err != nil {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down gRPC server")
	s.GracefulStop()
	logger.Info("gRPC server stopped")
}
