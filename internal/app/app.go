// Package app assembles the authorization and storage core from configuration. The request
// layer receives a *Core and calls its services.
package app

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"tenant-storage-core/backend/internal/catalog"
	"tenant-storage-core/backend/internal/config"
	membershiprepo "tenant-storage-core/backend/internal/membership/repository"
	"tenant-storage-core/backend/internal/orgcontext"
	orgrepo "tenant-storage-core/backend/internal/organization/repository"
	"tenant-storage-core/backend/internal/pii"
	"tenant-storage-core/backend/internal/platform/rbac"
	projectrepo "tenant-storage-core/backend/internal/project/repository"
	projectservice "tenant-storage-core/backend/internal/project/service"
	"tenant-storage-core/backend/internal/storage"
	"tenant-storage-core/backend/internal/storage/backend"

	// Blob providers register themselves with the backend factory.
	_ "tenant-storage-core/backend/internal/storage/backend/azureblob"
	_ "tenant-storage-core/backend/internal/storage/backend/memfs"
	_ "tenant-storage-core/backend/internal/storage/backend/s3blob"
)

// Core holds the wired components.
type Core struct {
	Organizations orgrepo.Repository
	Memberships   membershiprepo.Repository
	Resolver      *orgcontext.Resolver
	Evaluator     *rbac.Evaluator
	Manifests     *pii.Registry
	Blobs         backend.Backend
	Storage       *storage.Service
	Projects      *projectservice.Service
}

// New checks the PII manifests, opens the configured blob backend and builds the services
// over conn. Every failure here is a configuration error and should stop the process.
func New(ctx context.Context, cfg *config.Config, conn *sqlx.DB, log *zap.Logger) (*Core, error) {
	if log == nil {
		log = zap.NewNop()
	}
	registry, err := catalog.Check(cfg.PIIPolicy(), log.Named("pii"))
	if err != nil {
		return nil, err
	}
	blobs, err := backend.New(ctx, cfg.Backend())
	if err != nil {
		return nil, err
	}

	orgs := orgrepo.NewSQLRepository(conn)
	members := membershiprepo.NewSQLRepository(conn)
	resolver := orgcontext.NewResolver(orgs, members)
	evaluator := rbac.NewEvaluator(members, log.Named("rbac"))

	files, err := storage.NewService(blobs, resolver, evaluator, storage.Options{
		MaxUploadBytes:   cfg.MaxUploadBytes,
		DeniedExtensions: cfg.DeniedExtensions(),
		SignedURLTTL:     cfg.SignedURLTTL(),
		MaxPathDepth:     cfg.MaxPathDepth,
		StrictUsage:      cfg.UsageStatsStrict,
		Logger:           log.Named("storage"),
	})
	if err != nil {
		return nil, err
	}

	return &Core{
		Organizations: orgs,
		Memberships:   members,
		Resolver:      resolver,
		Evaluator:     evaluator,
		Manifests:     registry,
		Blobs:         blobs,
		Storage:       files,
		Projects:      projectservice.NewService(projectrepo.NewSQLRepository(conn, nil), resolver, evaluator),
	}, nil
}
