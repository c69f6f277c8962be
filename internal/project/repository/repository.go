package repository

import (
	"context"

	"tenant-storage-core/backend/internal/project/domain"
	resource "tenant-storage-core/backend/internal/resource/domain"
)

// Repository defines persistence for projects. Reads default to live rows; pass a
// resource.ReadMode to include tombstones.
type Repository interface {
	Create(ctx context.Context, p *domain.Project) error
	Update(ctx context.Context, p *domain.Project, fields ...string) error
	BulkCreate(ctx context.Context, ps []*domain.Project) error
	Get(ctx context.Context, orgID, id string, mode resource.ReadMode) (*domain.Project, error)
	List(ctx context.Context, orgID string, mode resource.ReadMode) ([]*domain.Project, error)
	SoftDelete(ctx context.Context, p *domain.Project) error
	Restore(ctx context.Context, p *domain.Project) error
	HardDelete(ctx context.Context, orgID, id string) error
}
