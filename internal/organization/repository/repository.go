package repository

import (
	"context"

	"tenant-storage-core/backend/internal/organization/domain"
)

// Repository persists tenants. Lookups return nil for unknown ids so the
// org context resolver can deny without an error.
type Repository interface {
	GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error)
	CreateOrganization(ctx context.Context, o *domain.Org) error
	UpdateOrganization(ctx context.Context, o *domain.Org) error
	// SetStatus suspends or reactivates a tenant. Suspended tenants stop resolving.
	SetStatus(ctx context.Context, id string, status domain.OrgStatus) error
}
