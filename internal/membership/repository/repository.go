package repository

import (
	"context"

	"tenant-storage-core/backend/internal/membership/domain"
)

// Repository defines persistence for memberships (user-org-role).
type Repository interface {
	GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error)
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
	GetDefaultMembership(ctx context.Context, userID string) (*domain.Membership, error)
	ListMembershipsByOrg(ctx context.Context, orgID string) ([]*domain.Membership, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]*domain.Membership, error)
	CreateMembership(ctx context.Context, m *domain.Membership) error
	UpdateRole(ctx context.Context, userID, orgID string, role domain.Role) (*domain.Membership, error)
	SetDefault(ctx context.Context, userID, orgID string) error
	DeleteByUserAndOrg(ctx context.Context, userID, orgID string) error
}
