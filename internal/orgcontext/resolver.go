// Package orgcontext determines the organization an operation is evaluated against.
package orgcontext

import (
	"context"

	identity "tenant-storage-core/backend/internal/identity/domain"
	membership "tenant-storage-core/backend/internal/membership/domain"
	"tenant-storage-core/backend/internal/organization/domain"
	"tenant-storage-core/backend/internal/platform/apperr"
)

// OrgGetter loads organizations by id. A missing org is (nil, nil).
type OrgGetter interface {
	GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error)
}

// DefaultMembershipGetter returns the user's default membership. No default is (nil, nil).
type DefaultMembershipGetter interface {
	GetDefaultMembership(ctx context.Context, userID string) (*membership.Membership, error)
}

// Request is the part of an inbound operation the resolver looks at.
// OrgID is the explicitly supplied organization, typically from a path parameter.
type Request struct {
	Identity *identity.Identity
	OrgID    string
}

// Resolver resolves organization context. It never writes.
type Resolver struct {
	orgs        OrgGetter
	memberships DefaultMembershipGetter
}

// NewResolver returns a Resolver over the given repositories.
func NewResolver(orgs OrgGetter, memberships DefaultMembershipGetter) *Resolver {
	return &Resolver{orgs: orgs, memberships: memberships}
}

// Resolve returns the explicitly requested organization when it exists and is active,
// otherwise the identity's default organization. It returns (nil, nil) when neither
// resolves so that permission checks deny uniformly; errors are reserved for storage failures.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*domain.Org, error) {
	const op = "orgcontext.Resolve"
	if req.OrgID != "" {
		org, err := r.orgs.GetOrganizationByID(ctx, req.OrgID)
		if err != nil {
			return nil, apperr.Internal(op, err)
		}
		if org.IsActive() {
			return org, nil
		}
	}
	if !req.Identity.IsAuthenticated() {
		return nil, nil
	}
	m, err := r.memberships.GetDefaultMembership(ctx, req.Identity.UserID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if m == nil {
		return nil, nil
	}
	org, err := r.orgs.GetOrganizationByID(ctx, m.OrgID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if !org.IsActive() {
		return nil, nil
	}
	return org, nil
}
