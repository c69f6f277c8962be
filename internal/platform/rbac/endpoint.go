package rbac

import (
	"context"

	"go.uber.org/zap"

	identity "tenant-storage-core/backend/internal/identity/domain"
	membership "tenant-storage-core/backend/internal/membership/domain"
	"tenant-storage-core/backend/internal/organization/domain"
	"tenant-storage-core/backend/internal/platform/apperr"
)

// OrgFunc resolves the organization an endpoint operates on.
type OrgFunc func(ctx context.Context) (*domain.Org, error)

// Endpoint describes a guarded operation. Organization must be set; an endpoint without it
// is a wiring mistake and Check reports it as a configuration error rather than a deny.
type Endpoint struct {
	Name          string
	RequiredRoles membership.Roles
	Organization  OrgFunc
}

// Check resolves the endpoint's organization and authorizes id against it.
// On success it returns the resolved organization.
func (e *Evaluator) Check(ctx context.Context, id *identity.Identity, ep Endpoint) (*domain.Org, error) {
	if ep.Organization == nil {
		err := apperr.Configuration(ep.Name, "endpoint does not resolve its organization")
		e.log.Error("rbac misconfiguration", zap.String("operation", ep.Name), zap.Error(err))
		return nil, err
	}
	org, err := ep.Organization(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.Authorize(ctx, ep.Name, id, ep.RequiredRoles, org); err != nil {
		return nil, err
	}
	return org, nil
}

// CheckObject is Check followed by the object ownership check.
func (e *Evaluator) CheckObject(ctx context.Context, id *identity.Identity, ep Endpoint, obj Object) (*domain.Org, error) {
	org, err := e.Check(ctx, id, ep)
	if err != nil {
		return nil, err
	}
	if obj == nil || obj.OwningOrgID() != org.ID {
		e.deny(ep.Name, id, org, "cross_org_object")
		return nil, apperr.PermissionDenied(ep.Name, "resource not found or access denied")
	}
	return org, nil
}
