// Package rbac decides whether an identity may act within an organization.
//
// Roles are compared by plain set membership: an identity is allowed when its role in the
// organization is an element of the required set. There is no hierarchy between roles, so an
// ADMIN is denied by a required set that names only VIEWER.
package rbac

import (
	"context"

	"go.uber.org/zap"

	identity "tenant-storage-core/backend/internal/identity/domain"
	membership "tenant-storage-core/backend/internal/membership/domain"
	"tenant-storage-core/backend/internal/organization/domain"
	"tenant-storage-core/backend/internal/platform/apperr"
)

// OrgMembershipGetter returns a user's membership in an org. A missing membership is (nil, nil).
type OrgMembershipGetter interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*membership.Membership, error)
}

// Object is a tenant-owned value checked by the object-level variants.
type Object interface {
	OwningOrgID() string
}

// OwnedObject additionally exposes its creator.
type OwnedObject interface {
	Object
	CreatorID() string
}

// Evaluator evaluates role requirements against memberships.
type Evaluator struct {
	memberships OrgMembershipGetter
	log         *zap.Logger
}

// NewEvaluator returns an Evaluator. A nil logger disables denial logging.
func NewEvaluator(memberships OrgMembershipGetter, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{memberships: memberships, log: log}
}

// HasPermission reports whether id holds one of required in org.
// An empty required set admits any member of org. Unauthenticated identities and a nil org
// are denied. The error is non-nil only when the membership lookup fails.
func (e *Evaluator) HasPermission(ctx context.Context, id *identity.Identity, required membership.Roles, org *domain.Org) (bool, error) {
	if !id.IsAuthenticated() || org == nil {
		return false, nil
	}
	m, err := e.memberships.GetMembershipByUserAndOrg(ctx, id.UserID, org.ID)
	if err != nil {
		return false, apperr.Internal("rbac.HasPermission", err)
	}
	if m == nil {
		return false, nil
	}
	if len(required) == 0 {
		return true, nil
	}
	return required.Contains(m.Role), nil
}

// HasObjectPermission performs HasPermission and additionally requires obj to belong to org.
// A mismatch is a plain deny.
func (e *Evaluator) HasObjectPermission(ctx context.Context, id *identity.Identity, required membership.Roles, org *domain.Org, obj Object) (bool, error) {
	ok, err := e.HasPermission(ctx, id, required, org)
	if err != nil || !ok {
		return false, err
	}
	return obj != nil && obj.OwningOrgID() == org.ID, nil
}

// Authorize is HasPermission expressed as a taxonomy error:
// AuthenticationRequired when id is not authenticated, PermissionDenied on any deny.
func (e *Evaluator) Authorize(ctx context.Context, op string, id *identity.Identity, required membership.Roles, org *domain.Org) error {
	if !id.IsAuthenticated() {
		e.deny(op, id, org, "unauthenticated")
		return apperr.AuthenticationRequired(op)
	}
	if org == nil {
		e.deny(op, id, org, "no_org")
		return apperr.PermissionDenied(op, "no organization context")
	}
	ok, err := e.HasPermission(ctx, id, required, org)
	if err != nil {
		return err
	}
	if !ok {
		e.deny(op, id, org, "denied")
		return apperr.PermissionDenied(op, "insufficient role in organization")
	}
	return nil
}

// AuthorizeObject is Authorize plus the object ownership check. An object from another
// organization yields the same message as a missing one.
func (e *Evaluator) AuthorizeObject(ctx context.Context, op string, id *identity.Identity, required membership.Roles, org *domain.Org, obj Object) error {
	if err := e.Authorize(ctx, op, id, required, org); err != nil {
		return err
	}
	if obj == nil || obj.OwningOrgID() != org.ID {
		e.deny(op, id, org, "cross_org_object")
		return apperr.PermissionDenied(op, "resource not found or access denied")
	}
	return nil
}

// RequireOrgAdmin authorizes ADMIN only.
func (e *Evaluator) RequireOrgAdmin(ctx context.Context, op string, id *identity.Identity, org *domain.Org) error {
	return e.Authorize(ctx, op, id, membership.AdminOnly, org)
}

// RequireOrgAdminOrManager authorizes ADMIN or MANAGER.
func (e *Evaluator) RequireOrgAdminOrManager(ctx context.Context, op string, id *identity.Identity, org *domain.Org) error {
	return e.Authorize(ctx, op, id, membership.AdminOrManager, org)
}

// RequireOrgMember authorizes any role.
func (e *Evaluator) RequireOrgMember(ctx context.Context, op string, id *identity.Identity, org *domain.Org) error {
	return e.Authorize(ctx, op, id, membership.AnyMember, org)
}

// IsOwnerOrAdmin reports whether id created obj or is an ADMIN of obj's organization.
func (e *Evaluator) IsOwnerOrAdmin(ctx context.Context, id *identity.Identity, obj OwnedObject) (bool, error) {
	if !id.IsAuthenticated() || obj == nil {
		return false, nil
	}
	if c := obj.CreatorID(); c != "" && c == id.UserID {
		return true, nil
	}
	m, err := e.memberships.GetMembershipByUserAndOrg(ctx, id.UserID, obj.OwningOrgID())
	if err != nil {
		return false, apperr.Internal("rbac.IsOwnerOrAdmin", err)
	}
	return m != nil && m.Role == membership.RoleAdmin, nil
}

func (e *Evaluator) deny(op string, id *identity.Identity, org *domain.Org, reason string) {
	orgID := ""
	if org != nil {
		orgID = org.ID
	}
	e.log.Info("authorization denied",
		zap.String("user_id", id.ID()),
		zap.String("org_id", orgID),
		zap.String("operation", op),
		zap.String("outcome", reason),
	)
}
