// Package service applies organization context and role checks to project operations.
package service

import (
	"context"

	"github.com/google/uuid"

	"tenant-storage-core/backend/internal/auditctx"
	membership "tenant-storage-core/backend/internal/membership/domain"
	"tenant-storage-core/backend/internal/orgcontext"
	orgdomain "tenant-storage-core/backend/internal/organization/domain"
	"tenant-storage-core/backend/internal/platform/apperr"
	"tenant-storage-core/backend/internal/platform/rbac"
	"tenant-storage-core/backend/internal/project/domain"
	"tenant-storage-core/backend/internal/project/repository"
	resource "tenant-storage-core/backend/internal/resource/domain"
)

// OrgResolver resolves the organization for a request.
type OrgResolver interface {
	Resolve(ctx context.Context, req orgcontext.Request) (*orgdomain.Org, error)
}

// Service exposes project operations. The acting identity is read from ctx.
type Service struct {
	repo     repository.Repository
	resolver OrgResolver
	rbac     *rbac.Evaluator
}

// NewService returns a project Service.
func NewService(repo repository.Repository, resolver OrgResolver, evaluator *rbac.Evaluator) *Service {
	return &Service{repo: repo, resolver: resolver, rbac: evaluator}
}

// CreateInput holds the caller-supplied fields of a new project.
type CreateInput struct {
	Title       string
	Description string
}

func (s *Service) endpoint(name string, roles membership.Roles, orgID string) rbac.Endpoint {
	return rbac.Endpoint{
		Name:          name,
		RequiredRoles: roles,
		Organization: func(ctx context.Context) (*orgdomain.Org, error) {
			return s.resolver.Resolve(ctx, orgcontext.Request{Identity: auditctx.FromContext(ctx), OrgID: orgID})
		},
	}
}

// Create adds a project to the resolved organization. ADMIN or MANAGER.
func (s *Service) Create(ctx context.Context, orgID string, in CreateInput) (*domain.Project, error) {
	org, err := s.rbac.Check(ctx, auditctx.FromContext(ctx), s.endpoint("projects.Create", membership.AdminOrManager, orgID))
	if err != nil {
		return nil, err
	}
	p := &domain.Project{Title: in.Title, Description: in.Description}
	p.ID = uuid.New().String()
	p.OrgID = org.ID
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a live project. Any member.
func (s *Service) Get(ctx context.Context, orgID, id string) (*domain.Project, error) {
	org, err := s.rbac.Check(ctx, auditctx.FromContext(ctx), s.endpoint("projects.Get", membership.AnyMember, orgID))
	if err != nil {
		return nil, err
	}
	return s.load(ctx, "projects.Get", org, id, resource.Live)
}

// List returns the organization's live projects. Any member.
func (s *Service) List(ctx context.Context, orgID string) ([]*domain.Project, error) {
	org, err := s.rbac.Check(ctx, auditctx.FromContext(ctx), s.endpoint("projects.List", membership.AnyMember, orgID))
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, org.ID, resource.Live)
}

// ListDeleted returns tombstoned projects for restoration tooling. ADMIN only.
func (s *Service) ListDeleted(ctx context.Context, orgID string) ([]*domain.Project, error) {
	org, err := s.rbac.Check(ctx, auditctx.FromContext(ctx), s.endpoint("projects.ListDeleted", membership.AdminOnly, orgID))
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, org.ID, resource.DeletedOnly)
}

// Update renames or re-describes a project. Its creator or an organization ADMIN.
func (s *Service) Update(ctx context.Context, orgID, id string, in CreateInput) (*domain.Project, error) {
	const op = "projects.Update"
	p, err := s.loadOwned(ctx, op, orgID, id)
	if err != nil {
		return nil, err
	}
	p.Title, p.Description = in.Title, in.Description
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete soft-deletes a project. Its creator or an organization ADMIN.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	p, err := s.loadOwned(ctx, "projects.Delete", orgID, id)
	if err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, p)
}

// Restore clears a project's tombstone. ADMIN only.
func (s *Service) Restore(ctx context.Context, orgID, id string) (*domain.Project, error) {
	const op = "projects.Restore"
	org, err := s.rbac.Check(ctx, auditctx.FromContext(ctx), s.endpoint(op, membership.AdminOnly, orgID))
	if err != nil {
		return nil, err
	}
	p, err := s.load(ctx, op, org, id, resource.DeletedOnly)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Restore(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) loadOwned(ctx context.Context, op, orgID, id string) (*domain.Project, error) {
	who := auditctx.FromContext(ctx)
	org, err := s.rbac.Check(ctx, who, s.endpoint(op, membership.AnyMember, orgID))
	if err != nil {
		return nil, err
	}
	p, err := s.load(ctx, op, org, id, resource.Live)
	if err != nil {
		return nil, err
	}
	ok, err := s.rbac.IsOwnerOrAdmin(ctx, who, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.PermissionDenied(op, "only the creator or an organization admin may change this project")
	}
	return p, nil
}

func (s *Service) load(ctx context.Context, op string, org *orgdomain.Org, id string, mode resource.ReadMode) (*domain.Project, error) {
	p, err := s.repo.Get(ctx, org.ID, id, mode)
	if err != nil {
		return nil, err
	}
	if p == nil || p.OwningOrgID() != org.ID {
		return nil, apperr.NotFound(op, "project not found")
	}
	return p, nil
}
