package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-storage-core/backend/internal/auditctx"
	"tenant-storage-core/backend/internal/db/dbtest"
	identity "tenant-storage-core/backend/internal/identity/domain"
	membership "tenant-storage-core/backend/internal/membership/domain"
	membershiprepo "tenant-storage-core/backend/internal/membership/repository"
	"tenant-storage-core/backend/internal/orgcontext"
	orgrepo "tenant-storage-core/backend/internal/organization/repository"
	"tenant-storage-core/backend/internal/platform/apperr"
	"tenant-storage-core/backend/internal/platform/rbac"
	"tenant-storage-core/backend/internal/project/repository"
)

func newService(t *testing.T) *Service {
	t.Helper()
	conn := dbtest.Open(t)
	for _, u := range []string{"admin", "manager", "viewer", "outsider"} {
		dbtest.SeedUser(t, conn, u, u+"@example.com")
	}
	dbtest.SeedOrg(t, conn, "org-a", "A", "active")
	dbtest.SeedOrg(t, conn, "org-b", "B", "active")

	members := membershiprepo.NewSQLRepository(conn)
	ctx := context.Background()
	for i, m := range []membership.Membership{
		{ID: "m1", UserID: "admin", OrgID: "org-a", Role: membership.RoleAdmin, IsDefault: true},
		{ID: "m2", UserID: "manager", OrgID: "org-a", Role: membership.RoleManager, IsDefault: true},
		{ID: "m3", UserID: "viewer", OrgID: "org-a", Role: membership.RoleViewer, IsDefault: true},
		{ID: "m4", UserID: "outsider", OrgID: "org-b", Role: membership.RoleAdmin, IsDefault: true},
	} {
		m := m
		require.NoError(t, members.CreateMembership(ctx, &m), "membership %d", i)
	}
	resolver := orgcontext.NewResolver(orgrepo.NewSQLRepository(conn), members)
	return NewService(repository.NewSQLRepository(conn, nil), resolver, rbac.NewEvaluator(members, nil))
}

func as(user string) context.Context {
	return auditctx.WithIdentity(context.Background(), identity.Authenticated(user, ""))
}

func TestService_CreateRequiresElevatedRole(t *testing.T) {
	s := newService(t)

	_, err := s.Create(context.Background(), "", CreateInput{Title: "x"})
	assert.True(t, apperr.IsKind(err, apperr.KindAuthenticationRequired), "got %v", err)

	_, err = s.Create(as("viewer"), "", CreateInput{Title: "x"})
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied), "got %v", err)

	p, err := s.Create(as("manager"), "", CreateInput{Title: "Roadmap"})
	require.NoError(t, err)
	assert.Equal(t, "org-a", p.OrgID)
	require.NotNil(t, p.CreatedBy)
	assert.Equal(t, "manager", *p.CreatedBy)
}

func TestService_CrossTenantReadsAreDenied(t *testing.T) {
	s := newService(t)
	p, err := s.Create(as("admin"), "org-a", CreateInput{Title: "Secret"})
	require.NoError(t, err)

	_, err = s.Get(as("outsider"), "org-a", p.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied), "got %v", err)

	// outsider resolves their own org, where the project does not exist
	_, err = s.Get(as("outsider"), "", p.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
}

func TestService_UpdateOwnerOrAdmin(t *testing.T) {
	s := newService(t)
	p, err := s.Create(as("manager"), "", CreateInput{Title: "Roadmap"})
	require.NoError(t, err)

	_, err = s.Update(as("viewer"), "", p.ID, CreateInput{Title: "Hijack"})
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied), "got %v", err)

	updated, err := s.Update(as("manager"), "", p.ID, CreateInput{Title: "Roadmap v2"})
	require.NoError(t, err)
	assert.Equal(t, "manager", *updated.UpdatedBy)

	updated, err = s.Update(as("admin"), "", p.ID, CreateInput{Title: "Roadmap v3"})
	require.NoError(t, err)
	assert.Equal(t, "admin", *updated.UpdatedBy)
	assert.Equal(t, "manager", *updated.CreatedBy)
}

func TestService_DeleteAndRestore(t *testing.T) {
	s := newService(t)
	p, err := s.Create(as("manager"), "", CreateInput{Title: "Roadmap"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(as("manager"), "", p.ID))

	_, err = s.Get(as("viewer"), "", p.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)

	list, err := s.List(as("viewer"), "")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.ListDeleted(as("manager"), "")
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied), "got %v", err)

	deleted, err := s.ListDeleted(as("admin"), "")
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "manager", *deleted[0].UpdatedBy, "soft delete must not restamp updated_by")

	restored, err := s.Restore(as("admin"), "", p.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted())

	got, err := s.Get(as("viewer"), "", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", got.Title)
}
