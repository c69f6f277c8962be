package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-storage-core/backend/internal/db/dbtest"
	"tenant-storage-core/backend/internal/organization/domain"
	"tenant-storage-core/backend/internal/platform/apperr"
)

func TestSQLRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLRepository(dbtest.Open(t))

	require.NoError(t, repo.CreateOrganization(ctx, &domain.Org{ID: "org-1", Name: "Acme"}))

	got, err := repo.GetOrganizationByID(ctx, "org-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, domain.OrgStatusActive, got.Status)
	assert.True(t, got.IsActive())
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLRepository_GetMissingReturnsNil(t *testing.T) {
	repo := NewSQLRepository(dbtest.Open(t))
	got, err := repo.GetOrganizationByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLRepository_CreateDuplicateIsValidation(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLRepository(dbtest.Open(t))
	require.NoError(t, repo.CreateOrganization(ctx, &domain.Org{ID: "org-1", Name: "Acme"}))

	err := repo.CreateOrganization(ctx, &domain.Org{ID: "org-1", Name: "Acme again"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
}

func TestSQLRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLRepository(dbtest.Open(t))
	o := &domain.Org{ID: "org-1", Name: "Acme"}
	require.NoError(t, repo.CreateOrganization(ctx, o))

	o.Status = domain.OrgStatusSuspended
	require.NoError(t, repo.UpdateOrganization(ctx, o))

	got, err := repo.GetOrganizationByID(ctx, "org-1")
	require.NoError(t, err)
	assert.False(t, got.IsActive())

	err = repo.UpdateOrganization(ctx, &domain.Org{ID: "missing", Name: "x"})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
}

func TestSQLRepository_CreateRequiresName(t *testing.T) {
	repo := NewSQLRepository(dbtest.Open(t))
	err := repo.CreateOrganization(context.Background(), &domain.Org{ID: "org-1"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
}

func TestSQLRepository_SetStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLRepository(dbtest.Open(t))
	require.NoError(t, repo.CreateOrganization(ctx, &domain.Org{ID: "org-1", Name: "Acme"}))

	require.NoError(t, repo.SetStatus(ctx, "org-1", domain.OrgStatusSuspended))
	got, err := repo.GetOrganizationByID(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrgStatusSuspended, got.Status)
	assert.Equal(t, "Acme", got.Name)

	require.NoError(t, repo.SetStatus(ctx, "org-1", domain.OrgStatusActive))
	got, err = repo.GetOrganizationByID(ctx, "org-1")
	require.NoError(t, err)
	assert.True(t, got.IsActive())

	err = repo.SetStatus(ctx, "org-1", "archived")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)

	err = repo.SetStatus(ctx, "missing", domain.OrgStatusSuspended)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
}
