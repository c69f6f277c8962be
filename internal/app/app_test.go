package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-storage-core/backend/internal/auditctx"
	"tenant-storage-core/backend/internal/config"
	"tenant-storage-core/backend/internal/db/dbtest"
	orgdomain "tenant-storage-core/backend/internal/organization/domain"
	identity "tenant-storage-core/backend/internal/identity/domain"
	membership "tenant-storage-core/backend/internal/membership/domain"
	"tenant-storage-core/backend/internal/pii"
	"tenant-storage-core/backend/internal/platform/apperr"
	projectservice "tenant-storage-core/backend/internal/project/service"
	"tenant-storage-core/backend/internal/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		GRPCAddr:               ":0",
		LogFormat:              "json",
		StorageProvider:        "memory",
		MaxUploadBytes:         1 << 20,
		DeniedUploadExtensions: ".exe",
		SignedURLTTLRaw:        "10m",
		MaxPathDepth:           10,
		PIIFieldNames:          strings.Join(pii.DefaultPolicy.Known, ","),
		PIIAmbiguousFieldNames: strings.Join(pii.DefaultPolicy.Ambiguous, ","),
	}
}

func TestNew_WiresCore(t *testing.T) {
	conn := dbtest.Open(t)
	dbtest.SeedUser(t, conn, "u-admin", "admin@example.com")
	dbtest.SeedOrg(t, conn, "org-a", "Acme", "active")

	ctx := context.Background()
	core, err := New(ctx, testConfig(), conn, nil)
	require.NoError(t, err)
	require.NoError(t, core.Memberships.CreateMembership(ctx, &membership.Membership{
		ID: "m1", UserID: "u-admin", OrgID: "org-a", Role: membership.RoleAdmin, IsDefault: true,
	}))

	var uploaded *storage.FileInfo
	err = auditctx.Run(ctx, identity.Authenticated("u-admin", ""), func(ctx context.Context) error {
		p, err := core.Projects.Create(ctx, "", projectservice.CreateInput{Title: "Launch"})
		if err != nil {
			return err
		}
		uploaded, err = core.Storage.Upload(ctx, "", storage.UploadInput{
			Name: "plan.txt", Category: "projects/" + p.ID, Size: 4, Body: strings.NewReader("plan"),
		})
		return err
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uploaded.Path, "orgs/org-a/projects/"), uploaded.Path)

	_, err = core.Storage.Upload(ctx, "org-a", storage.UploadInput{Name: "x.txt", Size: 1, Body: strings.NewReader("x")})
	assert.True(t, apperr.IsKind(err, apperr.KindAuthenticationRequired), "got %v", err)

	assert.Equal(t, []string{"membership", "organization", "project", "user"}, core.Manifests.Types())

	// suspended tenants stop resolving, so every operation is denied
	require.NoError(t, core.Organizations.SetStatus(ctx, "org-a", orgdomain.OrgStatusSuspended))
	err = auditctx.Run(ctx, identity.Authenticated("u-admin", ""), func(ctx context.Context) error {
		_, err := core.Storage.Info(ctx, "org-a", uploaded.Path)
		return err
	})
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied), "got %v", err)
}

func TestNew_ConfigurationFailures(t *testing.T) {
	conn := dbtest.Open(t)

	badPII := testConfig()
	badPII.PIIFieldNames = "email,status"
	_, err := New(context.Background(), badPII, conn, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration), "got %v", err)

	badProvider := testConfig()
	badProvider.StorageProvider = "ftp"
	_, err = New(context.Background(), badProvider, conn, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration), "got %v", err)
}
