package main

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"tenant-storage-core/backend/internal/db"
	membership "tenant-storage-core/backend/internal/membership/domain"
	membershiprepo "tenant-storage-core/backend/internal/membership/repository"
	orgdomain "tenant-storage-core/backend/internal/organization/domain"
	orgrepo "tenant-storage-core/backend/internal/organization/repository"
)

const (
	devOrgID    = "dev-org-001"
	devOrg2ID   = "dev-org-002"
	devAdminID  = "dev-user-001"
	devViewerID = "dev-user-002"
)

type seedUser struct {
	id, email, name string
}

type seedMembership struct {
	id, userID, orgID string
	role              membership.Role
	isDefault         bool
}

// seedCmd inserts development sample data. Idempotent: it does nothing if the dev
// organization already exists.
func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert development users, organizations and memberships",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := db.Open(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer conn.Close()
			if strings.HasPrefix(cfg.DatabaseURL, "sqlite://") {
				if _, err := conn.Exec(db.SQLiteSchema); err != nil {
					return err
				}
			}
			seeded, err := seed(cmd.Context(), conn)
			if err != nil {
				return err
			}
			if !seeded {
				cmd.Println("dev data already present")
				return nil
			}
			cmd.Printf("seeded %s (admin %s) and %s (viewer %s)\n", devOrgID, devAdminID, devOrg2ID, devViewerID)
			return nil
		},
	}
}

func seed(ctx context.Context, conn *sqlx.DB) (bool, error) {
	orgs := orgrepo.NewSQLRepository(conn)
	existing, err := orgs.GetOrganizationByID(ctx, devOrgID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	now := time.Now().UTC()
	for _, u := range []seedUser{
		{devAdminID, "dev@example.com", "Dev Admin"},
		{devViewerID, "member@example.com", "Dev Member"},
	} {
		query, args, err := sq.Insert("users").
			Columns("id", "email", "full_name", "created_at", "updated_at").
			Values(u.id, u.email, u.name, now, now).
			ToSql()
		if err != nil {
			return false, err
		}
		if _, err := conn.ExecContext(ctx, conn.Rebind(query), args...); err != nil && !db.IsUniqueViolation(err) {
			return false, err
		}
	}

	for _, o := range []*orgdomain.Org{
		{ID: devOrgID, Name: "Dev Org", Status: orgdomain.OrgStatusActive},
		{ID: devOrg2ID, Name: "Second Org", Status: orgdomain.OrgStatusActive},
	} {
		if err := orgs.CreateOrganization(ctx, o); err != nil {
			return false, err
		}
	}

	members := membershiprepo.NewSQLRepository(conn)
	for _, m := range []seedMembership{
		{"dev-membership-001", devAdminID, devOrgID, membership.RoleAdmin, true},
		{"dev-membership-002", devViewerID, devOrgID, membership.RoleViewer, true},
		{"dev-membership-003", devAdminID, devOrg2ID, membership.RoleManager, false},
	} {
		if err := members.CreateMembership(ctx, &membership.Membership{
			ID: m.id, UserID: m.userID, OrgID: m.orgID, Role: m.role, IsDefault: m.isDefault,
		}); err != nil {
			return false, err
		}
	}
	return true, nil
}
