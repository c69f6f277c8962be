package domain

import (
	"errors"
	"strings"
	"time"

	"tenant-storage-core/backend/internal/pii"
)

// Membership links a user to an organization with a role.
// (UserID, OrgID) is unique, and at most one membership per user has IsDefault set.
type Membership struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	OrgID     string    `db:"org_id"`
	Role      Role      `db:"role"`
	IsDefault bool      `db:"is_default"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Validate validates the membership for persistence. Returns an error describing the first validation failure.
func (m *Membership) Validate() error {
	if m.UserID == "" {
		return errors.New("user_id is required")
	}
	if m.OrgID == "" {
		return errors.New("org_id is required")
	}
	if m.Role == "" {
		m.Role = RoleViewer
	}
	if !m.Role.Valid() {
		return errors.New("role must be one of ADMIN, MANAGER, VIEWER")
	}
	return nil
}

// Role is a flat permission label. Roles are compared by set membership only;
// there is no ordering between them.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleViewer  Role = "VIEWER"
)

// Valid reports whether r is in the closed role vocabulary.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleViewer:
		return true
	}
	return false
}

// ParseRole parses s case-insensitively into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", errors.New("unknown role " + s)
	}
	return r, nil
}

// Roles is a required-role list.
type Roles []Role

// Contains reports whether r is an element of rs.
func (rs Roles) Contains(r Role) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}

// Fixed required-role sets used by the convenience gates.
var (
	AdminOnly      = Roles{RoleAdmin}
	AdminOrManager = Roles{RoleAdmin, RoleManager}
	AnyMember      = Roles{RoleAdmin, RoleManager, RoleViewer}
)

// Manifest declares the persisted fields of Membership.
var Manifest = pii.Manifest{
	Type:   "membership",
	Fields: []string{"id", "user_id", "org_id", "role", "is_default", "created_at", "updated_at"},
}
