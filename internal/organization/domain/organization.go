package domain

import (
	"errors"
	"time"

	"tenant-storage-core/backend/internal/pii"
)

// Org represents an organization/tenant.
type Org struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Status    OrgStatus `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type OrgStatus string

const (
	OrgStatusActive    OrgStatus = "active"
	OrgStatusSuspended OrgStatus = "suspended"
)

// IsActive reports whether the organization accepts operations.
func (o *Org) IsActive() bool {
	return o != nil && o.Status == OrgStatusActive
}

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
func (o *Org) Validate() error {
	if o.Name == "" {
		return errors.New("name is required")
	}
	if o.Status == "" {
		o.Status = OrgStatusActive
	}
	if o.Status != OrgStatusActive && o.Status != OrgStatusSuspended {
		return errors.New("status must be active or suspended")
	}
	return nil
}

// Manifest declares the persisted fields of Org. Organization names are business data, not PII.
var Manifest = pii.Manifest{
	Type:   "organization",
	Fields: []string{"id", "name", "status", "created_at", "updated_at"},
	PII:    nil,
}
