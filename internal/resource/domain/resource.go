// Package domain holds the shape shared by every tenant-owned resource.
package domain

import "time"

// Audit field column names. A write restricted to columns outside this set does not
// run the audit hook.
const (
	FieldCreatedBy = "created_by"
	FieldUpdatedBy = "updated_by"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldDeletedAt = "deleted_at"
	FieldOrgID     = "org_id"
)

// AuditFields lists the columns stamped by the audit hook.
var AuditFields = []string{FieldCreatedBy, FieldUpdatedBy, FieldCreatedAt, FieldUpdatedAt}

// Base is embedded by every tenant-owned resource. OrgID is immutable after creation.
// CreatedBy and UpdatedBy are nil when the write happened without an authenticated identity.
type Base struct {
	ID        string     `db:"id"`
	OrgID     string     `db:"org_id"`
	CreatedBy *string    `db:"created_by"`
	UpdatedBy *string    `db:"updated_by"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// IsDeleted reports whether the resource carries a tombstone.
func (b *Base) IsDeleted() bool {
	return b != nil && b.DeletedAt != nil
}

// OwningOrgID returns the organization the resource belongs to.
func (b *Base) OwningOrgID() string {
	if b == nil {
		return ""
	}
	return b.OrgID
}

// CreatorID returns the creating user id, or "" when unknown.
func (b *Base) CreatorID() string {
	if b == nil || b.CreatedBy == nil {
		return ""
	}
	return *b.CreatedBy
}

// Meta returns b itself so that types embedding Base satisfy Owned.
func (b *Base) Meta() *Base { return b }

// Owned is implemented by every type embedding Base.
type Owned interface {
	Meta() *Base
}

// ReadMode selects which rows a read returns with respect to tombstones.
type ReadMode int

const (
	// Live excludes soft-deleted rows. It is the zero value and the default for every read.
	Live ReadMode = iota
	// WithDeleted returns live and soft-deleted rows. Restoration and audit tooling only.
	WithDeleted
	// DeletedOnly returns soft-deleted rows only.
	DeletedOnly
)

func (m ReadMode) String() string {
	switch m {
	case Live:
		return "live"
	case WithDeleted:
		return "with_deleted"
	case DeletedOnly:
		return "deleted_only"
	}
	return "unknown"
}
