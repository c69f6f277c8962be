package domain

import (
	"errors"
	"time"

	"tenant-storage-core/backend/internal/pii"
)

// User is the core user entity. Users are global; tenancy comes from memberships.
type User struct {
	ID        string     `db:"id"`
	Email     string     `db:"email"`
	FullName  string     `db:"full_name"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// Manifest declares the persisted fields of User and which of them are PII.
var Manifest = pii.Manifest{
	Type:   "user",
	Fields: []string{"id", "email", "full_name", "created_at", "updated_at", "deleted_at"},
	PII:    []string{"email", "full_name"},
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	return nil
}
