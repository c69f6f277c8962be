package domain

import (
	"errors"

	"tenant-storage-core/backend/internal/pii"
	"tenant-storage-core/backend/internal/resource/domain"
)

// Project is a tenant-owned resource.
type Project struct {
	domain.Base
	Title       string `db:"title"`
	Description string `db:"description"`
	Status      Status `db:"status"`
}

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Manifest declares the persisted fields of Project. Title and description are free text
// and are reported as possible PII at startup.
var Manifest = pii.Manifest{
	Type: "project",
	Fields: []string{
		"id", "org_id", "title", "description", "status",
		"created_by", "updated_by", "created_at", "updated_at", "deleted_at",
	},
}

// Validate validates the project for persistence. Returns an error describing the first validation failure.
func (p *Project) Validate() error {
	if p.OrgID == "" {
		return errors.New("org_id is required")
	}
	if p.Title == "" {
		return errors.New("title is required")
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.Status != StatusActive && p.Status != StatusArchived {
		return errors.New("status must be active or archived")
	}
	return nil
}
