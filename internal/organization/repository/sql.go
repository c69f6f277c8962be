package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"tenant-storage-core/backend/internal/db"
	"tenant-storage-core/backend/internal/organization/domain"
	"tenant-storage-core/backend/internal/platform/apperr"
)

var orgColumns = []string{"id", "name", "status", "created_at", "updated_at"}

type SQLRepository struct {
	db *sqlx.DB
}

// NewSQLRepository returns an organization repository that uses the given db for persistence.
func NewSQLRepository(conn *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: conn}
}

// GetOrganizationByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *SQLRepository) GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error) {
	query, args, err := sq.Select(orgColumns...).From("organizations").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var o domain.Org
	if err := r.db.GetContext(ctx, &o, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// CreateOrganization validates and persists the organization. The organization must have ID set.
func (r *SQLRepository) CreateOrganization(ctx context.Context, o *domain.Org) error {
	if err := o.Validate(); err != nil {
		return apperr.Validation("organization.Create", err.Error())
	}
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	query, args, err := sq.Insert("organizations").Columns(orgColumns...).
		Values(o.ID, o.Name, o.Status, o.CreatedAt, o.UpdatedAt).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Validation("organization.Create", "organization already exists")
		}
		return err
	}
	return nil
}

// UpdateOrganization updates name and status of an existing organization.
func (r *SQLRepository) UpdateOrganization(ctx context.Context, o *domain.Org) error {
	if err := o.Validate(); err != nil {
		return apperr.Validation("organization.Update", err.Error())
	}
	o.UpdatedAt = time.Now().UTC()
	query, args, err := sq.Update("organizations").
		Set("name", o.Name).Set("status", o.Status).Set("updated_at", o.UpdatedAt).
		Where(sq.Eq{"id": o.ID}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("organization.Update", "organization not found")
	}
	return nil
}

// SetStatus changes only the status column.
func (r *SQLRepository) SetStatus(ctx context.Context, id string, status domain.OrgStatus) error {
	if status != domain.OrgStatusActive && status != domain.OrgStatusSuspended {
		return apperr.Validation("organization.SetStatus", "status must be active or suspended")
	}
	query, args, err := sq.Update("organizations").
		Set("status", status).Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("organization.SetStatus", "organization not found")
	}
	return nil
}
