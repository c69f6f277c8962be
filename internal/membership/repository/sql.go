package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"tenant-storage-core/backend/internal/db"
	"tenant-storage-core/backend/internal/membership/domain"
	"tenant-storage-core/backend/internal/platform/apperr"
)

var membershipColumns = []string{"id", "user_id", "org_id", "role", "is_default", "created_at", "updated_at"}

type SQLRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLRepository returns a membership repository that uses the given db for persistence.
func NewSQLRepository(conn *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: conn, now: func() time.Time { return time.Now().UTC() }}
}

func (r *SQLRepository) getOne(ctx context.Context, where sq.Sqlizer) (*domain.Membership, error) {
	query, args, err := sq.Select(membershipColumns...).From("memberships").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	var m domain.Membership
	if err := r.db.GetContext(ctx, &m, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *SQLRepository) list(ctx context.Context, where sq.Sqlizer) ([]*domain.Membership, error) {
	query, args, err := sq.Select(membershipColumns...).From("memberships").Where(where).OrderBy("created_at", "id").ToSql()
	if err != nil {
		return nil, err
	}
	var out []*domain.Membership
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMembershipByID returns the membership for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *SQLRepository) GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

// GetMembershipByUserAndOrg returns the membership for the given user and org, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *SQLRepository) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	return r.getOne(ctx, sq.Eq{"user_id": userID, "org_id": orgID})
}

// GetDefaultMembership returns the user's default membership, or nil if none is flagged.
func (r *SQLRepository) GetDefaultMembership(ctx context.Context, userID string) (*domain.Membership, error) {
	return r.getOne(ctx, sq.Eq{"user_id": userID, "is_default": true})
}

// ListMembershipsByOrg returns all memberships for the given org. Returns (nil, error) only on database errors.
func (r *SQLRepository) ListMembershipsByOrg(ctx context.Context, orgID string) ([]*domain.Membership, error) {
	return r.list(ctx, sq.Eq{"org_id": orgID})
}

// ListMembershipsByUser returns all memberships held by the given user.
func (r *SQLRepository) ListMembershipsByUser(ctx context.Context, userID string) ([]*domain.Membership, error) {
	return r.list(ctx, sq.Eq{"user_id": userID})
}

// CreateMembership validates and persists the membership. The membership must have ID set.
// A duplicate (user, org) pair or a second default membership is a validation error.
func (r *SQLRepository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	const op = "membership.Create"
	if err := m.Validate(); err != nil {
		return apperr.Validation(op, err.Error())
	}
	now := r.now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	query, args, err := sq.Insert("memberships").Columns(membershipColumns...).
		Values(m.ID, m.UserID, m.OrgID, m.Role, m.IsDefault, m.CreatedAt, m.UpdatedAt).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return apperr.Validation(op, "user already has a membership in this organization or already has a default organization")
		case db.IsForeignKeyViolation(err):
			return apperr.Validation(op, "user or organization does not exist")
		}
		return err
	}
	return nil
}

// UpdateRole changes the role of an existing membership and returns the updated row.
func (r *SQLRepository) UpdateRole(ctx context.Context, userID, orgID string, role domain.Role) (*domain.Membership, error) {
	const op = "membership.UpdateRole"
	if !role.Valid() {
		return nil, apperr.Validation(op, "role must be one of ADMIN, MANAGER, VIEWER")
	}
	query, args, err := sq.Update("memberships").
		Set("role", role).Set("updated_at", r.now()).
		Where(sq.Eq{"user_id": userID, "org_id": orgID}).ToSql()
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, apperr.NotFound(op, "membership not found")
	}
	return r.GetMembershipByUserAndOrg(ctx, userID, orgID)
}

// SetDefault flags the (user, org) membership as the user's default and clears the flag on every other
// membership of that user, in one transaction.
func (r *SQLRepository) SetDefault(ctx context.Context, userID, orgID string) (err error) {
	const op = "membership.SetDefault"
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	now := r.now()

	clearQ, args, err := sq.Update("memberships").Set("is_default", false).Set("updated_at", now).
		Where(sq.And{sq.Eq{"user_id": userID, "is_default": true}, sq.NotEq{"org_id": orgID}}).ToSql()
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, tx.Rebind(clearQ), args...); err != nil {
		return err
	}

	setQ, args, err := sq.Update("memberships").Set("is_default", true).Set("updated_at", now).
		Where(sq.Eq{"user_id": userID, "org_id": orgID}).ToSql()
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(setQ), args...)
	if err != nil {
		return err
	}
	if n, rerr := res.RowsAffected(); rerr == nil && n == 0 {
		err = apperr.NotFound(op, "membership not found")
		return err
	}
	return tx.Commit()
}

// DeleteByUserAndOrg removes the membership for the given user and org.
func (r *SQLRepository) DeleteByUserAndOrg(ctx context.Context, userID, orgID string) error {
	query, args, err := sq.Delete("memberships").Where(sq.Eq{"user_id": userID, "org_id": orgID}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("membership.Delete", "membership not found")
	}
	return nil
}
