package repository

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/benbjohnson/clock"
	"github.com/jmoiron/sqlx"

	"tenant-storage-core/backend/internal/auditctx"
	"tenant-storage-core/backend/internal/db"
	"tenant-storage-core/backend/internal/platform/apperr"
	"tenant-storage-core/backend/internal/project/domain"
	resource "tenant-storage-core/backend/internal/resource/domain"
	resourcerepo "tenant-storage-core/backend/internal/resource/repository"
)

const table = "projects"

var projectColumns = []string{
	"id", "org_id", "title", "description", "status",
	"created_by", "updated_by", "created_at", "updated_at", "deleted_at",
}

// updatable maps column names to their values on p. org_id and created_* are never updated.
func updatable(p *domain.Project) map[string]interface{} {
	return map[string]interface{}{
		"title":       p.Title,
		"description": p.Description,
		"status":      p.Status,
		"updated_by":  p.UpdatedBy,
		"updated_at":  p.UpdatedAt,
	}
}

type SQLRepository struct {
	db *sqlx.DB
	lc *resourcerepo.Lifecycle
}

// NewSQLRepository returns a project repository. A nil clk uses the wall clock.
func NewSQLRepository(conn *sqlx.DB, clk clock.Clock) *SQLRepository {
	return &SQLRepository{db: conn, lc: resourcerepo.NewLifecycle(conn, table, clk)}
}

// Create runs the audit hook for a new row and inserts p.
func (r *SQLRepository) Create(ctx context.Context, p *domain.Project) error {
	const op = "project.Create"
	if err := p.Validate(); err != nil {
		return apperr.Validation(op, err.Error())
	}
	auditctx.BeforeSave(ctx, &p.Base, auditctx.Write{New: true}, r.lc.Now())
	return r.insert(ctx, op, p)
}

// BulkCreate inserts ps in one statement without running the audit hook, so created_by and
// updated_by stay null even when an identity is in ctx. Timestamps are still set.
func (r *SQLRepository) BulkCreate(ctx context.Context, ps []*domain.Project) error {
	const op = "project.BulkCreate"
	if len(ps) == 0 {
		return nil
	}
	now := r.lc.Now()
	ins := sq.Insert(table).Columns(projectColumns...)
	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return apperr.Validation(op, err.Error())
		}
		p.CreatedAt, p.UpdatedAt = now, now
		ins = ins.Values(values(p)...)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return apperr.Internal(op, err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return mapWriteErr(op, err)
	}
	return nil
}

// Update writes p. With no fields it is a full write: the audit hook runs and every
// updatable column is written. With fields, only those columns are written and the hook
// runs only if one of them is an audit column.
func (r *SQLRepository) Update(ctx context.Context, p *domain.Project, fields ...string) error {
	const op = "project.Update"
	if err := p.Validate(); err != nil {
		return apperr.Validation(op, err.Error())
	}
	// p only takes the audit stamp once the row is written.
	next := *p
	auditctx.BeforeSave(ctx, &next.Base, auditctx.Write{Fields: fields}, r.lc.Now())

	cols := updatable(&next)
	set := make(map[string]interface{}, len(cols))
	if len(fields) == 0 {
		set = cols
	} else {
		for _, f := range fields {
			v, ok := cols[f]
			if !ok {
				return apperr.Validation(op, "field "+f+" cannot be updated")
			}
			set[f] = v
		}
	}
	query, args, err := sq.Update(table).SetMap(set).
		Where(sq.Eq{"id": p.ID, "org_id": p.OrgID, "deleted_at": nil}).ToSql()
	if err != nil {
		return apperr.Internal(op, err)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return mapWriteErr(op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound(op, "project not found")
	}
	*p = next
	return nil
}

// Get returns the project or nil when no row matches under mode.
func (r *SQLRepository) Get(ctx context.Context, orgID, id string, mode resource.ReadMode) (*domain.Project, error) {
	query, args, err := r.lc.Select(orgID, mode, projectColumns...).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, apperr.Internal("project.Get", err)
	}
	var p domain.Project
	if err := r.db.GetContext(ctx, &p, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Internal("project.Get", err)
	}
	return &p, nil
}

// List returns the organization's projects under mode, oldest first.
func (r *SQLRepository) List(ctx context.Context, orgID string, mode resource.ReadMode) ([]*domain.Project, error) {
	query, args, err := r.lc.Select(orgID, mode, projectColumns...).OrderBy("created_at", "id").ToSql()
	if err != nil {
		return nil, apperr.Internal("project.List", err)
	}
	var out []*domain.Project
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...); err != nil {
		return nil, apperr.Internal("project.List", err)
	}
	return out, nil
}

func (r *SQLRepository) SoftDelete(ctx context.Context, p *domain.Project) error {
	return r.lc.SoftDelete(ctx, &p.Base)
}

func (r *SQLRepository) Restore(ctx context.Context, p *domain.Project) error {
	return r.lc.Restore(ctx, &p.Base)
}

func (r *SQLRepository) HardDelete(ctx context.Context, orgID, id string) error {
	return r.lc.HardDelete(ctx, orgID, id)
}

func (r *SQLRepository) insert(ctx context.Context, op string, p *domain.Project) error {
	query, args, err := sq.Insert(table).Columns(projectColumns...).Values(values(p)...).ToSql()
	if err != nil {
		return apperr.Internal(op, err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return mapWriteErr(op, err)
	}
	return nil
}

func values(p *domain.Project) []interface{} {
	return []interface{}{
		p.ID, p.OrgID, p.Title, p.Description, p.Status,
		p.CreatedBy, p.UpdatedBy, p.CreatedAt, p.UpdatedAt, p.DeletedAt,
	}
}

func mapWriteErr(op string, err error) error {
	switch {
	case db.IsUniqueViolation(err):
		return apperr.Validation(op, "project already exists")
	case db.IsForeignKeyViolation(err):
		return apperr.Validation(op, "organization or user does not exist")
	}
	return apperr.Internal(op, err)
}
