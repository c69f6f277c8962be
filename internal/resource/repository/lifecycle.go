// Package repository implements the soft-delete lifecycle shared by tenant-owned tables.
package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/benbjohnson/clock"
	"github.com/jmoiron/sqlx"

	"tenant-storage-core/backend/internal/platform/apperr"
	"tenant-storage-core/backend/internal/resource/domain"
)

// Lifecycle performs tombstone writes and builds mode-aware reads for one table.
// Every statement is restricted to a single organization.
type Lifecycle struct {
	db    *sqlx.DB
	table string
	clock clock.Clock
}

// NewLifecycle returns a Lifecycle for table. A nil clk uses the wall clock.
func NewLifecycle(conn *sqlx.DB, table string, clk clock.Clock) *Lifecycle {
	if clk == nil {
		clk = clock.New()
	}
	return &Lifecycle{db: conn, table: table, clock: clk}
}

// Select returns a select builder over the table filtered by org and read mode.
func (l *Lifecycle) Select(orgID string, mode domain.ReadMode, columns ...string) sq.SelectBuilder {
	b := sq.Select(columns...).From(l.table).Where(sq.Eq{domain.FieldOrgID: orgID})
	return ApplyMode(b, mode)
}

// ApplyMode adds the tombstone predicate for mode to b.
func ApplyMode(b sq.SelectBuilder, mode domain.ReadMode) sq.SelectBuilder {
	switch mode {
	case domain.WithDeleted:
		return b
	case domain.DeletedOnly:
		return b.Where(sq.NotEq{domain.FieldDeletedAt: nil})
	default:
		return b.Where(sq.Eq{domain.FieldDeletedAt: nil})
	}
}

// SoftDelete sets deleted_at on the live row and nothing else. The audit hook is not run,
// so updated_by and updated_at keep their previous values. On success b.DeletedAt is set.
func (l *Lifecycle) SoftDelete(ctx context.Context, b *domain.Base) error {
	const op = "resource.SoftDelete"
	now := l.clock.Now().UTC()
	query, args, err := sq.Update(l.table).
		Set(domain.FieldDeletedAt, now).
		Where(sq.Eq{"id": b.ID, domain.FieldOrgID: b.OrgID, domain.FieldDeletedAt: nil}).ToSql()
	if err != nil {
		return apperr.Internal(op, err)
	}
	if err := l.execOne(ctx, op, query, args); err != nil {
		return err
	}
	b.DeletedAt = &now
	return nil
}

// Restore clears the tombstone on a soft-deleted row. Like SoftDelete it is a narrow write.
func (l *Lifecycle) Restore(ctx context.Context, b *domain.Base) error {
	const op = "resource.Restore"
	query, args, err := sq.Update(l.table).
		Set(domain.FieldDeletedAt, nil).
		Where(sq.And{sq.Eq{"id": b.ID, domain.FieldOrgID: b.OrgID}, sq.NotEq{domain.FieldDeletedAt: nil}}).ToSql()
	if err != nil {
		return apperr.Internal(op, err)
	}
	if err := l.execOne(ctx, op, query, args); err != nil {
		return err
	}
	b.DeletedAt = nil
	return nil
}

// HardDelete removes the row regardless of its tombstone.
func (l *Lifecycle) HardDelete(ctx context.Context, orgID, id string) error {
	const op = "resource.HardDelete"
	query, args, err := sq.Delete(l.table).Where(sq.Eq{"id": id, domain.FieldOrgID: orgID}).ToSql()
	if err != nil {
		return apperr.Internal(op, err)
	}
	return l.execOne(ctx, op, query, args)
}

// Now returns the lifecycle clock's current UTC time.
func (l *Lifecycle) Now() time.Time { return l.clock.Now().UTC() }

// DB exposes the handle so table repositories share one connection.
func (l *Lifecycle) DB() *sqlx.DB { return l.db }

func (l *Lifecycle) execOne(ctx context.Context, op, query string, args []interface{}) error {
	res, err := l.db.ExecContext(ctx, l.db.Rebind(query), args...)
	if err != nil {
		return apperr.Internal(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(op, err)
	}
	if n == 0 {
		return apperr.NotFound(op, "resource not found")
	}
	return nil
}
