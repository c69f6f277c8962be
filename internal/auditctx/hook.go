package auditctx

import (
	"context"
	"time"

	"tenant-storage-core/backend/internal/resource/domain"
)

// Write describes a pending persistence of a tenant-owned resource.
// Fields, when non-empty, restricts the write to those columns.
type Write struct {
	New    bool
	Fields []string
}

// Narrow reports whether the write touches only columns outside the audit set.
func (w Write) Narrow() bool {
	if len(w.Fields) == 0 {
		return false
	}
	for _, f := range w.Fields {
		for _, a := range domain.AuditFields {
			if f == a {
				return false
			}
		}
	}
	return true
}

// BeforeSave stamps provenance on b. It must be called immediately before every
// per-instance write. Narrow writes are left untouched.
//
// created_at/created_by are stamped on new rows; updated_at/updated_by on every full write.
// The *_by columns are set only when the context carries an authenticated identity,
// otherwise they keep their current value (nil for new rows).
func BeforeSave(ctx context.Context, b *domain.Base, w Write, now time.Time) {
	if b == nil || w.Narrow() {
		return
	}
	now = now.UTC()
	id := FromContext(ctx)
	var userID *string
	if id.IsAuthenticated() {
		v := id.ID()
		userID = &v
	}
	if w.New {
		b.CreatedAt = now
		if userID != nil {
			b.CreatedBy = userID
		}
	}
	b.UpdatedAt = now
	if userID != nil {
		b.UpdatedBy = userID
	}
}
