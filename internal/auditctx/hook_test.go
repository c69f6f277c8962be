package auditctx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identity "tenant-storage-core/backend/internal/identity/domain"
	"tenant-storage-core/backend/internal/resource/domain"
)

func TestBeforeSave_NoIdentityLeavesAuthorsNull(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b := &domain.Base{ID: "r1", OrgID: "org-1"}

	BeforeSave(context.Background(), b, Write{New: true}, now)

	assert.Nil(t, b.CreatedBy)
	assert.Nil(t, b.UpdatedBy)
	assert.Equal(t, now, b.CreatedAt)
	assert.Equal(t, now, b.UpdatedAt)
}

func TestBeforeSave_AnonymousIsNeverStamped(t *testing.T) {
	ctx := WithIdentity(context.Background(), identity.AnonymousIdentity())
	b := &domain.Base{ID: "r1", OrgID: "org-1"}

	BeforeSave(ctx, b, Write{New: true}, time.Now())

	assert.Nil(t, b.CreatedBy)
	assert.Nil(t, b.UpdatedBy)
}

func TestBeforeSave_CreateThenUpdate(t *testing.T) {
	b := &domain.Base{ID: "r1", OrgID: "org-1"}
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	BeforeSave(context.Background(), b, Write{New: true}, created)

	updated := created.Add(time.Hour)
	ctx := WithIdentity(context.Background(), identity.Authenticated("user-x", ""))
	BeforeSave(ctx, b, Write{}, updated)

	require.NotNil(t, b.UpdatedBy)
	assert.Equal(t, "user-x", *b.UpdatedBy)
	assert.Nil(t, b.CreatedBy)
	assert.Equal(t, created, b.CreatedAt)
	assert.Equal(t, updated, b.UpdatedAt)
}

func TestBeforeSave_NewWithIdentityStampsBoth(t *testing.T) {
	ctx := WithIdentity(context.Background(), identity.Authenticated("user-1", ""))
	b := &domain.Base{ID: "r1", OrgID: "org-1"}

	BeforeSave(ctx, b, Write{New: true}, time.Now())

	require.NotNil(t, b.CreatedBy)
	require.NotNil(t, b.UpdatedBy)
	assert.Equal(t, "user-1", *b.CreatedBy)
	assert.Equal(t, "user-1", *b.UpdatedBy)
}

func TestBeforeSave_NarrowWriteSkipsHook(t *testing.T) {
	prev := "user-1"
	prevAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &domain.Base{ID: "r1", OrgID: "org-1", UpdatedBy: &prev, UpdatedAt: prevAt}
	ctx := WithIdentity(context.Background(), identity.Authenticated("user-2", ""))

	BeforeSave(ctx, b, Write{Fields: []string{domain.FieldDeletedAt}}, time.Now())

	assert.Equal(t, "user-1", *b.UpdatedBy)
	assert.Equal(t, prevAt, b.UpdatedAt)
}

func TestWrite_Narrow(t *testing.T) {
	cases := []struct {
		w    Write
		want bool
	}{
		{Write{}, false},
		{Write{Fields: []string{"deleted_at"}}, true},
		{Write{Fields: []string{"title", "status"}}, true},
		{Write{Fields: []string{"title", "updated_by"}}, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.w.Narrow(), "fields %v", c.w.Fields)
	}
}
