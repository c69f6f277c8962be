package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-storage-core/backend/internal/platform/apperr"
)

func TestRegisterAndNew(t *testing.T) {
	var got Config
	Register("test-factory", func(_ context.Context, cfg Config) (Backend, error) {
		got = cfg
		return nil, nil
	})
	assert.Contains(t, Providers(), "test-factory")

	_, err := New(context.Background(), Config{Provider: "test-factory", Bucket: "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", got.Bucket)
	assert.NotNil(t, got.Clock, "New must default the clock")
}

func TestRegister_DuplicatePanics(t *testing.T) {
	Register("test-dup", func(context.Context, Config) (Backend, error) { return nil, nil })
	assert.Panics(t, func() {
		Register("test-dup", func(context.Context, Config) (Backend, error) { return nil, nil })
	})
}

func TestNew_UnknownProviderIsConfiguration(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "gopher-cloud"})
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration), "got %v", err)
}

func TestNew_OpenFailureIsConfiguration(t *testing.T) {
	boom := errors.New("bad credentials")
	Register("test-fail", func(context.Context, Config) (Backend, error) { return nil, boom })
	_, err := New(context.Background(), Config{Provider: "test-fail"})
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration))
	assert.ErrorIs(t, err, boom)
}
