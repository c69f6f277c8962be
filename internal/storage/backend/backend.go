// Package backend defines the blob storage interface the storage service talks to, and a
// registry of providers keyed by configuration name.
//
// Paths handed to a Backend are always canonical tenant paths; providers never see
// caller-supplied paths.
package backend

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned (possibly wrapped) when an object does not exist.
var ErrNotFound = errors.New("backend: object not found")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Size         int64
	ContentType  string
	CreatedTime  time.Time
	ModifiedTime time.Time
	Metadata     map[string]string
}

// SaveOptions are optional attributes stored with an object.
type SaveOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Backend is a vendor blob store.
type Backend interface {
	// Save writes r to path, replacing any existing object, and returns the stored path.
	Save(ctx context.Context, path string, r io.Reader, opts SaveOptions) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes path and reports whether it existed.
	Delete(ctx context.Context, path string) (bool, error)
	Exists(ctx context.Context, path string) (bool, error)
	Size(ctx context.Context, path string) (int64, error)
	// SignedURL returns a URL granting read access to path for ttl.
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
	// List returns the names of the immediate sub-directories and files under prefix.
	// Names are relative to prefix. A missing prefix lists as empty.
	List(ctx context.Context, prefix string) (dirs, files []string, err error)
	Metadata(ctx context.Context, path string) (*ObjectInfo, error)
}
