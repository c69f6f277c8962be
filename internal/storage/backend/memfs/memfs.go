// Package memfs implements the "memory" and "local" storage providers on afero.
// Signed URLs are HMAC tokens that the serving layer verifies with Verify.
package memfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/afero"

	"tenant-storage-core/backend/internal/platform/apperr"
	"tenant-storage-core/backend/internal/storage/backend"
)

const defaultContentType = "application/octet-stream"

func init() {
	backend.Register("memory", openMemory)
	backend.Register("local", openLocal)
}

func openMemory(_ context.Context, cfg backend.Config) (backend.Backend, error) {
	key := cfg.SigningKey
	if key == "" {
		key = "memory"
	}
	return New(afero.NewMemMapFs(), Options{SigningKey: []byte(key), BaseURL: cfg.PublicBaseURL, Clock: cfg.Clock}), nil
}

func openLocal(_ context.Context, cfg backend.Config) (backend.Backend, error) {
	const op = "memfs.openLocal"
	if cfg.LocalRoot == "" {
		return nil, apperr.Configuration(op, "STORAGE_LOCAL_ROOT is required for the local provider")
	}
	if cfg.SigningKey == "" {
		return nil, apperr.Configuration(op, "STORAGE_SIGNING_KEY is required for the local provider")
	}
	if err := os.MkdirAll(cfg.LocalRoot, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	fs := afero.NewBasePathFs(afero.NewOsFs(), cfg.LocalRoot)
	return New(fs, Options{SigningKey: []byte(cfg.SigningKey), BaseURL: cfg.PublicBaseURL, Clock: cfg.Clock}), nil
}

// Options configures an FS.
type Options struct {
	SigningKey []byte
	// BaseURL prefixes signed URLs, e.g. "https://files.example.com". Empty yields relative URLs.
	BaseURL string
	Clock   clock.Clock
}

type attrs struct {
	contentType string
	created     time.Time
	metadata    map[string]string
}

// FS stores objects as files in an afero filesystem.
type FS struct {
	fs     afero.Fs
	signer *Signer
	clock  clock.Clock

	mu    sync.RWMutex
	attrs map[string]attrs
}

// New returns an FS over fs.
func New(fs afero.Fs, opts Options) *FS {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &FS{
		fs:     fs,
		signer: NewSigner(opts.SigningKey, opts.BaseURL, clk),
		clock:  clk,
		attrs:  make(map[string]attrs),
	}
}

// Signer returns the signer used for URLs, for verification by the serving layer.
func (f *FS) Signer() *Signer { return f.signer }

func abs(p string) string {
	return "/" + strings.TrimPrefix(path.Clean("/"+p), "/")
}

func (f *FS) Save(_ context.Context, p string, r io.Reader, opts backend.SaveOptions) (string, error) {
	name := abs(p)
	if err := f.fs.MkdirAll(path.Dir(name), 0o750); err != nil {
		return "", err
	}
	file, err := f.fs.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = f.fs.Remove(name)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	ct := opts.ContentType
	if ct == "" {
		ct = contentTypeFor(name)
	}
	meta := make(map[string]string, len(opts.Metadata))
	for k, v := range opts.Metadata {
		meta[k] = v
	}
	f.mu.Lock()
	f.attrs[name] = attrs{contentType: ct, created: f.clock.Now().UTC(), metadata: meta}
	f.mu.Unlock()
	return p, nil
}

func (f *FS) Open(_ context.Context, p string) (io.ReadCloser, error) {
	file, err := f.fs.Open(abs(p))
	if err != nil {
		return nil, notFound(err)
	}
	st, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if st.IsDir() {
		_ = file.Close()
		return nil, backend.ErrNotFound
	}
	return file, nil
}

func (f *FS) Delete(_ context.Context, p string) (bool, error) {
	name := abs(p)
	st, err := f.fs.Stat(name)
	if err != nil {
		if errors.Is(notFound(err), backend.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if st.IsDir() {
		return false, nil
	}
	if err := f.fs.Remove(name); err != nil {
		return false, err
	}
	f.mu.Lock()
	delete(f.attrs, name)
	f.mu.Unlock()
	return true, nil
}

func (f *FS) Exists(_ context.Context, p string) (bool, error) {
	st, err := f.fs.Stat(abs(p))
	if err != nil {
		if errors.Is(notFound(err), backend.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return !st.IsDir(), nil
}

func (f *FS) Size(ctx context.Context, p string) (int64, error) {
	info, err := f.Metadata(ctx, p)
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

func (f *FS) SignedURL(_ context.Context, p string, ttl time.Duration) (string, error) {
	return f.signer.Sign(strings.TrimPrefix(abs(p), "/"), ttl)
}

func (f *FS) List(_ context.Context, prefix string) ([]string, []string, error) {
	infos, err := afero.ReadDir(f.fs, abs(prefix))
	if err != nil {
		if errors.Is(notFound(err), backend.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	var dirs, files []string
	for _, fi := range infos {
		if fi.IsDir() {
			dirs = append(dirs, fi.Name())
		} else {
			files = append(files, fi.Name())
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)
	return dirs, files, nil
}

func (f *FS) Metadata(_ context.Context, p string) (*backend.ObjectInfo, error) {
	name := abs(p)
	st, err := f.fs.Stat(name)
	if err != nil {
		return nil, notFound(err)
	}
	if st.IsDir() {
		return nil, backend.ErrNotFound
	}
	f.mu.RLock()
	a, ok := f.attrs[name]
	f.mu.RUnlock()
	info := &backend.ObjectInfo{
		Size:         st.Size(),
		ContentType:  contentTypeFor(name),
		CreatedTime:  st.ModTime().UTC(),
		ModifiedTime: st.ModTime().UTC(),
	}
	if ok {
		info.ContentType = a.contentType
		info.CreatedTime = a.created
		info.Metadata = a.metadata
	}
	return info, nil
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return defaultContentType
}

func notFound(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", backend.ErrNotFound, err)
	}
	return err
}
