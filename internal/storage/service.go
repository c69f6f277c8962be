// Package storage scopes every blob operation to the caller's organization and gates it
// on the caller's role before delegating to a backend.
package storage

import (
	"context"
	"errors"
	"io"
	"math"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"tenant-storage-core/backend/internal/auditctx"
	membership "tenant-storage-core/backend/internal/membership/domain"
	"tenant-storage-core/backend/internal/orgcontext"
	orgdomain "tenant-storage-core/backend/internal/organization/domain"
	"tenant-storage-core/backend/internal/platform/apperr"
	"tenant-storage-core/backend/internal/platform/rbac"
	"tenant-storage-core/backend/internal/storage/backend"
)

const (
	instrumentationName = "tenant-storage-core/storage"

	DefaultCategory       = "general"
	DefaultMaxUploadBytes = 50 << 20
	DefaultSignedURLTTL   = time.Hour
)

// DefaultDeniedExtensions are directly executable file types.
var DefaultDeniedExtensions = []string{".exe", ".bat", ".cmd", ".com", ".scr", ".pif"}

// Required roles per operation.
var (
	uploadRoles = membership.AdminOrManager
	deleteRoles = membership.AdminOrManager
	readRoles   = membership.AnyMember
	usageRoles  = membership.AdminOrManager
)

// OrgResolver resolves the organization for a request.
type OrgResolver interface {
	Resolve(ctx context.Context, req orgcontext.Request) (*orgdomain.Org, error)
}

// Options tunes a Service. Zero values take the defaults.
type Options struct {
	MaxUploadBytes   int64
	DeniedExtensions []string
	SignedURLTTL     time.Duration
	MaxPathDepth     int
	// StrictUsage makes UsageStats fail when any object cannot be measured instead of
	// returning partial totals.
	StrictUsage bool
	// ScratchFS holds uploads while their size is checked. Defaults to the OS filesystem.
	ScratchFS afero.Fs

	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Service is the tenant-scoped storage API. The acting identity is read from ctx.
type Service struct {
	backend  backend.Backend
	resolver OrgResolver
	rbac     *rbac.Evaluator
	scoper   Scoper

	maxUpload int64
	denied    map[string]bool
	urlTTL    time.Duration
	strict    bool
	scratch   afero.Fs

	log    *zap.Logger
	tracer trace.Tracer
	ops    metric.Int64Counter
}

// NewService returns a Service over b.
func NewService(b backend.Backend, resolver OrgResolver, evaluator *rbac.Evaluator, opts Options) (*Service, error) {
	if b == nil || resolver == nil || evaluator == nil {
		return nil, apperr.Configuration("storage.NewService", "backend, resolver and evaluator are required")
	}
	s := &Service{
		backend:   b,
		resolver:  resolver,
		rbac:      evaluator,
		scoper:    Scoper{MaxDepth: opts.MaxPathDepth},
		maxUpload: opts.MaxUploadBytes,
		urlTTL:    opts.SignedURLTTL,
		strict:    opts.StrictUsage,
		scratch:   opts.ScratchFS,
		log:       opts.Logger,
	}
	if s.scratch == nil {
		s.scratch = afero.NewOsFs()
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	if s.urlTTL <= 0 {
		s.urlTTL = DefaultSignedURLTTL
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	denied := opts.DeniedExtensions
	if denied == nil {
		denied = DefaultDeniedExtensions
	}
	s.denied = make(map[string]bool, len(denied))
	for _, ext := range denied {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.denied[ext] = true
	}

	tp, mp := opts.TracerProvider, opts.MeterProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	s.tracer = tp.Tracer(instrumentationName)
	ops, err := mp.Meter(instrumentationName).Int64Counter("storage.operations",
		metric.WithDescription("Storage operations by operation and outcome."))
	if err != nil {
		return nil, err
	}
	s.ops = ops
	return s, nil
}

// FileInfo describes a stored object as returned to callers.
type FileInfo struct {
	Path         string
	Name         string
	Size         int64
	ContentType  string
	CreatedTime  time.Time
	ModifiedTime time.Time
	URL          string
}

// UploadInput describes an upload. When Path is empty the object is stored at
// <Category>/<random id><extension of Name>.
type UploadInput struct {
	Name        string
	Category    string
	Path        string
	ContentType string
	// Size is the declared size, or -1 when unknown. The body is measured regardless.
	Size     int64
	Body     io.Reader
	Metadata map[string]string
}

// Listing is the result of List. Skipped counts files whose details could not be read.
type Listing struct {
	Dirs    []string
	Files   []FileInfo
	Skipped int
}

// Usage summarizes an organization's stored bytes. Partial is set when some objects could
// not be measured; Skipped counts them.
type Usage struct {
	OrgID      string
	OrgName    string
	TotalBytes int64
	TotalMB    float64
	FileCount  int
	Partial    bool
	Skipped    int
}

// Upload stores a file. ADMIN or MANAGER.
func (s *Service) Upload(ctx context.Context, orgID string, in UploadInput) (info *FileInfo, err error) {
	ctx, c := s.start(ctx, "upload", in.Path)
	defer func() { c.end(err) }()

	org, err := s.authorize(ctx, c, orgID, uploadRoles)
	if err != nil {
		return nil, err
	}
	if err := s.validateUpload(c.op, in); err != nil {
		return nil, err
	}
	raw := in.Path
	if raw == "" {
		category := strings.Trim(in.Category, "/")
		if category == "" {
			category = DefaultCategory
		}
		raw = category + "/" + uuid.New().String() + strings.ToLower(path.Ext(in.Name))
	}
	if s.denied[strings.ToLower(path.Ext(raw))] {
		return nil, apperr.Validation(c.op, "file type is not allowed")
	}
	canonical, err := s.scoper.Scope(raw, org.ID)
	if err != nil {
		return nil, err
	}
	c.path = canonical

	body, release, err := s.spool(in.Body)
	if errors.Is(err, errTooLarge) {
		return nil, apperr.Validation(c.op, "file exceeds maximum upload size")
	}
	if err != nil {
		return nil, apperr.Internal(c.op, err)
	}
	defer release()

	stored, err := s.backend.Save(ctx, canonical, body, backend.SaveOptions{ContentType: in.ContentType, Metadata: in.Metadata})
	if err != nil {
		return nil, s.translate(c.op, err)
	}
	return s.describe(ctx, c.op, stored)
}

// DownloadURL returns a signed URL for an existing object. Any member.
// A non-positive ttl uses the configured default.
func (s *Service) DownloadURL(ctx context.Context, orgID, raw string, ttl time.Duration) (u string, err error) {
	ctx, c := s.start(ctx, "download_url", raw)
	defer func() { c.end(err) }()

	canonical, err := s.scopeFor(ctx, c, orgID, raw, readRoles)
	if err != nil {
		return "", err
	}
	ok, err := s.backend.Exists(ctx, canonical)
	if err != nil {
		return "", s.translate(c.op, err)
	}
	if !ok {
		return "", apperr.NotFound(c.op, "file not found")
	}
	if ttl <= 0 {
		ttl = s.urlTTL
	}
	u, err = s.backend.SignedURL(ctx, canonical, ttl)
	if err != nil {
		return "", s.translate(c.op, err)
	}
	return u, nil
}

// Open streams an object's content. Any member. The request layer uses it to serve
// signed URLs issued by providers without native URL signing. The caller closes the reader.
func (s *Service) Open(ctx context.Context, orgID, raw string) (rc io.ReadCloser, err error) {
	ctx, c := s.start(ctx, "open", raw)
	defer func() { c.end(err) }()

	canonical, err := s.scopeFor(ctx, c, orgID, raw, readRoles)
	if err != nil {
		return nil, err
	}
	rc, err = s.backend.Open(ctx, canonical)
	if err != nil {
		return nil, s.translate(c.op, err)
	}
	return rc, nil
}

// Delete removes an object. ADMIN or MANAGER.
func (s *Service) Delete(ctx context.Context, orgID, raw string) (err error) {
	ctx, c := s.start(ctx, "delete", raw)
	defer func() { c.end(err) }()

	canonical, err := s.scopeFor(ctx, c, orgID, raw, deleteRoles)
	if err != nil {
		return err
	}
	deleted, err := s.backend.Delete(ctx, canonical)
	if err != nil {
		return s.translate(c.op, err)
	}
	if !deleted {
		return apperr.NotFound(c.op, "file not found")
	}
	return nil
}

// Info returns an object's details. Any member.
func (s *Service) Info(ctx context.Context, orgID, raw string) (info *FileInfo, err error) {
	ctx, c := s.start(ctx, "info", raw)
	defer func() { c.end(err) }()

	canonical, err := s.scopeFor(ctx, c, orgID, raw, readRoles)
	if err != nil {
		return nil, err
	}
	return s.describe(ctx, c.op, canonical)
}

// List returns the directories and files directly under category/dir. Both may be empty;
// together they name a directory relative to the organization root. Any member.
func (s *Service) List(ctx context.Context, orgID, category, dir string) (l *Listing, err error) {
	rel := category
	if dir != "" {
		if rel != "" {
			rel += "/"
		}
		rel += dir
	}
	ctx, c := s.start(ctx, "list", rel)
	defer func() { c.end(err) }()

	org, err := s.authorize(ctx, c, orgID, readRoles)
	if err != nil {
		return nil, err
	}
	canonical, err := s.scoper.ScopeDir(rel, org.ID)
	if err != nil {
		return nil, err
	}
	c.path = canonical

	dirs, files, err := s.backend.List(ctx, canonical)
	if err != nil {
		return nil, s.translate(c.op, err)
	}
	l = &Listing{Dirs: dirs, Files: make([]FileInfo, 0, len(files))}
	for _, name := range files {
		fi, err := s.describe(ctx, c.op, canonical+"/"+name)
		if err != nil {
			l.Skipped++
			s.log.Warn("storage: skipping unreadable file",
				zap.String("org_id", org.ID),
				zap.String("path", canonical+"/"+name),
				zap.Error(err),
			)
			continue
		}
		l.Files = append(l.Files, *fi)
	}
	return l, nil
}

// UsageStats walks the organization's tree and totals object sizes. ADMIN or MANAGER.
// Objects that cannot be measured are skipped and reported through Partial and Skipped,
// or, with StrictUsage, fail the call.
func (s *Service) UsageStats(ctx context.Context, orgID string) (u *Usage, err error) {
	ctx, c := s.start(ctx, "usage_stats", "")
	defer func() { c.end(err) }()

	org, err := s.authorize(ctx, c, orgID, usageRoles)
	if err != nil {
		return nil, err
	}
	root, err := s.scoper.ScopeDir("", org.ID)
	if err != nil {
		return nil, err
	}
	c.path = root

	u = &Usage{OrgID: org.ID, OrgName: org.Name}
	var skipped error
	if err := s.walk(ctx, root, u, &skipped, true); err != nil {
		return nil, s.translate(c.op, err)
	}
	if skipped != nil {
		if s.strict {
			return nil, apperr.Wrap(apperr.KindInternal, c.op, "usage could not be computed for every file", skipped)
		}
		u.Partial = true
		s.log.Warn("storage: usage stats are partial",
			zap.String("org_id", org.ID),
			zap.Int("skipped", u.Skipped),
			zap.Error(skipped),
		)
	}
	u.TotalMB = math.Round(float64(u.TotalBytes)/(1<<20)*100) / 100
	return u, nil
}

func (s *Service) walk(ctx context.Context, dir string, u *Usage, skipped *error, root bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dirs, files, err := s.backend.List(ctx, dir)
	if err != nil {
		if root {
			return err
		}
		u.Skipped++
		*skipped = multierr.Append(*skipped, err)
		return nil
	}
	for _, name := range files {
		size, err := s.backend.Size(ctx, dir+"/"+name)
		if err != nil {
			u.Skipped++
			*skipped = multierr.Append(*skipped, err)
			continue
		}
		u.TotalBytes += size
		u.FileCount++
	}
	for _, d := range dirs {
		if err := s.walk(ctx, dir+"/"+d, u, skipped, false); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) validateUpload(op string, in UploadInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperr.Validation(op, "file name is required")
	}
	if in.Body == nil {
		return apperr.Validation(op, "file content is required")
	}
	if in.Size > s.maxUpload {
		return apperr.Validation(op, "file exceeds maximum upload size")
	}
	if s.denied[strings.ToLower(path.Ext(name))] {
		return apperr.Validation(op, "file type is not allowed")
	}
	return nil
}

func (s *Service) authorize(ctx context.Context, c *call, orgID string, roles membership.Roles) (*orgdomain.Org, error) {
	id := auditctx.FromContext(ctx)
	org, err := s.resolver.Resolve(ctx, orgcontext.Request{Identity: id, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if org != nil {
		c.orgID = org.ID
	}
	if err := s.rbac.Authorize(ctx, "storage."+c.op, id, roles, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *Service) scopeFor(ctx context.Context, c *call, orgID, raw string, roles membership.Roles) (string, error) {
	org, err := s.authorize(ctx, c, orgID, roles)
	if err != nil {
		return "", err
	}
	canonical, err := s.scoper.Scope(raw, org.ID)
	if err != nil {
		return "", err
	}
	c.path = canonical
	return canonical, nil
}

func (s *Service) describe(ctx context.Context, op, canonical string) (*FileInfo, error) {
	meta, err := s.backend.Metadata(ctx, canonical)
	if err != nil {
		return nil, s.translate(op, err)
	}
	u, err := s.backend.SignedURL(ctx, canonical, s.urlTTL)
	if err != nil {
		return nil, s.translate(op, err)
	}
	return &FileInfo{
		Path:         canonical,
		Name:         path.Base(canonical),
		Size:         meta.Size,
		ContentType:  meta.ContentType,
		CreatedTime:  meta.CreatedTime,
		ModifiedTime: meta.ModifiedTime,
		URL:          u,
	}, nil
}

// translate maps backend failures onto the error taxonomy.
func (s *Service) translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, backend.ErrNotFound) {
		return apperr.Wrap(apperr.KindNotFound, op, "file not found", err)
	}
	return apperr.Internal(op, err)
}

// call carries the log and telemetry fields of one operation.
type call struct {
	s     *Service
	ctx   context.Context
	span  trace.Span
	op    string
	user  string
	orgID string
	path  string
}

func (s *Service) start(ctx context.Context, op, rawPath string) (context.Context, *call) {
	ctx, span := s.tracer.Start(ctx, "storage."+op)
	return ctx, &call{s: s, ctx: ctx, span: span, op: op, user: auditctx.FromContext(ctx).ID(), path: rawPath}
}

// end emits the single log line, metric point and span status for the call.
func (c *call) end(err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	fields := []zap.Field{
		zap.String("user_id", c.user),
		zap.String("org_id", c.orgID),
		zap.String("operation", c.op),
		zap.String("path", c.path),
		zap.String("outcome", outcome),
	}
	switch apperr.KindOf(err) {
	case "":
		c.s.log.Info("storage operation", fields...)
	case apperr.KindInternal, apperr.KindConfiguration:
		c.s.log.Error("storage operation", append(fields, zap.Error(err))...)
	default:
		c.s.log.Warn("storage operation", append(fields, zap.Error(err))...)
	}

	attrs := []attribute.KeyValue{attribute.String("operation", c.op), attribute.String("outcome", outcome)}
	c.s.ops.Add(c.ctx, 1, metric.WithAttributes(attrs...))
	c.span.SetAttributes(append(attrs, attribute.String("org_id", c.orgID))...)
	if err != nil {
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, outcome)
	}
	c.span.End()
}

// spool copies body to a scratch file, failing with errTooLarge past the upload limit.
// Nothing reaches the backend until the whole body fits, so a rejected upload never
// truncates an object already stored at the target path.
func (s *Service) spool(body io.Reader) (afero.File, func(), error) {
	f, err := afero.TempFile(s.scratch, "", "upload-")
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		_ = f.Close()
		_ = s.scratch.Remove(f.Name())
	}
	if _, err := io.Copy(f, &limitedReader{r: body, remaining: s.maxUpload}); err != nil {
		release()
		return nil, nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		release()
		return nil, nil, err
	}
	return f, release, nil
}

// limitedReader fails once more than remaining bytes have been read.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

var errTooLarge = errors.New("storage: upload exceeds size limit")

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, errTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, errTooLarge
	}
	return n, err
}
