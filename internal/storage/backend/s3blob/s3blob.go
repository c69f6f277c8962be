// Package s3blob implements the "s3" storage provider on aws-sdk-go-v2. S3-compatible
// services (MinIO, GCS interoperability) are reached through S3_ENDPOINT.
package s3blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"tenant-storage-core/backend/internal/platform/apperr"
	"tenant-storage-core/backend/internal/storage/backend"
)

func init() {
	backend.Register("s3", open)
}

func open(ctx context.Context, cfg backend.Config) (backend.Backend, error) {
	if cfg.Bucket == "" {
		return nil, apperr.Configuration("s3blob.open", "STORAGE_BUCKET is required for the s3 provider")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return New(client, cfg.Bucket), nil
}

// API is the subset of *s3.Client used by Bucket.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// Bucket stores objects under keys equal to their canonical paths.
type Bucket struct {
	api     API
	presign *s3.PresignClient
	bucket  string
}

// New returns a Bucket backed by client.
func New(client *s3.Client, bucket string) *Bucket {
	return newBucket(client, s3.NewPresignClient(client), bucket)
}

func newBucket(api API, presign *s3.PresignClient, bucket string) *Bucket {
	return &Bucket{api: api, presign: presign, bucket: bucket}
}

func (b *Bucket) Save(ctx context.Context, path string, r io.Reader, opts backend.SaveOptions) (string, error) {
	body, err := seekable(r)
	if err != nil {
		return "", err
	}
	in := &s3.PutObjectInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(path),
		Body:     body,
		Metadata: opts.Metadata,
	}
	if opts.ContentType != "" {
		in.ContentType = aws.String(opts.ContentType)
	}
	if _, err := b.api.PutObject(ctx, in); err != nil {
		return "", err
	}
	return path, nil
}

func (b *Bucket) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := b.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(path)})
	if err != nil {
		return nil, mapErr(err)
	}
	return out.Body, nil
}

func (b *Bucket) Delete(ctx context.Context, path string) (bool, error) {
	ok, err := b.Exists(ctx, path)
	if err != nil || !ok {
		return false, err
	}
	if _, err := b.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(path)}); err != nil {
		return false, mapErr(err)
	}
	return true, nil
}

func (b *Bucket) Exists(ctx context.Context, path string) (bool, error) {
	_, err := b.head(ctx, path)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *Bucket) Size(ctx context.Context, path string) (int64, error) {
	out, err := b.head(ctx, path)
	if err != nil {
		return 0, err
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (b *Bucket) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	req, err := b.presign.PresignGetObject(ctx,
		&s3.GetObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(path)},
		s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (b *Bucket) List(ctx context.Context, prefix string) ([]string, []string, error) {
	prefix = dirPrefix(prefix)
	p := s3.NewListObjectsV2Paginator(b.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	var dirs, files []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, nil, mapErr(err)
		}
		for _, cp := range page.CommonPrefixes {
			if name := relName(prefix, aws.ToString(cp.Prefix)); name != "" {
				dirs = append(dirs, name)
			}
		}
		for _, obj := range page.Contents {
			if name := relName(prefix, aws.ToString(obj.Key)); name != "" {
				files = append(files, name)
			}
		}
	}
	return dirs, files, nil
}

func (b *Bucket) Metadata(ctx context.Context, path string) (*backend.ObjectInfo, error) {
	out, err := b.head(ctx, path)
	if err != nil {
		return nil, err
	}
	modified := aws.ToTime(out.LastModified)
	return &backend.ObjectInfo{
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		CreatedTime:  modified,
		ModifiedTime: modified,
		Metadata:     out.Metadata,
	}, nil
}

func (b *Bucket) head(ctx context.Context, path string) (*s3.HeadObjectOutput, error) {
	out, err := b.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(path)})
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

// seekable returns r as an io.ReadSeeker, buffering it when needed so that the SDK can
// compute the payload checksum. Upload size is bounded by the storage service.
func seekable(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(buf), nil
}

func dirPrefix(prefix string) string {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// relName strips prefix and any trailing "/" from a listed key.
func relName(prefix, key string) string {
	return strings.TrimSuffix(strings.TrimPrefix(key, prefix), "/")
}

func mapErr(err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return fmt.Errorf("%w: %v", backend.ErrNotFound, err)
	}
	return err
}
