// Package azureblob implements the "azure" storage provider on the azblob SDK.
package azureblob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"tenant-storage-core/backend/internal/platform/apperr"
	"tenant-storage-core/backend/internal/storage/backend"
)

func init() {
	backend.Register("azure", open)
}

func open(_ context.Context, cfg backend.Config) (backend.Backend, error) {
	const op = "azureblob.open"
	if cfg.Bucket == "" {
		return nil, apperr.Configuration(op, "STORAGE_BUCKET (container) is required for the azure provider")
	}
	if cfg.AzureAccountName == "" || cfg.AzureAccountKey == "" {
		return nil, apperr.Configuration(op, "AZURE_ACCOUNT_NAME and AZURE_ACCOUNT_KEY are required for the azure provider")
	}
	serviceURL := cfg.AzureServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AzureAccountName)
	}
	cred, err := azblob.NewSharedKeyCredential(cfg.AzureAccountName, cfg.AzureAccountKey)
	if err != nil {
		return nil, err
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, err
	}
	return New(client, cfg.Bucket), nil
}

// Container stores objects as blobs named by their canonical paths.
type Container struct {
	client    *azblob.Client
	container *container.Client
	name      string
}

// New returns a Container for the named container of client.
func New(client *azblob.Client, name string) *Container {
	return &Container{client: client, container: client.ServiceClient().NewContainerClient(name), name: name}
}

func (c *Container) Save(ctx context.Context, path string, r io.Reader, opts backend.SaveOptions) (string, error) {
	upload := &azblob.UploadStreamOptions{Metadata: toAzureMetadata(opts.Metadata)}
	if opts.ContentType != "" {
		ct := opts.ContentType
		upload.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &ct}
	}
	if _, err := c.client.UploadStream(ctx, c.name, path, r, upload); err != nil {
		return "", err
	}
	return path, nil
}

func (c *Container) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	resp, err := c.client.DownloadStream(ctx, c.name, path, nil)
	if err != nil {
		return nil, mapErr(err)
	}
	return resp.Body, nil
}

func (c *Container) Delete(ctx context.Context, path string) (bool, error) {
	if _, err := c.client.DeleteBlob(ctx, c.name, path, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Container) Exists(ctx context.Context, path string) (bool, error) {
	_, err := c.container.NewBlobClient(path).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Container) Size(ctx context.Context, path string) (int64, error) {
	info, err := c.Metadata(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

func (c *Container) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	return c.container.NewBlobClient(path).GetSASURL(sas.BlobPermissions{Read: true}, time.Now().UTC().Add(ttl), nil)
}

func (c *Container) List(ctx context.Context, prefix string) ([]string, []string, error) {
	prefix = dirPrefix(prefix)
	pager := c.container.NewListBlobsHierarchyPager("/", &container.ListBlobsHierarchyOptions{Prefix: &prefix})
	var dirs, files []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, nil, mapErr(err)
		}
		if page.Segment == nil {
			continue
		}
		for _, p := range page.Segment.BlobPrefixes {
			dirs = appendRel(dirs, prefix, p.Name)
		}
		for _, item := range page.Segment.BlobItems {
			files = appendRel(files, prefix, item.Name)
		}
	}
	return dirs, files, nil
}

// appendRel adds name relative to prefix, skipping nil names and directory markers
// equal to the prefix itself.
func appendRel(dst []string, prefix string, name *string) []string {
	if name == nil {
		return dst
	}
	if rel := relName(prefix, *name); rel != "" {
		dst = append(dst, rel)
	}
	return dst
}

func (c *Container) Metadata(ctx context.Context, path string) (*backend.ObjectInfo, error) {
	props, err := c.container.NewBlobClient(path).GetProperties(ctx, nil)
	if err != nil {
		return nil, mapErr(err)
	}
	info := &backend.ObjectInfo{Metadata: fromAzureMetadata(props.Metadata)}
	if props.ContentLength != nil {
		info.Size = *props.ContentLength
	}
	if props.ContentType != nil {
		info.ContentType = *props.ContentType
	}
	if props.LastModified != nil {
		info.ModifiedTime = props.LastModified.UTC()
	}
	info.CreatedTime = info.ModifiedTime
	if props.CreationTime != nil {
		info.CreatedTime = props.CreationTime.UTC()
	}
	return info, nil
}

func toAzureMetadata(m map[string]string) map[string]*string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]*string, len(m))
	for k, v := range m {
		v := v
		out[k] = &v
	}
	return out
}

func fromAzureMetadata(m map[string]*string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v != nil {
			out[k] = *v
		}
	}
	return out
}

func dirPrefix(prefix string) string {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

func relName(prefix, name string) string {
	return strings.TrimSuffix(strings.TrimPrefix(name, prefix), "/")
}

// mapErr reports missing blobs as backend.ErrNotFound. HEAD responses carry no error
// code, so a bare 404 status counts as well.
func mapErr(err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return fmt.Errorf("%w: %v", backend.ErrNotFound, err)
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", backend.ErrNotFound, err)
	}
	return err
}
