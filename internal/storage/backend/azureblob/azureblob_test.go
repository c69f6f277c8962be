package azureblob

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-storage-core/backend/internal/platform/apperr"
	"tenant-storage-core/backend/internal/storage/backend"
)

func TestOpen_RequiresContainerAndCredentials(t *testing.T) {
	ctx := context.Background()
	_, err := backend.New(ctx, backend.Config{Provider: "azure"})
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration), "got %v", err)

	_, err = backend.New(ctx, backend.Config{Provider: "azure", Bucket: "files"})
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration), "got %v", err)
}

func TestOpen_BuildsClientWithoutNetwork(t *testing.T) {
	b, err := backend.New(context.Background(), backend.Config{
		Provider:         "azure",
		Bucket:           "files",
		AzureAccountName: "devstoreaccount1",
		// well-known Azurite development key
		AzureAccountKey: "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==",
		AzureServiceURL: "http://127.0.0.1:10000/devstoreaccount1/",
	})
	require.NoError(t, err)

	u, err := b.SignedURL(context.Background(), "orgs/a/general/x.txt", time.Hour)
	require.NoError(t, err)
	parsed, err := url.Parse(u)
	require.NoError(t, err)
	blobPath, err := url.PathUnescape(parsed.EscapedPath())
	require.NoError(t, err)
	assert.Equal(t, "/devstoreaccount1/files/orgs/a/general/x.txt", blobPath)
	assert.NotEmpty(t, parsed.Query().Get("sig"))
}

func TestMetadataConversion(t *testing.T) {
	assert.Nil(t, toAzureMetadata(nil))
	in := map[string]string{"uploaded_by": "user-1"}
	assert.Equal(t, in, fromAzureMetadata(toAzureMetadata(in)))
}

func TestListNames(t *testing.T) {
	assert.Equal(t, "orgs/a/", dirPrefix("orgs/a"))
	assert.Equal(t, "img", relName("orgs/a/", "orgs/a/img/"))

	var names []string
	for _, n := range []*string{nil, to.Ptr("orgs/a/"), to.Ptr("orgs/a/x.txt")} {
		names = appendRel(names, "orgs/a/", n)
	}
	assert.Equal(t, []string{"x.txt"}, names)
}

func TestMapErr(t *testing.T) {
	missing := mapErr(&azcore.ResponseError{StatusCode: 404})
	assert.True(t, errors.Is(missing, backend.ErrNotFound), "got %v", missing)

	coded := mapErr(&azcore.ResponseError{StatusCode: 404, ErrorCode: "BlobNotFound"})
	assert.True(t, errors.Is(coded, backend.ErrNotFound), "got %v", coded)

	other := mapErr(&azcore.ResponseError{StatusCode: 500, ErrorCode: "InternalError"})
	assert.False(t, errors.Is(other, backend.ErrNotFound))
}
