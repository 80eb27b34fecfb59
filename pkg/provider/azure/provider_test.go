package azure

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/bucketglob/pkg/provider"
)

type fakeStorageError struct {
	code azblob.ServiceCodeType
}

func (e fakeStorageError) Error() string                      { return string(e.code) }
func (e fakeStorageError) Temporary() bool                    { return false }
func (e fakeStorageError) Timeout() bool                      { return false }
func (e fakeStorageError) Response() *http.Response           { return nil }
func (e fakeStorageError) ServiceCode() azblob.ServiceCodeType { return e.code }

func strPtr(s string) *string { return &s }
func int64Ptr(n int64) *int64 { return &n }

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, (&Config{}).Validate())
	assert.Error(t, (&Config{Container: "c"}).Validate())
	assert.NoError(t, (&Config{Container: "c", AccountName: "acct"}).Validate())
}

func TestNew_AnonymousCredential(t *testing.T) {
	p, err := New(Config{Container: "c", AccountName: "acct"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxKeys, p.maxKeys)
	assert.NoError(t, p.Close())
}

func TestList_MapsSegment(t *testing.T) {
	modified := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	var gotMarker azblob.Marker
	var gotOpts azblob.ListBlobsSegmentOptions

	segment := func(ctx context.Context, marker azblob.Marker, opts azblob.ListBlobsSegmentOptions) (*azblob.ListBlobsFlatSegmentResponse, error) {
		gotMarker, gotOpts = marker, opts
		return &azblob.ListBlobsFlatSegmentResponse{
			Segment: azblob.BlobFlatListSegment{BlobItems: []azblob.BlobItemInternal{
				{Name: "logs/a.txt", Properties: azblob.BlobPropertiesInternal{ContentLength: int64Ptr(7), Etag: "0x1", LastModified: modified}},
				{Name: "logs/b.txt"},
			}},
			NextMarker: azblob.Marker{Val: strPtr("m2")},
		}, nil
	}

	p := newWithSegment(segment, Config{Container: "c", MaxKeys: 25})
	res, err := p.List(context.Background(), provider.ListOptions{Prefix: "logs", ContinuationToken: "m1"})
	require.NoError(t, err)

	require.NotNil(t, gotMarker.Val)
	assert.Equal(t, "m1", *gotMarker.Val)
	assert.Equal(t, "logs", gotOpts.Prefix)
	assert.Equal(t, int32(25), gotOpts.MaxResults)

	require.Len(t, res.Objects, 2)
	assert.Equal(t, provider.ObjectSummary{Key: "logs/a.txt", Size: 7, ETag: "0x1", LastModified: modified}, res.Objects[0])
	assert.Equal(t, int64(0), res.Objects[1].Size)
	assert.True(t, res.IsTruncated)
	assert.Equal(t, "m2", res.ContinuationToken)
}

func TestList_FinalSegment(t *testing.T) {
	tests := []struct {
		name   string
		marker azblob.Marker
	}{
		{"empty marker", azblob.Marker{Val: strPtr("")}},
		{"nil marker", azblob.Marker{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segment := func(ctx context.Context, marker azblob.Marker, opts azblob.ListBlobsSegmentOptions) (*azblob.ListBlobsFlatSegmentResponse, error) {
				assert.Nil(t, marker.Val)
				return &azblob.ListBlobsFlatSegmentResponse{NextMarker: tt.marker}, nil
			}
			p := newWithSegment(segment, Config{Container: "c"})

			res, err := p.List(context.Background(), provider.ListOptions{})
			require.NoError(t, err)
			assert.False(t, res.IsTruncated)
			assert.Empty(t, res.ContinuationToken)
			assert.Empty(t, res.Objects)
		})
	}
}

func TestList_WrapsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"container missing", fakeStorageError{azblob.ServiceCodeContainerNotFound}, provider.ErrBucketNotFound},
		{"auth failed", fakeStorageError{azblob.ServiceCodeAuthenticationFailed}, provider.ErrInvalidCredentials},
		{"forbidden", fakeStorageError{azblob.ServiceCodeInsufficientAccountPermissions}, provider.ErrAccessDenied},
		{"busy", fakeStorageError{azblob.ServiceCodeServerBusy}, provider.ErrThrottled},
		{"internal", fakeStorageError{azblob.ServiceCodeInternalError}, provider.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segment := func(ctx context.Context, marker azblob.Marker, opts azblob.ListBlobsSegmentOptions) (*azblob.ListBlobsFlatSegmentResponse, error) {
				return nil, tt.err
			}
			p := newWithSegment(segment, Config{Container: "c"})

			_, err := p.List(context.Background(), provider.ListOptions{Prefix: "p"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var storageErr azblob.StorageError
			require.True(t, errors.As(err, &storageErr), "SDK error should stay reachable")
			assert.Equal(t, tt.err.(fakeStorageError).ServiceCode(), storageErr.ServiceCode())

			var provErr *provider.ProviderError
			require.True(t, errors.As(err, &provErr))
			assert.Equal(t, provider.ProviderAzure, provErr.Provider)
			assert.Equal(t, "c", provErr.Bucket)
		})
	}
}

func TestList_PlainErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	segment := func(ctx context.Context, marker azblob.Marker, opts azblob.ListBlobsSegmentOptions) (*azblob.ListBlobsFlatSegmentResponse, error) {
		return nil, boom
	}
	p := newWithSegment(segment, Config{Container: "c"})

	_, err := p.List(context.Background(), provider.ListOptions{})
	assert.ErrorIs(t, err, boom)
}
