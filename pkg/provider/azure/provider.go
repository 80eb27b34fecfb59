// Package azure lists blobs in Azure Blob Storage containers.
package azure

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/Azure/azure-storage-blob-go/azblob"

	"github.com/3leaps/bucketglob/pkg/provider"
)

// DefaultMaxKeys is the page size used when ListOptions.MaxKeys is zero.
const DefaultMaxKeys = 1000

// Config configures an Azure Blob provider.
type Config struct {
	// Container is the blob container name (required).
	Container string `mapstructure:"container"`

	// AccountName is the storage account (required).
	AccountName string `mapstructure:"account_name"`

	// AccountKey is the shared key. Empty uses anonymous access, which only
	// works for public containers.
	AccountKey string `mapstructure:"account_key"`

	// Endpoint overrides the blob service URL (Azurite).
	// Default: https://<account>.blob.core.windows.net
	Endpoint string `mapstructure:"endpoint"`

	MaxKeys int `mapstructure:"max_keys"`
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Container == "" {
		return errors.New("azure config: Container: container name is required")
	}
	if c.AccountName == "" {
		return errors.New("azure config: AccountName: account name is required")
	}
	return nil
}

// segmentFunc fetches one flat listing segment.
type segmentFunc func(ctx context.Context, marker azblob.Marker, opts azblob.ListBlobsSegmentOptions) (*azblob.ListBlobsFlatSegmentResponse, error)

// Provider implements provider.Provider for Azure Blob Storage.
type Provider struct {
	container string
	maxKeys   int
	segment   segmentFunc
}

var _ provider.Provider = (*Provider)(nil)

// New creates an Azure Blob provider.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var credential azblob.Credential = azblob.NewAnonymousCredential()
	if cfg.AccountKey != "" {
		shared, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err != nil {
			return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderAzure, Bucket: cfg.Container, Err: err}
		}
		credential = shared
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AccountName)
	}
	u, err := url.Parse(fmt.Sprintf("%s/%s", endpoint, cfg.Container))
	if err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderAzure, Bucket: cfg.Container, Err: err}
	}

	containerURL := azblob.NewContainerURL(*u, azblob.NewPipeline(credential, azblob.PipelineOptions{}))
	return newWithSegment(containerURL.ListBlobsFlatSegment, cfg), nil
}

func newWithSegment(segment segmentFunc, cfg Config) *Provider {
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Provider{container: cfg.Container, maxKeys: maxKeys, segment: segment}
}

// List returns one flat listing segment under opts.Prefix.
//
// Azure markers are opaque and always present on truncated segments, so
// StartAfter is not consulted.
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	maxResults := opts.MaxKeys
	if maxResults <= 0 {
		maxResults = p.maxKeys
	}

	marker := azblob.Marker{}
	if opts.ContinuationToken != "" {
		token := opts.ContinuationToken
		marker.Val = &token
	}

	resp, err := p.segment(ctx, marker, azblob.ListBlobsSegmentOptions{
		Prefix:     opts.Prefix,
		MaxResults: int32(maxResults),
	})
	if err != nil {
		return nil, p.wrapError(opts.Prefix, err)
	}

	objects := make([]provider.ObjectSummary, 0, len(resp.Segment.BlobItems))
	for _, blob := range resp.Segment.BlobItems {
		var size int64
		if blob.Properties.ContentLength != nil {
			size = *blob.Properties.ContentLength
		}
		objects = append(objects, provider.ObjectSummary{
			Key:          blob.Name,
			Size:         size,
			ETag:         string(blob.Properties.Etag),
			LastModified: blob.Properties.LastModified,
		})
	}

	result := &provider.ListResult{Objects: objects}
	if resp.NextMarker.Val != nil && *resp.NextMarker.Val != "" {
		result.IsTruncated = true
		result.ContinuationToken = *resp.NextMarker.Val
	}
	return result, nil
}

// Close is a no-op; the pipeline holds no resources that need releasing.
func (p *Provider) Close() error { return nil }

func (p *Provider) wrapError(prefix string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       "List",
		Provider: provider.ProviderAzure,
		Bucket:   p.container,
		Prefix:   prefix,
		Err:      err,
	}

	var storageErr azblob.StorageError
	if errors.As(err, &storageErr) {
		switch storageErr.ServiceCode() {
		case azblob.ServiceCodeContainerNotFound, azblob.ServiceCodeResourceNotFound:
			wrapped.Err = provider.Classify(provider.ErrBucketNotFound, err)
		case azblob.ServiceCodeAuthenticationFailed:
			wrapped.Err = provider.Classify(provider.ErrInvalidCredentials, err)
		case azblob.ServiceCodeType(azblob.StorageErrorCodeAuthorizationFailure), azblob.ServiceCodeInsufficientAccountPermissions:
			wrapped.Err = provider.Classify(provider.ErrAccessDenied, err)
		case azblob.ServiceCodeServerBusy:
			wrapped.Err = provider.Classify(provider.ErrThrottled, err)
		case azblob.ServiceCodeInternalError, azblob.ServiceCodeOperationTimedOut:
			wrapped.Err = provider.Classify(provider.ErrProviderUnavailable, err)
		}
	}
	return wrapped
}
