// Package gcs lists objects in Google Cloud Storage buckets.
package gcs

import (
	"context"
	"errors"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/3leaps/bucketglob/pkg/provider"
)

// DefaultMaxKeys is the page size used when ListOptions.MaxKeys is zero.
const DefaultMaxKeys = 1000

// Config configures a GCS provider.
//
// Credentials come from Application Default Credentials unless
// CredentialsFile is set.
type Config struct {
	Bucket string `mapstructure:"bucket"`

	// CredentialsFile is a service account JSON key path.
	CredentialsFile string `mapstructure:"credentials_file"`

	// Endpoint overrides the storage endpoint (fake-gcs-server, emulators).
	Endpoint string `mapstructure:"endpoint"`

	MaxKeys int `mapstructure:"max_keys"`
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("gcs config: Bucket: bucket name is required")
	}
	return nil
}

// pageFunc fetches one page of object attributes for query, resuming at
// token, and returns the token of the following page.
type pageFunc func(ctx context.Context, query *storage.Query, pageSize int, token string) ([]*storage.ObjectAttrs, string, error)

// Provider implements provider.Provider for GCS.
type Provider struct {
	client  *storage.Client
	bucket  string
	maxKeys int
	page    pageFunc
}

var _ provider.Provider = (*Provider)(nil)

// New creates a GCS provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderGCS, Bucket: cfg.Bucket, Err: err}
	}

	p := newWithPager(nil, cfg)
	p.client = client
	p.page = bucketPager(client.Bucket(cfg.Bucket))
	return p, nil
}

func newWithPager(page pageFunc, cfg Config) *Provider {
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Provider{bucket: cfg.Bucket, maxKeys: maxKeys, page: page}
}

// bucketPager adapts an ObjectIterator to page-at-a-time fetching.
func bucketPager(bucket *storage.BucketHandle) pageFunc {
	return func(ctx context.Context, query *storage.Query, pageSize int, token string) ([]*storage.ObjectAttrs, string, error) {
		it := bucket.Objects(ctx, query)
		var attrs []*storage.ObjectAttrs
		next, err := iterator.NewPager(it, pageSize, token).NextPage(&attrs)
		if err != nil {
			return nil, "", err
		}
		return attrs, next, nil
	}
}

// List returns a page of objects under opts.Prefix.
//
// GCS has no exclusive start-after; StartAfter maps to the inclusive
// StartOffset and the boundary key is dropped from the page.
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	pageSize := opts.MaxKeys
	if pageSize <= 0 {
		pageSize = p.maxKeys
	}

	query := &storage.Query{Prefix: opts.Prefix}
	if opts.ContinuationToken == "" && opts.StartAfter != "" {
		query.StartOffset = opts.StartAfter
	}
	if err := query.SetAttrSelection([]string{"Name", "Size", "Etag", "Updated"}); err != nil {
		return nil, p.wrapError(opts.Prefix, err)
	}

	attrs, next, err := p.page(ctx, query, pageSize, opts.ContinuationToken)
	if err != nil {
		return nil, p.wrapError(opts.Prefix, err)
	}

	objects := make([]provider.ObjectSummary, 0, len(attrs))
	for _, a := range attrs {
		if a == nil || a.Name == "" {
			continue
		}
		if query.StartOffset != "" && a.Name == query.StartOffset {
			continue
		}
		objects = append(objects, provider.ObjectSummary{
			Key:          a.Name,
			Size:         a.Size,
			ETag:         a.Etag,
			LastModified: a.Updated,
		})
	}

	return &provider.ListResult{
		Objects:           objects,
		IsTruncated:       next != "",
		ContinuationToken: next,
	}, nil
}

// Close releases the underlying storage client.
func (p *Provider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *Provider) wrapError(prefix string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       "List",
		Provider: provider.ProviderGCS,
		Bucket:   p.bucket,
		Prefix:   prefix,
		Err:      err,
	}

	if errors.Is(err, storage.ErrBucketNotExist) {
		wrapped.Err = provider.Classify(provider.ErrBucketNotFound, err)
		return wrapped
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			wrapped.Err = provider.Classify(provider.ErrBucketNotFound, err)
		case http.StatusUnauthorized:
			wrapped.Err = provider.Classify(provider.ErrInvalidCredentials, err)
		case http.StatusForbidden:
			wrapped.Err = provider.Classify(provider.ErrAccessDenied, err)
		case http.StatusTooManyRequests:
			wrapped.Err = provider.Classify(provider.ErrThrottled, err)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wrapped.Err = provider.Classify(provider.ErrProviderUnavailable, err)
		}
	}
	return wrapped
}
