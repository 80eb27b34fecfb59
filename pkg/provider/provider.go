// Package provider defines the listing surface that glob resolution consumes.
//
// Providers expose flat, prefix-filtered, paginated listing and nothing else.
// Authentication uses each SDK's default credential chain; providers should
// not implement custom auth logic.
package provider

import (
	"context"
	"time"
)

// Lister returns one page of objects per call.
//
// Implementations must be safe for concurrent use: glob resolution runs one
// pagination loop per pattern alternative in parallel against the same Lister.
type Lister interface {
	// List returns a page of objects under opts.Prefix, resuming from the
	// cursor carried in opts (ContinuationToken or StartAfter).
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
}

// Provider is a Lister bound to one container that holds releasable resources.
type Provider interface {
	Lister

	// Close releases any resources held by the provider.
	Close() error
}

// ListOptions configures a List operation.
type ListOptions struct {
	// Prefix filters results to keys starting with this value.
	// Empty string lists the whole container.
	Prefix string

	// ContinuationToken resumes listing from a previous ListResult.
	// Empty string starts from the beginning.
	ContinuationToken string

	// StartAfter resumes listing strictly after this key. It is used when a
	// truncated page carried no ContinuationToken. Ignored when
	// ContinuationToken is set.
	StartAfter string

	// MaxKeys limits the number of objects returned per page.
	// Zero uses provider default (typically 1000).
	MaxKeys int
}

// ListResult contains a page of objects from a List operation.
type ListResult struct {
	// Objects contains the object summaries for this page.
	Objects []ObjectSummary

	// ContinuationToken is used to retrieve the next page.
	// Empty string means the provider has no opaque token; callers fall back
	// to the last key of the page.
	ContinuationToken string

	// IsTruncated indicates whether more results are available.
	IsTruncated bool
}

// ObjectSummary contains basic metadata returned from List operations.
type ObjectSummary struct {
	// Key is the full object key (path) in the container.
	Key string `json:"key" yaml:"key"`

	// Size is the object size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// ETag is the entity tag, typically an MD5 hash of the object.
	ETag string `json:"etag,omitempty" yaml:"etag,omitempty"`

	// LastModified is when the object was last modified.
	LastModified time.Time `json:"last_modified" yaml:"last_modified"`
}

// ProviderType identifies a cloud storage provider.
type ProviderType string

const (
	// ProviderS3 represents AWS S3 or S3-compatible storage.
	ProviderS3 ProviderType = "s3"

	// ProviderGCS represents Google Cloud Storage.
	ProviderGCS ProviderType = "gcs"

	// ProviderAzure represents Azure Blob Storage.
	ProviderAzure ProviderType = "azure"

	// ProviderFile represents a local directory treated as a container.
	ProviderFile ProviderType = "file"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}
