package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for provider operations.
var (
	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrBucketNotFound indicates the bucket or container does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderUnavailable indicates the provider service is unavailable.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrThrottled indicates the request was rate limited by the provider.
	ErrThrottled = errors.New("request throttled")
)

// Error codes reported to CLI and HTTP consumers.
const (
	CodeAccessDenied        = "ACCESS_DENIED"
	CodeBucketNotFound      = "BUCKET_NOT_FOUND"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeThrottled           = "THROTTLED"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeInternal            = "INTERNAL"
)

// ProviderError wraps provider-specific errors with context.
type ProviderError struct {
	// Op is the operation that failed (e.g., "List", "New").
	Op string

	// Provider is the provider type (e.g., "s3").
	Provider ProviderType

	// Bucket is the bucket or container name, if applicable.
	Bucket string

	// Prefix is the listing prefix, if applicable.
	Prefix string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Prefix != "" {
		return fmt.Sprintf("%s %s: %s/%s: %v", e.Provider, e.Op, e.Bucket, e.Prefix, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Classify tags cause with a sentinel. Both stay reachable through
// errors.Is and errors.As, so the SDK error and its message survive.
func Classify(sentinel, cause error) error {
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// Code classifies err into one of the Code* constants.
// Errors that match no sentinel are reported as CodeInternal.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrAccessDenied):
		return CodeAccessDenied
	case errors.Is(err, ErrBucketNotFound):
		return CodeBucketNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, ErrThrottled):
		return CodeThrottled
	case errors.Is(err, ErrProviderUnavailable):
		return CodeProviderUnavailable
	default:
		return CodeInternal
	}
}
