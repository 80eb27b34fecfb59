// Package output renders glob results.
//
// The default format is JSONL: typed record envelopes for matched objects,
// errors and the final summary, one self-contained JSON object per line.
// Table and YAML renderings are available for interactive use.
package output

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/3leaps/bucketglob/pkg/crawler"
	"github.com/3leaps/bucketglob/pkg/provider"
)

// Record type constants. These follow the pattern: bucketglob.<type>.v<version>
const (
	// TypeObject identifies matched object records.
	TypeObject = "bucketglob.object.v1"

	// TypeError identifies error records.
	TypeError = "bucketglob.error.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "bucketglob.summary.v1"
)

// Record is the envelope for all JSONL output.
//
// The type field determines how to interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "bucketglob.object.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// JobID correlates all records of one glob run.
	JobID string `json:"job_id"`

	// Provider identifies the storage provider (e.g., "s3", "gcs").
	Provider string `json:"provider"`

	// Locator is the locator the record belongs to, when known.
	Locator string `json:"locator,omitempty"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// ObjectRecord is the data payload for a matched object.
type ObjectRecord struct {
	// Key is the full object key in the container.
	Key string `json:"key"`

	// Size is the object size in bytes.
	Size int64 `json:"size"`

	// ETag is the entity tag reported by the provider.
	ETag string `json:"etag,omitempty"`

	// LastModified is when the object was last modified.
	LastModified time.Time `json:"last_modified"`
}

// NewObjectRecord converts a listing entry into its record payload.
func NewObjectRecord(obj provider.ObjectSummary) *ObjectRecord {
	return &ObjectRecord{
		Key:          obj.Key,
		Size:         obj.Size,
		ETag:         obj.ETag,
		LastModified: obj.LastModified,
	}
}

// ErrorRecord is the data payload for errors.
type ErrorRecord struct {
	// Code is a machine-readable error code (see provider.Code and the
	// ErrCode* constants).
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Locator is the locator being resolved when the error occurred.
	Locator string `json:"locator,omitempty"`

	// Prefix is the prefix being listed when the error occurred.
	Prefix string `json:"prefix,omitempty"`
}

// Error codes for failures that do not come from a provider.
const (
	// ErrCodeInvalidLocator indicates the locator could not be parsed.
	ErrCodeInvalidLocator = "INVALID_LOCATOR"

	// ErrCodeInvalidPattern indicates the glob pattern did not compile.
	ErrCodeInvalidPattern = "INVALID_PATTERN"

	// ErrCodeCancelled indicates the run was cancelled.
	ErrCodeCancelled = "CANCELLED"
)

// SummaryRecord is the data payload for the final summary.
type SummaryRecord struct {
	// Branches is the number of pattern alternatives resolved.
	Branches int `json:"branches"`

	// Prefixes lists the listing prefix of every branch, in pattern order.
	Prefixes []string `json:"prefixes,omitempty"`

	// Pages is the number of listing requests issued.
	Pages int64 `json:"pages"`

	// ObjectsListed is the total number of entries returned by listings.
	ObjectsListed int64 `json:"objects_listed"`

	// ObjectsMatched is the number of distinct matching objects.
	ObjectsMatched int64 `json:"objects_matched"`

	// BytesTotal is the cumulative size of matched objects in bytes.
	BytesTotal int64 `json:"bytes_total"`

	// Duration is the total resolution duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// NewSummaryRecord converts a resolver summary into its record payload.
func NewSummaryRecord(s crawler.Summary) *SummaryRecord {
	return &SummaryRecord{
		Branches:       s.Branches,
		Prefixes:       s.Prefixes,
		Pages:          s.Pages,
		ObjectsListed:  s.ObjectsListed,
		ObjectsMatched: s.ObjectsMatched,
		BytesTotal:     s.BytesTotal,
		Duration:       s.Duration,
		DurationHuman:  s.Duration.String(),
	}
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")

	// ErrUnknownFormat is returned by NewRenderer for an unsupported format.
	ErrUnknownFormat = errors.New("unknown output format")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
