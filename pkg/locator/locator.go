// Package locator parses "scheme://container/pattern" strings.
//
// Parsing is manual rather than via net/url: glob patterns routinely contain
// '?', '#', '%' and '[' which url.Parse would treat as syntax.
package locator

import (
	"errors"
	"fmt"
	"strings"
)

// Parse errors. A *ParseError wraps exactly one of these.
var (
	// ErrInvalidLocator indicates a missing or malformed scheme separator.
	ErrInvalidLocator = errors.New("invalid locator")

	// ErrMissingContainer indicates nothing between "://" and the first "/".
	ErrMissingContainer = errors.New("missing container")

	// ErrMissingPattern indicates nothing after the container.
	ErrMissingPattern = errors.New("missing pattern")

	// ErrInvalidContainer indicates a container name the provider refuses,
	// e.g. a file:// container that would leave the file root.
	ErrInvalidContainer = errors.New("invalid container")
)

// ParseError reports a locator that could not be parsed.
type ParseError struct {
	Input  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("parse locator %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("parse locator %q: %v: %s", e.Input, e.Err, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Locator identifies a container and a glob pattern within it.
//
// Example locators:
//   - s3://bucket/test/**/*.js
//   - s3n://bucket/logs/{app,web}/*.gz
//   - gs://bucket/*.json
type Locator struct {
	// Scheme is the lower-cased scheme, e.g. "s3".
	Scheme string

	// Container is the bucket or container name.
	Container string

	// Pattern is the raw glob, everything after the container's slash.
	Pattern string
}

// String returns the locator in canonical form.
func (l *Locator) String() string {
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Container, l.Pattern)
}

// Parse splits s into scheme, container and pattern.
//
// The scheme must be non-empty ASCII alphanumeric. The container runs up to
// the first "/" and must be non-empty, as must the pattern that follows.
// The pattern is returned verbatim.
func Parse(s string) (*Locator, error) {
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return nil, &ParseError{Input: s, Reason: "expected scheme://container/pattern", Err: ErrInvalidLocator}
	}

	scheme := s[:schemeEnd]
	if scheme == "" || !isAlphanumeric(scheme) {
		return nil, &ParseError{Input: s, Reason: fmt.Sprintf("scheme %q must be alphanumeric", scheme), Err: ErrInvalidLocator}
	}

	rest := s[schemeEnd+3:]
	slash := strings.IndexByte(rest, '/')
	if slash == -1 {
		if rest == "" {
			return nil, &ParseError{Input: s, Err: ErrMissingContainer}
		}
		return nil, &ParseError{Input: s, Err: ErrMissingPattern}
	}

	container, pattern := rest[:slash], rest[slash+1:]
	if container == "" {
		return nil, &ParseError{Input: s, Err: ErrMissingContainer}
	}
	if pattern == "" {
		return nil, &ParseError{Input: s, Err: ErrMissingPattern}
	}

	return &Locator{
		Scheme:    strings.ToLower(scheme),
		Container: container,
		Pattern:   pattern,
	}, nil
}

func isAlphanumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
