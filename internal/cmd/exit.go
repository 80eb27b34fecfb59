package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/3leaps/bucketglob/pkg/bucketglob"
	"github.com/3leaps/bucketglob/pkg/locator"
	"github.com/3leaps/bucketglob/pkg/match"
	"github.com/3leaps/bucketglob/pkg/output"
	"github.com/3leaps/bucketglob/pkg/provider"
)

// exitFailure is the code for failures with no more specific exit code.
const exitFailure = 1

// exitCodeError carries the process exit code for a failed command.
type exitCodeError struct {
	code    int
	message string
	err     error
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)", e.message, e.err, e.code)
}

func (e *exitCodeError) Unwrap() error { return e.err }

func exitError(code int, message string, err error) error {
	return &exitCodeError{code: code, message: message, err: err}
}

// ExitCode returns the exit code carried by err, exitFailure for any other
// error, and 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitCodeError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

// globExitCode maps a resolution failure to an exit code.
func globExitCode(err error) int {
	var parseErr *locator.ParseError
	switch {
	case errors.As(err, &parseErr),
		errors.Is(err, match.ErrInvalidPattern),
		errors.Is(err, match.ErrEmptyPattern),
		errors.Is(err, match.ErrInvalidSize),
		errors.Is(err, match.ErrInvalidDate),
		errors.Is(err, match.ErrInvalidRegex),
		errors.Is(err, bucketglob.ErrUnsupportedScheme):
		return foundry.ExitInvalidArgument
	case errors.Is(err, context.Canceled):
		return foundry.ExitSignalInt
	default:
		return foundry.ExitExternalServiceUnavailable
	}
}

// errorCode returns the record code for a resolution failure.
func errorCode(err error) string {
	var parseErr *locator.ParseError
	switch {
	case errors.As(err, &parseErr):
		return output.ErrCodeInvalidLocator
	case errors.Is(err, match.ErrInvalidPattern), errors.Is(err, match.ErrEmptyPattern):
		return output.ErrCodeInvalidPattern
	case errors.Is(err, context.Canceled):
		return output.ErrCodeCancelled
	default:
		return provider.Code(err)
	}
}
