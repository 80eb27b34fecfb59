package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/3leaps/bucketglob/internal/server/middleware"
	"github.com/3leaps/bucketglob/pkg/bucketglob"
	"github.com/3leaps/bucketglob/pkg/crawler"
	"github.com/3leaps/bucketglob/pkg/locator"
	"github.com/3leaps/bucketglob/pkg/match"
	"github.com/3leaps/bucketglob/pkg/output"
	"github.com/3leaps/bucketglob/pkg/provider"
)

// HTTPErrorResponder writes err as an HTTP response.
type HTTPErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

var httpErrorResponder HTTPErrorResponder = defaultErrorResponder

// SetHTTPErrorResponder replaces the responder used by the handlers.
// nil restores the default.
func SetHTTPErrorResponder(fn HTTPErrorResponder) {
	if fn == nil {
		fn = defaultErrorResponder
	}
	httpErrorResponder = fn
}

// ResetHTTPErrorResponder restores the default responder.
func ResetHTTPErrorResponder() {
	httpErrorResponder = defaultErrorResponder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}

// errorDetails carries the listing prefix for provider failures.
type errorDetails struct {
	Prefix string `json:"prefix"`
}

func defaultErrorResponder(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	var details any
	var listErr *crawler.ListError
	if errors.As(err, &listErr) {
		details = errorDetails{Prefix: listErr.Prefix}
	}
	middleware.WriteError(w, r, status, code, err.Error(), details)
}

// classify maps a glob failure to an HTTP status and error code.
func classify(err error) (int, string) {
	var parseErr *locator.ParseError
	switch {
	case errors.As(err, &parseErr):
		return http.StatusBadRequest, output.ErrCodeInvalidLocator
	case errors.Is(err, match.ErrInvalidPattern), errors.Is(err, match.ErrEmptyPattern):
		return http.StatusBadRequest, output.ErrCodeInvalidPattern
	case errors.Is(err, match.ErrInvalidSize), errors.Is(err, match.ErrInvalidDate), errors.Is(err, match.ErrInvalidRegex):
		return http.StatusBadRequest, middleware.CodeBadRequest
	case errors.Is(err, bucketglob.ErrUnsupportedScheme):
		return http.StatusBadRequest, middleware.CodeBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, middleware.CodeTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, output.ErrCodeCancelled
	}

	switch code := provider.Code(err); code {
	case provider.CodeAccessDenied:
		return http.StatusForbidden, code
	case provider.CodeBucketNotFound:
		return http.StatusNotFound, code
	case provider.CodeInvalidCredentials:
		return http.StatusUnauthorized, code
	case provider.CodeThrottled:
		return http.StatusTooManyRequests, code
	case provider.CodeProviderUnavailable:
		return http.StatusBadGateway, code
	}
	return http.StatusInternalServerError, middleware.CodeInternal
}
