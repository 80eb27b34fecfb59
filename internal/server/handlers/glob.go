package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/3leaps/bucketglob/internal/server/middleware"
	"github.com/3leaps/bucketglob/pkg/bucketglob"
	"github.com/3leaps/bucketglob/pkg/crawler"
	"github.com/3leaps/bucketglob/pkg/match"
	"github.com/3leaps/bucketglob/pkg/output"
)

// ResolveFunc resolves a locator. bucketglob.Resolve in production.
type ResolveFunc func(ctx context.Context, loc string, opts ...bucketglob.Option) (*crawler.Result, error)

// GlobResponse is the body of a successful GET /v1/glob.
type GlobResponse struct {
	Locator string                 `json:"locator"`
	Objects []*output.ObjectRecord `json:"objects"`
	Summary *output.SummaryRecord  `json:"summary"`
}

// GlobHandler serves GET /v1/glob.
//
// Query parameters:
//
//	locator          scheme://container/pattern (required)
//	dot              let wildcards match dot segments
//	no_brace         treat braces literally
//	exclude          veto pattern, repeatable
//	min_size, max_size, modified_after, modified_before, key_regex
//	                 metadata filters; any of them replaces the configured filter
type GlobHandler struct {
	resolve ResolveFunc
	base    []bucketglob.Option
	timeout time.Duration
}

// NewGlobHandler returns a handler that applies base before the per-request
// options and bounds each request by timeout (zero means no bound).
func NewGlobHandler(timeout time.Duration, base ...bucketglob.Option) *GlobHandler {
	return &GlobHandler{
		resolve: bucketglob.Resolve,
		base:    base,
		timeout: timeout,
	}
}

// WithResolver replaces the resolve function.
func (h *GlobHandler) WithResolver(fn ResolveFunc) *GlobHandler {
	h.resolve = fn
	return h
}

func (h *GlobHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := q.Get("locator")
	if loc == "" {
		middleware.WriteError(w, r, http.StatusBadRequest, middleware.CodeBadRequest, "missing locator parameter", nil)
		return
	}

	opts, err := requestOptions(q)
	if err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, middleware.CodeBadRequest, err.Error(), nil)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	all := make([]bucketglob.Option, 0, len(h.base)+len(opts))
	all = append(all, h.base...)
	all = append(all, opts...)

	res, err := h.resolve(ctx, loc, all...)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	body := GlobResponse{
		Locator: loc,
		Objects: make([]*output.ObjectRecord, 0, len(res.Objects)),
		Summary: output.NewSummaryRecord(res.Summary),
	}
	for _, obj := range res.Objects {
		body.Objects = append(body.Objects, output.NewObjectRecord(obj))
	}
	writeJSON(w, http.StatusOK, body)
}

// requestOptions turns query parameters into bucketglob options.
func requestOptions(q map[string][]string) ([]bucketglob.Option, error) {
	get := func(key string) string {
		if v := q[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	var opts []bucketglob.Option
	for _, name := range []string{"dot", "no_brace"} {
		raw := get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s parameter %q", name, raw)
		}
		if name == "dot" {
			opts = append(opts, bucketglob.WithDot(v))
		} else {
			opts = append(opts, bucketglob.WithNoBrace(v))
		}
	}

	if ex := q["exclude"]; len(ex) > 0 {
		opts = append(opts, bucketglob.WithExcludes(ex...))
	}

	filter := match.FilterConfig{
		MinSize:        get("min_size"),
		MaxSize:        get("max_size"),
		ModifiedAfter:  get("modified_after"),
		ModifiedBefore: get("modified_before"),
		KeyRegex:       get("key_regex"),
	}
	if !filter.IsZero() {
		opts = append(opts, bucketglob.WithFilter(filter))
	}
	return opts, nil
}
