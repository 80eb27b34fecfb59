// Package bucketglob resolves "scheme://container/pattern" locators to the
// objects whose keys match the pattern.
//
// Basic usage:
//
//	objs, err := bucketglob.Glob(ctx, "s3://my-bucket/logs/**/*.gz")
//
// Matching options are forwarded to match.Compile; everything else
// configures the provider and the resolver.
package bucketglob

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/3leaps/bucketglob/pkg/crawler"
	"github.com/3leaps/bucketglob/pkg/locator"
	"github.com/3leaps/bucketglob/pkg/match"
	"github.com/3leaps/bucketglob/pkg/provider"
)

// Option configures a Glob or Resolve call.
type Option func(*options)

type options struct {
	crawler   crawler.Config
	filter    match.FilterConfig
	providers Providers
	opener    Opener
	logger    *zap.Logger
}

// WithMatchOptions replaces the options passed to match.Compile.
func WithMatchOptions(m match.Options) Option {
	return func(o *options) { o.crawler.Match = m }
}

// WithDot lets wildcards match dot segments (minimatch "dot").
func WithDot(dot bool) Option {
	return func(o *options) { o.crawler.Match.Dot = dot }
}

// WithNoBrace treats '{' and '}' as literal characters.
func WithNoBrace(noBrace bool) Option {
	return func(o *options) { o.crawler.Match.NoBrace = noBrace }
}

// WithExcludes adds patterns that veto a match.
func WithExcludes(patterns ...string) Option {
	return func(o *options) {
		// Clip so a slice shared with the caller's config is never written.
		o.crawler.Match.Excludes = append(slices.Clip(o.crawler.Match.Excludes), patterns...)
	}
}

// WithFilter narrows matches by size, modification time or key regex.
func WithFilter(f match.FilterConfig) Option {
	return func(o *options) { o.filter = f }
}

// WithCrawlerConfig sets concurrency, rate limit and page size. The match
// options already set are kept unless cfg carries its own.
func WithCrawlerConfig(cfg crawler.Config) Option {
	return func(o *options) {
		m := o.crawler.Match
		o.crawler = cfg
		if isZeroMatch(cfg.Match) {
			o.crawler.Match = m
		}
	}
}

// WithProviders sets provider credentials and endpoints.
func WithProviders(p Providers) Option {
	return func(o *options) { o.providers = p }
}

// WithOpener overrides provider construction. Tests and embedders use it to
// supply their own provider.Lister.
func WithOpener(op Opener) Option {
	return func(o *options) { o.opener = op }
}

// WithLogger sets the logger for resolver debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func isZeroMatch(m match.Options) bool {
	return !m.Dot && !m.NoBrace && len(m.Excludes) == 0
}

// Glob returns every object under the locator's container whose key matches
// its pattern.
//
// Output order: alternatives in pattern order, then listing order within an
// alternative, each key once. An empty result is not an error.
//
// Errors: *locator.ParseError for a malformed locator (no network activity),
// *match.PatternError for a pattern that does not compile, *crawler.ListError
// when any listing fails.
func Glob(ctx context.Context, loc string, opts ...Option) ([]provider.ObjectSummary, error) {
	res, err := Resolve(ctx, loc, opts...)
	if err != nil {
		return nil, err
	}
	return res.Objects, nil
}

// Resolve is Glob with the resolution summary.
func Resolve(ctx context.Context, loc string, opts ...Option) (*crawler.Result, error) {
	o := options{crawler: crawler.DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	parsed, err := locator.Parse(loc)
	if err != nil {
		return nil, err
	}

	pattern, err := match.Compile(parsed.Pattern, o.crawler.Match)
	if err != nil {
		return nil, err
	}
	filter, err := match.NewObjectFilter(o.filter)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}

	opener := o.opener
	if opener == nil {
		opener = DefaultOpener(o.providers)
	}
	prov, err := opener(ctx, parsed)
	if err != nil {
		return nil, err
	}
	defer func() { _ = prov.Close() }()

	cfg := o.crawler
	if o.logger != nil {
		cfg.Logger = o.logger.With(zap.String("locator", parsed.String()))
	}
	return crawler.New(prov, cfg).WithFilter(filter).ResolvePattern(ctx, pattern)
}
