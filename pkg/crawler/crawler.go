// Package crawler resolves compiled glob patterns against an object
// listing.
//
// Resolution runs in three steps:
//   - Plan: each brace alternative of the pattern gets its own listing
//     prefix (the longest literal run of its segments)
//   - List: every alternative is paged to completion concurrently, each in
//     its own Pager
//   - Merge: each branch filters its batch through the pattern predicate;
//     after all branches finish the batches are merged, branch by branch,
//     into a MatchSet that drops repeated keys
//
// The merge happens after the join, so output order depends only on the
// pattern and the listing contents, never on goroutine timing.
package crawler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/3leaps/bucketglob/pkg/match"
	"github.com/3leaps/bucketglob/pkg/provider"
)

// Config configures resolver behavior.
type Config struct {
	// Concurrency caps the number of alternatives listed in parallel.
	// Default: 4
	Concurrency int `mapstructure:"concurrency"`

	// RateLimit is the maximum List requests per second across all
	// branches. Zero means unlimited (provider handles its own throttling).
	// Default: 0
	RateLimit float64 `mapstructure:"rate_limit"`

	// MaxKeys is the page size requested from the provider. Zero leaves
	// it to the provider default.
	MaxKeys int `mapstructure:"max_keys"`

	// Match is forwarded to match.Compile.
	Match match.Options `mapstructure:"match"`

	// Logger receives debug records per branch. Nil disables logging.
	Logger *zap.Logger `mapstructure:"-"`
}

// DefaultConfig returns the default resolver configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
	}
}

// Summary contains aggregate statistics from one resolution.
type Summary struct {
	// Branches is the number of pattern alternatives listed.
	Branches int `json:"branches"`

	// Prefixes holds the listing prefix of each branch, in pattern order.
	// An empty string means the branch listed the whole container.
	Prefixes []string `json:"prefixes"`

	// Pages is the number of List calls that succeeded.
	Pages int64 `json:"pages"`

	// ObjectsListed counts entries returned by the provider, duplicates
	// included.
	ObjectsListed int64 `json:"objects_listed"`

	// ObjectsMatched counts distinct keys in the result.
	ObjectsMatched int64 `json:"objects_matched"`

	// BytesTotal is the summed size of the matched objects.
	BytesTotal int64 `json:"bytes_total"`

	Duration time.Duration `json:"duration_ns"`
}

// Result is the outcome of a successful resolution.
type Result struct {
	Objects []provider.ObjectSummary
	Summary Summary
}

// Resolver resolves glob patterns against one container.
//
// A Resolver holds no per-call state and may be reused and shared.
type Resolver struct {
	lister  provider.Lister
	filter  *match.ObjectFilter
	config  Config
	limiter *rate.Limiter
	log     *zap.Logger
}

// New creates a resolver over lister. Zero config fields take defaults.
func New(lister provider.Lister, cfg Config) *Resolver {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}

	r := &Resolver{
		lister: lister,
		config: cfg,
		log:    cfg.Logger,
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if cfg.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return r
}

// WithFilter sets an optional metadata filter applied after the glob
// predicate. Returns the resolver for method chaining.
func (r *Resolver) WithFilter(f *match.ObjectFilter) *Resolver {
	r.filter = f
	return r
}

// Resolve compiles pattern and returns every object whose key matches it.
//
// All alternatives must list successfully; the first failure is returned
// (as a *ListError) and cancels the remaining branches. Results of
// cancelled or failed branches are discarded. An empty match is not an
// error.
func (r *Resolver) Resolve(ctx context.Context, pattern string) (*Result, error) {
	compiled, err := match.Compile(pattern, r.config.Match)
	if err != nil {
		return nil, err
	}
	return r.ResolvePattern(ctx, compiled)
}

// ResolvePattern is Resolve for an already compiled pattern.
func (r *Resolver) ResolvePattern(ctx context.Context, pattern *match.Pattern) (*Result, error) {
	start := time.Now()

	var pages, listed atomic.Int64
	batches := make([][]provider.ObjectSummary, len(pattern.Sequences))
	prefixes := make([]string, len(pattern.Sequences))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)

	for i, seq := range pattern.Sequences {
		prefix, hasPrefix := match.LongestLiteralPrefix(seq)
		prefixes[i] = prefix

		g.Go(func() error {
			log := r.log.With(zap.Int("branch", i), zap.String("prefix", prefix), zap.Bool("has_prefix", hasPrefix))
			log.Debug("listing branch", zap.String("sequence", seq.String()))

			pager := NewPager(r.lister, prefix, hasPrefix, r.config.MaxKeys).WithLimiter(r.limiter)
			objects, err := pager.All(gctx)
			pages.Add(int64(pager.Pages()))
			if err != nil {
				log.Debug("branch failed", zap.String("code", provider.Code(err)), zap.Error(err))
				return err
			}
			listed.Add(int64(len(objects)))

			kept := make([]provider.ObjectSummary, 0, len(objects))
			for _, obj := range objects {
				if pattern.Match(obj.Key) && r.filter.Match(&obj) {
					kept = append(kept, obj)
				}
			}
			batches[i] = kept

			log.Debug("branch complete",
				zap.Int("pages", pager.Pages()),
				zap.Int("listed", len(objects)),
				zap.Int("matched", len(kept)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := NewMatchSet()
	for _, batch := range batches {
		for _, obj := range batch {
			set.Add(obj)
		}
	}

	return &Result{
		Objects: set.Objects(),
		Summary: Summary{
			Branches:       len(pattern.Sequences),
			Prefixes:       prefixes,
			Pages:          pages.Load(),
			ObjectsListed:  listed.Load(),
			ObjectsMatched: int64(set.Len()),
			BytesTotal:     set.Bytes(),
			Duration:       time.Since(start),
		},
	}, nil
}
