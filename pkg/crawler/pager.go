package crawler

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/3leaps/bucketglob/pkg/provider"
)

// ErrCursorStalled is returned when a truncated page yields the same cursor
// that produced it. Following it would request the same page forever.
var ErrCursorStalled = errors.New("listing cursor did not advance")

// ListError reports a failed listing for one prefix. The provider error is
// preserved for errors.Is/As.
type ListError struct {
	Prefix string
	Err    error
}

func (e *ListError) Error() string {
	if e.Prefix == "" {
		return fmt.Sprintf("list (no prefix): %v", e.Err)
	}
	return fmt.Sprintf("list prefix %q: %v", e.Prefix, e.Err)
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// Pager walks every page of one prefix listing.
//
// Each call to Next issues exactly one List request and advances the cursor.
// Pages are accumulated in request order. A Pager is not safe for concurrent
// use; the resolver gives each branch its own.
type Pager struct {
	lister  provider.Lister
	limiter *rate.Limiter

	prefix    string
	hasPrefix bool
	maxKeys   int

	cursor  provider.ListOptions
	objects []provider.ObjectSummary
	pages   int
	done    bool
}

// NewPager creates a pager for prefix. hasPrefix false lists the whole
// container. maxKeys of zero leaves the page size to the provider.
func NewPager(lister provider.Lister, prefix string, hasPrefix bool, maxKeys int) *Pager {
	if !hasPrefix {
		prefix = ""
	}
	return &Pager{
		lister:    lister,
		prefix:    prefix,
		hasPrefix: hasPrefix,
		maxKeys:   maxKeys,
	}
}

// WithLimiter paces Next through l. A nil limiter disables pacing.
func (p *Pager) WithLimiter(l *rate.Limiter) *Pager {
	p.limiter = l
	return p
}

// Next fetches the page at the current cursor.
//
// The pager is done after a page that is not truncated, or one that holds
// no entries at all (even if it claims truncation). When a truncated page
// has no continuation token the last key is used as StartAfter.
func (p *Pager) Next(ctx context.Context) error {
	if p.done {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return p.fail(err)
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return p.fail(err)
		}
	}

	opts := p.cursor
	opts.Prefix = p.prefix
	opts.MaxKeys = p.maxKeys

	page, err := p.lister.List(ctx, opts)
	if err != nil {
		return p.fail(err)
	}
	p.pages++

	if len(page.Objects) == 0 {
		p.done = true
		return nil
	}
	p.objects = append(p.objects, page.Objects...)
	if !page.IsTruncated {
		p.done = true
		return nil
	}

	next := provider.ListOptions{ContinuationToken: page.ContinuationToken}
	if next.ContinuationToken == "" {
		next.StartAfter = page.Objects[len(page.Objects)-1].Key
	}
	if next.ContinuationToken == p.cursor.ContinuationToken && next.StartAfter == p.cursor.StartAfter {
		return p.fail(ErrCursorStalled)
	}
	p.cursor = next
	return nil
}

// All advances the pager until it is done and returns every entry.
func (p *Pager) All(ctx context.Context) ([]provider.ObjectSummary, error) {
	for !p.done {
		if err := p.Next(ctx); err != nil {
			return nil, err
		}
	}
	return p.objects, nil
}

// Done reports whether the last page has been fetched.
func (p *Pager) Done() bool { return p.done }

// Objects returns the entries accumulated so far.
func (p *Pager) Objects() []provider.ObjectSummary { return p.objects }

// Pages returns the number of successful List calls.
func (p *Pager) Pages() int { return p.pages }

// Prefix returns the listing prefix and whether one is applied.
func (p *Pager) Prefix() (string, bool) { return p.prefix, p.hasPrefix }

func (p *Pager) fail(err error) error {
	p.done = true
	return &ListError{Prefix: p.prefix, Err: err}
}

// ListAll returns every entry under prefix, pages concatenated in request
// order.
func ListAll(ctx context.Context, lister provider.Lister, prefix string, hasPrefix bool) ([]provider.ObjectSummary, error) {
	return NewPager(lister, prefix, hasPrefix, 0).All(ctx)
}
