package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/3leaps/bucketglob/pkg/provider"
)

// pagedLister serves fixed pages per prefix. Truncated pages get a
// continuation token naming the next page index.
type pagedLister struct {
	mu    sync.Mutex
	pages map[string][]provider.ListResult
	errs  map[string]error
	calls []provider.ListOptions
}

func newPagedLister() *pagedLister {
	return &pagedLister{
		pages: make(map[string][]provider.ListResult),
		errs:  make(map[string]error),
	}
}

func (l *pagedLister) addPage(prefix string, truncated bool, keys ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pages[prefix] = append(l.pages[prefix], provider.ListResult{
		Objects:     objects(keys...),
		IsTruncated: truncated,
	})
}

func (l *pagedLister) failPrefix(prefix string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs[prefix] = err
}

func (l *pagedLister) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, opts)

	if err := l.errs[opts.Prefix]; err != nil {
		return nil, err
	}

	idx := 0
	if opts.ContinuationToken != "" {
		if _, err := fmt.Sscanf(opts.ContinuationToken, "page-%d", &idx); err != nil {
			return nil, err
		}
	}
	pages := l.pages[opts.Prefix]
	if idx >= len(pages) {
		return &provider.ListResult{}, nil
	}

	page := pages[idx]
	out := &provider.ListResult{Objects: page.Objects, IsTruncated: page.IsTruncated}
	if page.IsTruncated {
		out.ContinuationToken = fmt.Sprintf("page-%d", idx+1)
	}
	return out, nil
}

func (l *pagedLister) recorded() []provider.ListOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]provider.ListOptions(nil), l.calls...)
}

// listerFunc adapts a function to provider.Lister.
type listerFunc func(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error)

func (f listerFunc) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	return f(ctx, opts)
}

func objects(keys ...string) []provider.ObjectSummary {
	out := make([]provider.ObjectSummary, len(keys))
	for i, k := range keys {
		out[i] = provider.ObjectSummary{Key: k, Size: int64(len(k))}
	}
	return out
}

func keysOf(objs []provider.ObjectSummary) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.Key
	}
	return out
}

func TestListAll_SinglePage(t *testing.T) {
	l := newPagedLister()
	l.addPage("logs", false, "logs/a", "logs/b")

	got, err := ListAll(context.Background(), l, "logs", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"logs/a", "logs/b"}, keysOf(got))

	// No probing request after a final page.
	assert.Len(t, l.recorded(), 1)
}

func TestListAll_ConcatenatesPages(t *testing.T) {
	l := newPagedLister()
	l.addPage("p", true, "p/1", "p/2")
	l.addPage("p", true, "p/3")
	l.addPage("p", true, "p/4", "p/5")
	l.addPage("p", false, "p/6")

	got, err := ListAll(context.Background(), l, "p", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"p/1", "p/2", "p/3", "p/4", "p/5", "p/6"}, keysOf(got))

	calls := l.recorded()
	require.Len(t, calls, 4)
	assert.Equal(t, "", calls[0].ContinuationToken)
	assert.Equal(t, "page-1", calls[1].ContinuationToken)
	assert.Equal(t, "page-2", calls[2].ContinuationToken)
	assert.Equal(t, "page-3", calls[3].ContinuationToken)
	for _, c := range calls {
		assert.Equal(t, "p", c.Prefix)
	}
}

func TestListAll_NoPrefix(t *testing.T) {
	l := newPagedLister()
	l.addPage("", false, "a.js")

	// A stray prefix is ignored when hasPrefix is false.
	got, err := ListAll(context.Background(), l, "ignored", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js"}, keysOf(got))
	assert.Equal(t, "", l.recorded()[0].Prefix)
}

func TestListAll_EmptyTruncatedPageStops(t *testing.T) {
	calls := 0
	l := listerFunc(func(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
		calls++
		if calls == 1 {
			return &provider.ListResult{Objects: objects("a"), IsTruncated: true, ContinuationToken: "t1"}, nil
		}
		return &provider.ListResult{IsTruncated: true, ContinuationToken: "t2"}, nil
	})

	got, err := ListAll(context.Background(), l, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keysOf(got))
	assert.Equal(t, 2, calls)
}

func TestListAll_EmptyContainer(t *testing.T) {
	l := newPagedLister()

	got, err := ListAll(context.Background(), l, "nothing", true)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListAll_StartAfterFallback(t *testing.T) {
	var seen []provider.ListOptions
	l := listerFunc(func(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
		seen = append(seen, opts)
		if opts.StartAfter == "" {
			return &provider.ListResult{Objects: objects("k1", "k2"), IsTruncated: true}, nil
		}
		return &provider.ListResult{Objects: objects("k3")}, nil
	})

	got, err := ListAll(context.Background(), l, "k", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2", "k3"}, keysOf(got))
	require.Len(t, seen, 2)
	assert.Equal(t, "k2", seen[1].StartAfter)
	assert.Empty(t, seen[1].ContinuationToken)
}

func TestListAll_StalledCursor(t *testing.T) {
	calls := 0
	l := listerFunc(func(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
		calls++
		return &provider.ListResult{Objects: objects("same"), IsTruncated: true, ContinuationToken: "stuck"}, nil
	})

	_, err := ListAll(context.Background(), l, "", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCursorStalled)
	assert.Equal(t, 2, calls)
}

func TestListAll_ErrorWrapsCause(t *testing.T) {
	cause := &provider.ProviderError{Op: "List", Provider: provider.ProviderS3, Bucket: "b", Err: provider.ErrAccessDenied}
	l := newPagedLister()
	l.failPrefix("secret", cause)

	got, err := ListAll(context.Background(), l, "secret", true)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, provider.ErrAccessDenied)

	var listErr *ListError
	require.True(t, errors.As(err, &listErr))
	assert.Equal(t, "secret", listErr.Prefix)
	assert.Same(t, cause, listErr.Err)
}

func TestListAll_ErrorOnLaterPage(t *testing.T) {
	boom := errors.New("connection reset")
	calls := 0
	l := listerFunc(func(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
		calls++
		if calls == 2 {
			return nil, boom
		}
		return &provider.ListResult{Objects: objects("a"), IsTruncated: true, ContinuationToken: "t"}, nil
	})

	got, err := ListAll(context.Background(), l, "", false)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}

func TestPager_Next(t *testing.T) {
	l := newPagedLister()
	l.addPage("x", true, "x/1")
	l.addPage("x", false, "x/2")

	p := NewPager(l, "x", true, 10)
	prefix, ok := p.Prefix()
	assert.Equal(t, "x", prefix)
	assert.True(t, ok)

	ctx := context.Background()
	require.NoError(t, p.Next(ctx))
	assert.False(t, p.Done())
	assert.Equal(t, 1, p.Pages())
	assert.Equal(t, []string{"x/1"}, keysOf(p.Objects()))

	require.NoError(t, p.Next(ctx))
	assert.True(t, p.Done())
	assert.Equal(t, []string{"x/1", "x/2"}, keysOf(p.Objects()))

	// Done pagers issue no further requests.
	require.NoError(t, p.Next(ctx))
	assert.Len(t, l.recorded(), 2)
	assert.Equal(t, 10, l.recorded()[0].MaxKeys)
}

func TestPager_CancelledContext(t *testing.T) {
	l := newPagedLister()
	l.addPage("", false, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPager(l, "", false, 0).All(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, l.recorded())
}

func TestPager_LimiterWaitFails(t *testing.T) {
	l := newPagedLister()
	l.addPage("", false, "a")

	// Burst of zero can never be satisfied.
	limiter := rate.NewLimiter(rate.Limit(1), 0)
	_, err := NewPager(l, "", false, 0).WithLimiter(limiter).All(context.Background())
	require.Error(t, err)
	assert.Empty(t, l.recorded())
}

func TestListError_Error(t *testing.T) {
	cause := errors.New("boom")
	assert.Equal(t, `list prefix "logs": boom`, (&ListError{Prefix: "logs", Err: cause}).Error())
	assert.Equal(t, "list (no prefix): boom", (&ListError{Err: cause}).Error())
}
