package file

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/bucketglob/pkg/provider"
)

func writeTree(t *testing.T, base string, keys ...string) {
	t.Helper()
	for _, k := range keys {
		full := filepath.Join(base, filepath.FromSlash(k))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(k), 0o644))
	}
}

func keysOf(objs []provider.ObjectSummary) []string {
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Key)
	}
	return out
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{BaseDir: "  "}.Validate())
	assert.NoError(t, Config{BaseDir: "/tmp"}.Validate())
}

func TestList_PrefixIsStringPrefix(t *testing.T) {
	base := t.TempDir()
	writeTree(t, base, "test/1.js", "test/1/2/3.js", "testing/x.js", "other/stuff.js")

	p, err := New(Config{BaseDir: base})
	require.NoError(t, err)

	res, err := p.List(context.Background(), provider.ListOptions{Prefix: "test"})
	require.NoError(t, err)
	assert.Equal(t, []string{"test/1.js", "test/1/2/3.js", "testing/x.js"}, keysOf(res.Objects))
	assert.False(t, res.IsTruncated)

	res, err = p.List(context.Background(), provider.ListOptions{Prefix: "test/1/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"test/1/2/3.js"}, keysOf(res.Objects))
}

func TestList_Paginates(t *testing.T) {
	base := t.TempDir()
	writeTree(t, base, "a", "b", "c", "d", "e")

	p, err := New(Config{BaseDir: base, MaxKeys: 2})
	require.NoError(t, err)

	ctx := context.Background()
	var all []string
	opts := provider.ListOptions{}
	for i := 0; i < 10; i++ {
		res, err := p.List(ctx, opts)
		require.NoError(t, err)
		all = append(all, keysOf(res.Objects)...)
		if !res.IsTruncated {
			break
		}
		opts.ContinuationToken = res.ContinuationToken
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, all)
}

func TestList_StartAfter(t *testing.T) {
	base := t.TempDir()
	writeTree(t, base, "a", "b", "c")

	p, err := New(Config{BaseDir: base})
	require.NoError(t, err)

	res, err := p.List(context.Background(), provider.ListOptions{StartAfter: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, keysOf(res.Objects))
}

func TestList_MissingPrefixIsEmpty(t *testing.T) {
	base := t.TempDir()
	writeTree(t, base, "a/b")

	p, err := New(Config{BaseDir: base})
	require.NoError(t, err)

	res, err := p.List(context.Background(), provider.ListOptions{Prefix: "nope/x"})
	require.NoError(t, err)
	assert.Empty(t, res.Objects)
}

func TestList_MissingBaseDir(t *testing.T) {
	p, err := New(Config{BaseDir: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)

	_, err = p.List(context.Background(), provider.ListOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrBucketNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestList_CancelledContext(t *testing.T) {
	p, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.List(ctx, provider.ListOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
