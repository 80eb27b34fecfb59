// Package file treats a local directory as an object container.
//
// Keys are slash-separated paths relative to the base directory. Listing is
// sorted lexically, matching S3 ordering, and pages are cut at MaxKeys so the
// provider exercises the same pagination paths as remote stores.
package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/3leaps/bucketglob/pkg/provider"
)

// DefaultMaxKeys is the page size used when ListOptions.MaxKeys is zero.
const DefaultMaxKeys = 1000

// Provider implements provider.Provider for a local directory.
type Provider struct {
	baseDir string
	maxKeys int
}

var _ provider.Provider = (*Provider)(nil)

type Config struct {
	BaseDir string
	MaxKeys int
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base dir is required")
	}
	return nil
}

func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Provider{baseDir: filepath.Clean(cfg.BaseDir), maxKeys: maxKeys}, nil
}

func (p *Provider) Close() error { return nil }

// List walks the base directory and returns the page of keys under Prefix
// that follows the cursor. The continuation token is the last key returned.
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = p.maxKeys
	}

	if _, err := os.Stat(p.baseDir); err != nil {
		if os.IsNotExist(err) {
			return nil, p.wrapError(opts.Prefix, provider.Classify(provider.ErrBucketNotFound, err))
		}
		return nil, p.wrapError(opts.Prefix, err)
	}

	keys, err := p.collectKeys(opts.Prefix)
	if err != nil {
		return nil, p.wrapError(opts.Prefix, err)
	}
	sort.Strings(keys)

	after := opts.ContinuationToken
	if after == "" {
		after = opts.StartAfter
	}
	start := 0
	if after != "" {
		start = sort.Search(len(keys), func(i int) bool { return keys[i] > after })
	}

	end := start + maxKeys
	if end > len(keys) {
		end = len(keys)
	}

	objects := make([]provider.ObjectSummary, 0, end-start)
	for _, k := range keys[start:end] {
		st, err := os.Stat(filepath.Join(p.baseDir, filepath.FromSlash(k)))
		if err != nil || st.IsDir() {
			continue
		}
		objects = append(objects, provider.ObjectSummary{Key: k, Size: st.Size(), LastModified: st.ModTime().UTC()})
	}

	res := &provider.ListResult{Objects: objects}
	if end < len(keys) {
		res.IsTruncated = true
		res.ContinuationToken = keys[end-1]
	}
	return res, nil
}

// collectKeys returns every regular file whose key starts with prefix.
//
// The walk starts at the deepest directory fully named by the prefix so a
// prefix like "test" still finds "test/1.js" and "testing/2.js".
func (p *Provider) collectKeys(prefix string) ([]string, error) {
	dirPart := ""
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dirPart = prefix[:i]
	}
	root, err := p.fullPath(dirPart)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var keys []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(p.baseDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (p *Provider) fullPath(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	// Prevent path traversal.
	clean := strings.TrimPrefix(filepath.Clean("/"+key), "/")
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key path")
	}
	return filepath.Join(p.baseDir, filepath.FromSlash(clean)), nil
}

func (p *Provider) wrapError(prefix string, err error) error {
	wrapped := &provider.ProviderError{Op: "List", Provider: provider.ProviderFile, Bucket: p.baseDir, Prefix: prefix, Err: err}
	if os.IsPermission(err) {
		wrapped.Err = provider.Classify(provider.ErrAccessDenied, err)
	}
	return wrapped
}
