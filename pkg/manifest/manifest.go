// Package manifest loads glob manifests: a batch of locators resolved with
// shared matching, filter, crawl and output settings.
//
// Manifests are YAML or JSON and are validated against an embedded JSON
// Schema that rejects unknown properties.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	locators:
//	  - s3://my-data-bucket/data/2024/**/*.parquet
//	  - gs://archive/{raw,curated}/*.csv
//	match:
//	  excludes:
//	    - "**/_temporary/**"
//	filters:
//	  size:
//	    min: 1KiB
//	crawl:
//	  concurrency: 8
//	output:
//	  format: jsonl
//	  destination: file:/tmp/matches.jsonl
package manifest

import (
	"strings"

	"github.com/3leaps/bucketglob/pkg/crawler"
	"github.com/3leaps/bucketglob/pkg/match"
)

// Manifest is a validated glob manifest.
type Manifest struct {
	// Schema is an optional JSON Schema reference for editor support.
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version must be "1.0".
	Version string `json:"version" yaml:"version"`

	// JobID tags every JSONL record of the run. Empty generates one.
	JobID string `json:"job_id,omitempty" yaml:"job_id,omitempty"`

	// Locators are resolved in order.
	Locators []string `json:"locators" yaml:"locators"`

	Match   MatchConfig   `json:"match,omitempty" yaml:"match,omitempty"`
	Filters *FilterConfig `json:"filters,omitempty" yaml:"filters,omitempty"`
	Crawl   CrawlConfig   `json:"crawl,omitempty" yaml:"crawl,omitempty"`
	Output  OutputConfig  `json:"output,omitempty" yaml:"output,omitempty"`
}

// MatchConfig mirrors match.Options.
type MatchConfig struct {
	Dot      bool     `json:"dot,omitempty" yaml:"dot,omitempty"`
	NoBrace  bool     `json:"no_brace,omitempty" yaml:"no_brace,omitempty"`
	Excludes []string `json:"excludes,omitempty" yaml:"excludes,omitempty"`
}

// FilterConfig specifies metadata filters. All parts are optional and
// compose with AND semantics.
type FilterConfig struct {
	Size     *SizeFilterConfig `json:"size,omitempty" yaml:"size,omitempty"`
	Modified *DateFilterConfig `json:"modified,omitempty" yaml:"modified,omitempty"`

	// KeyRegex is applied to keys after glob matching, e.g. "TXN-\\d{8}".
	KeyRegex string `json:"key_regex,omitempty" yaml:"key_regex,omitempty"`
}

// SizeFilterConfig holds inclusive size bounds such as "1KB" or "100MiB".
type SizeFilterConfig struct {
	Min string `json:"min,omitempty" yaml:"min,omitempty"`
	Max string `json:"max,omitempty" yaml:"max,omitempty"`
}

// DateFilterConfig holds a modification window. After is inclusive, Before
// exclusive.
type DateFilterConfig struct {
	After  string `json:"after,omitempty" yaml:"after,omitempty"`
	Before string `json:"before,omitempty" yaml:"before,omitempty"`
}

// CrawlConfig configures the resolver for every locator.
type CrawlConfig struct {
	// Concurrency caps alternatives listed in parallel. Range 1-64.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`

	// RateLimit is list requests per second, 0 for unlimited.
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`

	// MaxKeys is the requested page size, 0 for the provider default.
	MaxKeys int `json:"max_keys,omitempty" yaml:"max_keys,omitempty"`

	// FailFast stops at the first locator that fails. By default the
	// remaining locators are still resolved.
	FailFast bool `json:"fail_fast,omitempty" yaml:"fail_fast,omitempty"`
}

// OutputConfig selects the output format and destination.
type OutputConfig struct {
	// Format is jsonl, table or yaml.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// Destination is "stdout" or "file:/path/to/output".
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`
}

// Default values for optional fields.
const (
	DefaultVersion     = "1.0"
	DefaultConcurrency = 4
	DefaultFormat      = "jsonl"
	DefaultDestination = "stdout"
)

// destinationFilePrefix marks a file destination.
const destinationFilePrefix = "file:"

// ApplyDefaults fills in optional fields left empty.
func (m *Manifest) ApplyDefaults() {
	if m.Crawl.Concurrency == 0 {
		m.Crawl.Concurrency = DefaultConcurrency
	}
	if m.Output.Format == "" {
		m.Output.Format = DefaultFormat
	}
	if m.Output.Destination == "" {
		m.Output.Destination = DefaultDestination
	}
}

// MatchOptions returns the options passed to match.Compile.
func (m *Manifest) MatchOptions() match.Options {
	return match.Options{
		Dot:      m.Match.Dot,
		NoBrace:  m.Match.NoBrace,
		Excludes: m.Match.Excludes,
	}
}

// CrawlerConfig returns the resolver configuration, match options included.
func (m *Manifest) CrawlerConfig() crawler.Config {
	return crawler.Config{
		Concurrency: m.Crawl.Concurrency,
		RateLimit:   m.Crawl.RateLimit,
		MaxKeys:     m.Crawl.MaxKeys,
		Match:       m.MatchOptions(),
	}
}

// Filter returns the metadata filter configuration.
func (m *Manifest) Filter() match.FilterConfig {
	var fc match.FilterConfig
	if m.Filters == nil {
		return fc
	}
	if s := m.Filters.Size; s != nil {
		fc.MinSize = s.Min
		fc.MaxSize = s.Max
	}
	if d := m.Filters.Modified; d != nil {
		fc.ModifiedAfter = d.After
		fc.ModifiedBefore = d.Before
	}
	fc.KeyRegex = m.Filters.KeyRegex
	return fc
}

// DestinationPath returns the file path of a file: destination, or "" for
// stdout.
func (o OutputConfig) DestinationPath() string {
	path, ok := strings.CutPrefix(o.Destination, destinationFilePrefix)
	if !ok {
		return ""
	}
	return path
}
