package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketglob/internal/observability"
	"github.com/3leaps/bucketglob/pkg/bucketglob"
	"github.com/3leaps/bucketglob/pkg/crawler"
	"github.com/3leaps/bucketglob/pkg/locator"
	"github.com/3leaps/bucketglob/pkg/output"
)

var globCmd = &cobra.Command{
	Use:   "glob <locator>",
	Short: "List the objects whose keys match a glob pattern",
	Long: `Resolve a glob locator against object storage and print the matching
objects.

Locators have the form scheme://container/pattern. Supported schemes are
s3 (also s3n, s3a), gs (also gcs), az (also azure) and file.

Pattern syntax:
  *       any run of characters within one path segment
  ?       one character within a segment
  **      zero or more whole segments
  [abc]   character class, [!abc] negated
  {a,b}   brace alternatives, expanded before listing

Output is JSONL by default: one bucketglob.object.v1 record per match
followed by a bucketglob.summary.v1 record. Use --output table or yaml for
human-readable output.`,
	Example: `  bucketglob glob 's3://my-bucket/logs/2024-*/*.gz'
  bucketglob glob 'gs://data/{raw,curated}/**/*.parquet' --output table
  bucketglob glob 's3://my-bucket/**' --exclude '**/_tmp/**' --min-size 1MB
  bucketglob glob 'file://testdata/**/*.json' --file-root /srv`,
	Args: cobra.ExactArgs(1),
	RunE: runGlob,
}

var (
	globOutput         string
	globDot            bool
	globNoBrace        bool
	globExcludes       []string
	globMinSize        string
	globMaxSize        string
	globModifiedAfter  string
	globModifiedBefore string
	globKeyRegex       string
	globConcurrency    int
	globRateLimit      float64
	globMaxKeys        int
	globRegion         string
	globProfile        string
	globEndpoint       string
	globForcePathStyle bool
	globGCSCredentials string
	globGCSEndpoint    string
	globAzureAccount   string
	globAzureEndpoint  string
	globFileRoot       string
	globJobID          string
	globTimeout        time.Duration
)

func init() {
	rootCmd.AddCommand(globCmd)

	f := globCmd.Flags()
	f.StringVarP(&globOutput, "output", "o", "jsonl", "Output format: jsonl, table or yaml")
	f.BoolVar(&globDot, "dot", false, "Let wildcards match segments starting with '.'")
	f.BoolVar(&globNoBrace, "no-brace", false, "Treat '{' and '}' as literal characters")
	f.StringArrayVar(&globExcludes, "exclude", nil, "Exclude keys matching this pattern (repeatable)")

	f.StringVar(&globMinSize, "min-size", "", "Minimum object size (e.g. 1KB, 100MiB)")
	f.StringVar(&globMaxSize, "max-size", "", "Maximum object size")
	f.StringVar(&globModifiedAfter, "modified-after", "", "Only objects modified at or after this date (2024-01-15 or RFC 3339)")
	f.StringVar(&globModifiedBefore, "modified-before", "", "Only objects modified before this date")
	f.StringVar(&globKeyRegex, "key-regex", "", "Only keys matching this regular expression")

	f.IntVar(&globConcurrency, "concurrency", 4, "Brace alternatives listed in parallel")
	f.Float64Var(&globRateLimit, "rate-limit", 0, "Maximum list requests per second (0 = unlimited)")
	f.IntVar(&globMaxKeys, "max-keys", 0, "Page size requested from the provider (0 = provider default)")

	f.StringVar(&globRegion, "region", "", "S3 region")
	f.StringVar(&globProfile, "profile", "", "AWS shared config profile")
	f.StringVar(&globEndpoint, "endpoint", "", "Custom S3 endpoint (MinIO, Wasabi, moto)")
	f.BoolVar(&globForcePathStyle, "force-path-style", false, "Use path-style S3 addressing")
	f.StringVar(&globGCSCredentials, "gcs-credentials", "", "GCS service account credentials file")
	f.StringVar(&globGCSEndpoint, "gcs-endpoint", "", "Custom GCS endpoint (fake-gcs-server)")
	f.StringVar(&globAzureAccount, "azure-account", "", "Azure storage account name")
	f.StringVar(&globAzureEndpoint, "azure-endpoint", "", "Custom Azure blob endpoint (Azurite)")
	f.StringVar(&globFileRoot, "file-root", "", "Directory file:// containers are resolved against")

	f.StringVar(&globJobID, "job-id", "", "Job ID for JSONL records (default: random UUID)")
	f.DurationVar(&globTimeout, "timeout", 0, "Abort resolution after this duration (0 = no limit)")
}

// globOverrides returns the changed flags as config overrides.
func globOverrides(cmd *cobra.Command) map[string]any {
	bindings := []struct {
		flag  string
		path  string
		value func() any
	}{
		{"dot", "crawler.match.dot", func() any { return globDot }},
		{"no-brace", "crawler.match.no_brace", func() any { return globNoBrace }},
		{"exclude", "crawler.match.excludes", func() any { return globExcludes }},
		{"min-size", "filter.min_size", func() any { return globMinSize }},
		{"max-size", "filter.max_size", func() any { return globMaxSize }},
		{"modified-after", "filter.modified_after", func() any { return globModifiedAfter }},
		{"modified-before", "filter.modified_before", func() any { return globModifiedBefore }},
		{"key-regex", "filter.key_regex", func() any { return globKeyRegex }},
		{"concurrency", "crawler.concurrency", func() any { return globConcurrency }},
		{"rate-limit", "crawler.rate_limit", func() any { return globRateLimit }},
		{"max-keys", "crawler.max_keys", func() any { return globMaxKeys }},
		{"region", "s3.region", func() any { return globRegion }},
		{"profile", "s3.profile", func() any { return globProfile }},
		{"endpoint", "s3.endpoint", func() any { return globEndpoint }},
		{"force-path-style", "s3.force_path_style", func() any { return globForcePathStyle }},
		{"gcs-credentials", "gcs.credentials_file", func() any { return globGCSCredentials }},
		{"gcs-endpoint", "gcs.endpoint", func() any { return globGCSEndpoint }},
		{"azure-account", "azure.account_name", func() any { return globAzureAccount }},
		{"azure-endpoint", "azure.endpoint", func() any { return globAzureEndpoint }},
		{"file-root", "file_root", func() any { return globFileRoot }},
	}

	overrides := map[string]any{}
	for _, b := range bindings {
		if cmd.Flags().Changed(b.flag) {
			setOverride(overrides, b.path, b.value())
		}
	}
	return overrides
}

func runGlob(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	raw := args[0]

	format, err := output.ParseFormat(globOutput)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid --output value", err)
	}

	cfg, err := loadConfig(ctx, globOverrides(cmd))
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	env := output.Envelope{JobID: globJobID, Provider: providerNameOf(raw), Locator: raw}

	if globTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, globTimeout)
		defer cancel()
	}

	logger := observability.CLILogger
	logger.Debug("Resolving locator",
		zap.String("locator", raw),
		zap.String("config_file", cfg.File),
		zap.Int("concurrency", cfg.Crawler.Concurrency))

	res, err := bucketglob.Resolve(ctx, raw,
		bucketglob.WithCrawlerConfig(cfg.Crawler),
		bucketglob.WithFilter(cfg.Filter),
		bucketglob.WithProviders(cfg.Providers),
		bucketglob.WithLogger(logger),
	)
	if err != nil {
		if format == output.FormatJSONL {
			jw := output.NewJSONLWriter(cmd.OutOrStdout(), env)
			writeErrorRecord(jw, raw, err)
			_ = jw.Close()
		}
		return exitError(globExitCode(err), "Glob failed", err)
	}

	logger.Debug("Resolution complete",
		zap.Int("matched", len(res.Objects)),
		zap.Int64("pages", res.Summary.Pages),
		zap.Duration("duration", res.Summary.Duration))

	if err := output.Render(ctx, cmd.OutOrStdout(), format, env, res); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
	}
	return nil
}

// providerNameOf returns the provider that serves raw's scheme, or "" when
// raw does not parse.
func providerNameOf(raw string) string {
	loc, err := locator.Parse(raw)
	if err != nil {
		return ""
	}
	pt, err := bucketglob.ProviderFor(loc.Scheme)
	if err != nil {
		return ""
	}
	return string(pt)
}

// writeErrorRecord emits an error record so JSONL consumers see the failure
// in-stream. Write failures are only logged; the resolution error wins.
func writeErrorRecord(w output.Writer, raw string, err error) {
	rec := &output.ErrorRecord{
		Code:    errorCode(err),
		Message: err.Error(),
		Locator: raw,
	}
	var listErr *crawler.ListError
	if errors.As(err, &listErr) {
		rec.Prefix = listErr.Prefix
	}

	if werr := w.WriteError(context.Background(), rec); werr != nil {
		observability.CLILogger.Warn("Failed to write error record", zap.Error(werr))
	}
}
