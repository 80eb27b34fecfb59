package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketglob/internal/observability"
	"github.com/3leaps/bucketglob/pkg/bucketglob"
	"github.com/3leaps/bucketglob/pkg/crawler"
	"github.com/3leaps/bucketglob/pkg/manifest"
	"github.com/3leaps/bucketglob/pkg/output"
)

var runCmd = &cobra.Command{
	Use:   "run <manifest>",
	Short: "Resolve every locator in a glob manifest",
	Long: `Resolve a batch of locators described by a YAML or JSON manifest.

Matching, filter and crawl settings in the manifest apply to every locator.
Provider credentials and endpoints still come from the config file,
BUCKETGLOB_* environment variables and the provider SDK defaults.

A failing locator is reported (as an error record for JSONL output) and the
remaining locators are still resolved, unless crawl.fail_fast is set. The
command exits non-zero when any locator failed.`,
	Example: `  bucketglob run nightly.yaml
  bucketglob run batch.json --log-level debug`,
	Args: cobra.ExactArgs(1),
	RunE: runManifest,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runManifest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	m, err := manifest.Load(args[0])
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return exitError(foundry.ExitFileNotFound, "Manifest not found", err)
		case errors.Is(err, manifest.ErrValidationFailed):
			return exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
		default:
			return exitError(foundry.ExitFileReadError, "Failed to load manifest", err)
		}
	}

	format, err := output.ParseFormat(m.Output.Format)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid output format", err)
	}

	cfg, err := loadConfig(ctx, map[string]any{})
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	out := cmd.OutOrStdout()
	if path := m.Output.DestinationPath(); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to open output destination", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	jobID := m.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	logger := observability.CLILogger.With(zap.String("job_id", jobID))
	opts := []bucketglob.Option{
		bucketglob.WithCrawlerConfig(m.CrawlerConfig()),
		bucketglob.WithFilter(m.Filter()),
		bucketglob.WithProviders(cfg.Providers),
		bucketglob.WithLogger(logger),
	}

	// JSONL sections share one stream; each record carries its locator.
	stream := output.NewJSONLWriter(out, output.Envelope{JobID: jobID})
	defer func() { _ = stream.Close() }()

	var firstErr error
	failed := 0
	for i, raw := range m.Locators {
		section := stream.ForLocator(raw, providerNameOf(raw))

		res, err := bucketglob.Resolve(ctx, raw, opts...)
		if err != nil {
			logger.Warn("Locator failed", zap.String("locator", raw), zap.Error(err))
			if format == output.FormatJSONL {
				writeErrorRecord(section, raw, err)
			}
			failed++
			if firstErr == nil {
				firstErr = err
			}
			if m.Crawl.FailFast || ctx.Err() != nil {
				break
			}
			continue
		}

		if err := writeSection(ctx, out, format, section, i, res); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
	}

	if firstErr != nil {
		msg := fmt.Sprintf("%d of %d locators failed", failed, len(m.Locators))
		return exitError(globExitCode(firstErr), msg, firstErr)
	}
	return nil
}

// writeSection renders one locator's result. JSONL goes through the shared
// stream; table and YAML sections get a header naming the locator.
func writeSection(ctx context.Context, w io.Writer, format output.Format, section *output.JSONLWriter, i int, res *crawler.Result) error {
	raw := section.Envelope().Locator
	var err error
	switch format {
	case output.FormatJSONL:
		return output.WriteResult(ctx, section, res)
	case output.FormatTable:
		if i > 0 {
			_, err = fmt.Fprintln(w)
		}
		if err == nil {
			_, err = fmt.Fprintf(w, "%s\n\n", raw)
		}
	case output.FormatYAML:
		_, err = fmt.Fprintf(w, "---\n# %s\n", raw)
	}
	if err != nil {
		return err
	}
	return output.Render(ctx, w, format, section.Envelope(), res)
}
