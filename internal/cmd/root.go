// Package cmd implements the bucketglob command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketglob/internal/config"
	"github.com/3leaps/bucketglob/internal/observability"
	"github.com/3leaps/bucketglob/internal/server/handlers"
)

// binaryName is used for the logger name and help text.
const binaryName = "bucketglob"

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "unknown",
	BuildDate: "unknown",
}

var (
	cfgFile  string
	verbose  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   binaryName,
	Short: "Resolve glob patterns against object storage",
	Long: `bucketglob lists the objects in an S3, GCS or Azure container whose keys
match a glob pattern such as s3://bucket/logs/**/2024-*.gz.

The longest literal prefix of every brace alternative is listed once, pages
are followed to the end and every key is matched against the full pattern.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		observability.InitCLILogger(binaryName, verbose || logLevel == "debug")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/bucketglob/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// SetVersionInfo records build metadata for the version command and endpoint.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	rootCmd.Version = version
	handlers.SetVersionInfo(version, commit, buildDate)
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var ee *exitCodeError
	if errors.As(err, &ee) {
		observability.CLILogger.Debug("Command failed", zap.Int("exit_code", ee.code), zap.Error(ee.err))
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return ExitCode(err)
}

// loadConfig loads configuration with the command's changed flags as
// runtime overrides.
func loadConfig(ctx context.Context, overrides map[string]any) (*config.Config, error) {
	if cfgFile != "" {
		if err := os.Setenv(config.ConfigFileEnv, cfgFile); err != nil {
			return nil, err
		}
	}
	if logLevel != "" {
		setOverride(overrides, "logging.level", logLevel)
	}
	return config.Load(ctx, overrides)
}

// setOverride stores val at a dotted path in a nested override map.
func setOverride(m map[string]any, path string, val any) {
	cur := m
	for {
		i := indexDot(path)
		if i < 0 {
			cur[path] = val
			return
		}
		key := path[:i]
		next, ok := cur[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[key] = next
		}
		cur = next
		path = path[i+1:]
	}
}

func indexDot(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}
