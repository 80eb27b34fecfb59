package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketglob/internal/config"
	"github.com/3leaps/bucketglob/internal/observability"
	"github.com/3leaps/bucketglob/internal/server"
	"github.com/3leaps/bucketglob/internal/server/handlers"
	"github.com/3leaps/bucketglob/pkg/bucketglob"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve glob resolution over HTTP",
	Long: `Start an HTTP server exposing GET /v1/glob?locator=... alongside
/health, /health/live, /health/ready, /health/startup and /version.

Provider credentials, crawler and filter defaults come from the config file
and BUCKETGLOB_* environment variables; matching options can be overridden
per request with query parameters.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Listen host")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Listen port")
}

func runServe(cmd *cobra.Command, args []string) error {
	overrides := map[string]any{}
	if cmd.Flags().Changed("host") {
		setOverride(overrides, "server.host", serveHost)
	}
	if cmd.Flags().Changed("port") {
		setOverride(overrides, "server.port", servePort)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}

	cfg, err := loadConfig(parent, overrides)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Profile)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := handlers.InitHealthManager(versionInfo.Version)
	health.RegisterChecker("config", configHealthChecker{cfg: cfg})
	health.RegisterChecker("signal", signalHealthChecker{ctx: ctx})

	glob := handlers.NewGlobHandler(cfg.Server.RequestTimeout, serverOptions(cfg, logger)...)
	srv := server.New(cfg.Server.Host, cfg.Server.Port,
		server.WithGlobHandler(glob),
		server.WithLogger(logger),
		server.WithTimeouts(server.Timeouts{
			Read:     cfg.Server.ReadTimeout,
			Write:    cfg.Server.WriteTimeout,
			Idle:     cfg.Server.IdleTimeout,
			Shutdown: cfg.Server.ShutdownTimeout,
		}),
	)

	logger.Info("Starting bucketglob server",
		zap.String("addr", srv.Addr()),
		zap.String("version", versionInfo.Version),
		zap.String("config_file", cfg.File))

	if err := srv.Start(ctx); err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
	}
	logger.Info("Server stopped")
	return nil
}

// serverOptions turns the loaded config into the base options every glob
// request starts from.
func serverOptions(cfg *config.Config, logger *zap.Logger) []bucketglob.Option {
	return []bucketglob.Option{
		bucketglob.WithCrawlerConfig(cfg.Crawler),
		bucketglob.WithFilter(cfg.Filter),
		bucketglob.WithProviders(cfg.Providers),
		bucketglob.WithLogger(logger),
	}
}

// signalHealthChecker reports unhealthy once shutdown has begun, so load
// balancers stop routing before the listener closes.
type signalHealthChecker struct {
	ctx context.Context
}

func (c signalHealthChecker) CheckHealth(ctx context.Context) error {
	if c.ctx == nil {
		return nil
	}
	select {
	case <-c.ctx.Done():
		return errors.New("shutting down")
	default:
		return nil
	}
}

// configHealthChecker re-validates the loaded configuration.
type configHealthChecker struct {
	cfg *config.Config
}

func (c configHealthChecker) CheckHealth(ctx context.Context) error {
	if c.cfg == nil {
		return errors.New("configuration not loaded")
	}
	if err := c.cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	return nil
}
