// Package config loads bucketglob configuration.
//
// Precedence, lowest to highest: built-in defaults, the YAML config file,
// BUCKETGLOB_* environment variables, runtime overrides (CLI flags).
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/3leaps/bucketglob/internal/observability"
	"github.com/3leaps/bucketglob/pkg/bucketglob"
	"github.com/3leaps/bucketglob/pkg/crawler"
	"github.com/3leaps/bucketglob/pkg/match"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "BUCKETGLOB_"

// ConfigFileEnv names an explicit config file and bypasses discovery.
const ConfigFileEnv = EnvPrefix + "CONFIG"

// appName is the directory name under the user config dir.
const appName = "bucketglob"

// Config is the complete application configuration.
type Config struct {
	Logging LoggingConfig      `mapstructure:"logging"`
	Server  ServerConfig       `mapstructure:"server"`
	Crawler crawler.Config     `mapstructure:"crawler"`
	Filter  match.FilterConfig `mapstructure:"filter"`

	// Providers holds the s3, gcs, azure and file_root sections.
	Providers bucketglob.Providers `mapstructure:",squash"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// RequestTimeout bounds a single glob request, listing included.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EnvSpec maps one environment variable to a config path.
type EnvSpec struct {
	Name string
	Path string
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// Load builds the configuration and makes it available through GetConfig.
// Each overrides map is nested like the YAML file, e.g.
// {"server": {"port": 9000}}; later maps win.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	applyDefaults(v)

	file, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Path, spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	cfg.File = file

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// Validate checks ranges that the decoder cannot.
func (c *Config) Validate() error {
	if _, err := observability.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Logging.Profile) {
	case observability.ProfileStructured, observability.ProfileConsole:
	default:
		return fmt.Errorf("%w: logging.profile: %q (expected structured or console)", ErrInvalidConfig, c.Logging.Profile)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port: %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Crawler.Concurrency < 1 {
		return fmt.Errorf("%w: crawler.concurrency must be >= 1", ErrInvalidConfig)
	}
	if c.Crawler.RateLimit < 0 {
		return fmt.Errorf("%w: crawler.rate_limit must be >= 0", ErrInvalidConfig)
	}
	if c.Crawler.MaxKeys < 0 {
		return fmt.Errorf("%w: crawler.max_keys must be >= 0", ErrInvalidConfig)
	}
	return nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", observability.ProfileConsole)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 5*time.Minute)

	def := crawler.DefaultConfig()
	v.SetDefault("crawler.concurrency", def.Concurrency)
	v.SetDefault("crawler.rate_limit", def.RateLimit)
	v.SetDefault("crawler.max_keys", def.MaxKeys)
	v.SetDefault("crawler.match.dot", false)
	v.SetDefault("crawler.match.no_brace", false)
	v.SetDefault("crawler.match.excludes", []string{})

	v.SetDefault("s3.force_path_style", false)
	v.SetDefault("file_root", "")
}

// readConfigFile reads the first config file found. A missing file is not
// an error; an unreadable or malformed one is.
func readConfigFile(v *viper.Viper) (string, error) {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config %s: %w", explicit, err)
		}
		return explicit, nil
	}

	for _, path := range getUserConfigPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config %s: %w", path, err)
		}
		return path, nil
	}
	return "", nil
}

// getUserConfigPaths lists config file candidates in lookup order.
func getUserConfigPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		paths = append(paths,
			filepath.Join(dir, appName, "config.yaml"),
			filepath.Join(dir, appName, "config.yml"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, "."+appName+".yaml"))
	}
	return paths
}

// getEnvSpecs returns the environment variables the loader binds.
func getEnvSpecs() []EnvSpec {
	specs := []EnvSpec{
		{Name: "LOG_LEVEL", Path: "logging.level"},
		{Name: "LOG_PROFILE", Path: "logging.profile"},

		{Name: "HOST", Path: "server.host"},
		{Name: "PORT", Path: "server.port"},
		{Name: "READ_TIMEOUT", Path: "server.read_timeout"},
		{Name: "WRITE_TIMEOUT", Path: "server.write_timeout"},
		{Name: "IDLE_TIMEOUT", Path: "server.idle_timeout"},
		{Name: "SHUTDOWN_TIMEOUT", Path: "server.shutdown_timeout"},
		{Name: "REQUEST_TIMEOUT", Path: "server.request_timeout"},

		{Name: "CONCURRENCY", Path: "crawler.concurrency"},
		{Name: "RATE_LIMIT", Path: "crawler.rate_limit"},
		{Name: "MAX_KEYS", Path: "crawler.max_keys"},
		{Name: "DOT", Path: "crawler.match.dot"},
		{Name: "NO_BRACE", Path: "crawler.match.no_brace"},
		{Name: "EXCLUDE", Path: "crawler.match.excludes"},

		{Name: "S3_REGION", Path: "s3.region"},
		{Name: "S3_ENDPOINT", Path: "s3.endpoint"},
		{Name: "S3_PROFILE", Path: "s3.profile"},
		{Name: "S3_FORCE_PATH_STYLE", Path: "s3.force_path_style"},

		{Name: "GCS_CREDENTIALS_FILE", Path: "gcs.credentials_file"},
		{Name: "GCS_ENDPOINT", Path: "gcs.endpoint"},

		{Name: "AZURE_ACCOUNT_NAME", Path: "azure.account_name"},
		{Name: "AZURE_ACCOUNT_KEY", Path: "azure.account_key"},
		{Name: "AZURE_ENDPOINT", Path: "azure.endpoint"},

		{Name: "FILE_ROOT", Path: "file_root"},
	}
	for i := range specs {
		specs[i].Name = EnvPrefix + specs[i].Name
	}
	return specs
}

// flatten turns {"server": {"port": 1}} into {"server.port": 1}.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := m[k].(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = m[k]
	}
	return out
}
