package bucketglob

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/3leaps/bucketglob/pkg/locator"
	"github.com/3leaps/bucketglob/pkg/provider"
	"github.com/3leaps/bucketglob/pkg/provider/azure"
	"github.com/3leaps/bucketglob/pkg/provider/file"
	"github.com/3leaps/bucketglob/pkg/provider/gcs"
	"github.com/3leaps/bucketglob/pkg/provider/s3"
)

// ErrUnsupportedScheme is returned for a locator scheme with no provider.
var ErrUnsupportedScheme = errors.New("unsupported scheme")

// schemes maps locator schemes to providers. s3n and s3a are the Hadoop
// spellings of S3 and list the same buckets.
var schemes = map[string]provider.ProviderType{
	"s3":    provider.ProviderS3,
	"s3n":   provider.ProviderS3,
	"s3a":   provider.ProviderS3,
	"gs":    provider.ProviderGCS,
	"gcs":   provider.ProviderGCS,
	"az":    provider.ProviderAzure,
	"azure": provider.ProviderAzure,
	"file":  provider.ProviderFile,
}

// ProviderFor returns the provider that serves scheme.
func ProviderFor(scheme string) (provider.ProviderType, error) {
	pt, ok := schemes[strings.ToLower(scheme)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
	return pt, nil
}

// Opener constructs the provider that lists loc's container.
type Opener func(ctx context.Context, loc *locator.Locator) (provider.Provider, error)

// Providers holds per-provider settings applied by DefaultOpener. The
// container name always comes from the locator.
type Providers struct {
	S3    s3.Config    `mapstructure:"s3"`
	GCS   gcs.Config   `mapstructure:"gcs"`
	Azure azure.Config `mapstructure:"azure"`

	// FileRoot resolves file:// containers: file://data/x lists FileRoot/data.
	// Empty uses the working directory.
	FileRoot string `mapstructure:"file_root"`
}

// DefaultOpener returns an Opener backed by the real provider packages.
func DefaultOpener(cfg Providers) Opener {
	return func(ctx context.Context, loc *locator.Locator) (provider.Provider, error) {
		pt, err := ProviderFor(loc.Scheme)
		if err != nil {
			return nil, err
		}

		switch pt {
		case provider.ProviderS3:
			c := cfg.S3
			c.Bucket = loc.Container
			return s3.New(ctx, c)
		case provider.ProviderGCS:
			c := cfg.GCS
			c.Bucket = loc.Container
			return gcs.New(ctx, c)
		case provider.ProviderAzure:
			c := cfg.Azure
			c.Container = loc.Container
			return azure.New(c)
		case provider.ProviderFile:
			base, err := fileBase(cfg.FileRoot, loc)
			if err != nil {
				return nil, err
			}
			return file.New(file.Config{BaseDir: base})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, loc.Scheme)
		}
	}
}

// fileBase resolves a file:// container to a directory directly under root.
// Names that could step outside root are rejected before touching disk.
func fileBase(root string, loc *locator.Locator) (string, error) {
	invalid := &locator.ParseError{
		Input:  loc.String(),
		Reason: "file container must name a directory inside the file root",
		Err:    locator.ErrInvalidContainer,
	}

	name := loc.Container
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.VolumeName(name) != "" {
		return "", invalid
	}

	if root == "" {
		root = "."
	}
	base := filepath.Join(root, name)
	rel, err := filepath.Rel(root, base)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", invalid
	}
	return base, nil
}
