package packager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/streamlinelabs/streamline-installer/internal/config"
	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/logger"
	"github.com/streamlinelabs/streamline-installer/internal/service/fetcher"
)

// DefaultOutput is where the integrity record is written by default.
const DefaultOutput = "checksums.yaml"

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is an optional settings file providing release coordinates.
	ConfigPath string
	// Version is the release to hash; defaults to the configured version.
	Version string
	// Output is the integrity record path (defaults to checksums.yaml).
	Output string
	// ArtifactDir reads archives from a local directory instead of downloading them.
	ArtifactDir string
	// Strict fails when any platform is left with a placeholder.
	Strict bool
}

// Downloader retrieves a release archive without verifying it.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// packager computes the integrity record for one release.
// It is unexported; callers should use Run, which loads configuration first.
type packager struct {
	// coords locate the release archives.
	coords release.Coordinates
	// version is the release being hashed.
	version string
	// artifactDir, when set, replaces downloads with local reads.
	artifactDir string
	// downloader fetches remote archives.
	downloader Downloader
}

// errIncomplete is returned in strict mode when some platforms have no hash.
var errIncomplete = errors.New("integrity record is incomplete")

// Run executes the packaging workflow and returns the written record.
func Run(ctx context.Context, opts *Options, downloader Downloader) (*release.IntegrityRecord, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "streamline-packager")

	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}

		cfg = loaded
	}

	if opts.Version != "" {
		cfg.Version = strings.TrimPrefix(opts.Version, "v")
	}

	if downloader == nil {
		downloader = fetcher.New(fetcher.WithTimeout(cfg.Timeout))
	}

	pkg := &packager{
		coords:      cfg.Release.Coordinates,
		version:     cfg.Version,
		artifactDir: opts.ArtifactDir,
		downloader:  downloader,
	}

	record := pkg.compute(ctx)

	output := opts.Output
	if output == "" {
		output = DefaultOutput
	}

	logger.InfoKV(ctx, "Saving integrity record", "path", output)

	if err := release.SaveIntegrityRecord(output, record); err != nil {
		return nil, err
	}

	pending := record.Pending()
	pkg.printNextSteps(ctx, output, pending)

	if opts.Strict && len(pending) > 0 {
		return record, fmt.Errorf("%w: %d of %d platforms pending", errIncomplete, len(pending), len(release.SupportedPlatforms()))
	}

	return record, nil
}

// compute hashes every supported platform. Failures leave the placeholder in place.
func (p *packager) compute(ctx context.Context) *release.IntegrityRecord {
	record := release.NewIntegrityRecord(p.version)

	for _, key := range release.SupportedPlatforms() {
		platformCtx := logger.WithKV(ctx, "platform", key.String())

		data, source, err := p.read(ctx, key)
		if err != nil {
			logger.WarnKV(platformCtx, "Artifact unavailable, keeping placeholder", "source", source, "error", err)

			continue
		}

		sum := sha256.Sum256(data)
		digest := hex.EncodeToString(sum[:])

		//nolint:errcheck // A freshly encoded digest is always valid.
		_ = record.Set(key, digest)

		logger.InfoKV(platformCtx, "Artifact hashed", "source", source, "sha256", digest)
	}

	return record
}

// read returns the archive bytes for key and where they came from.
func (p *packager) read(ctx context.Context, key release.PlatformKey) ([]byte, string, error) {
	if p.artifactDir != "" {
		path := filepath.Join(p.artifactDir, p.coords.ArtifactName(p.version, key))
		data, err := os.ReadFile(filepath.Clean(path))

		return data, path, err
	}

	url := p.coords.ArtifactURL(p.version, key)
	data, err := p.downloader.Download(ctx, url)

	return data, url, err
}

// printNextSteps logs human-readable guidance for the created record.
func (p *packager) printNextSteps(ctx context.Context, output string, pending []release.PlatformKey) {
	var builder strings.Builder

	builder.WriteString("Integrity record for version ")
	builder.WriteString(p.version)
	builder.WriteString(" written to ")
	builder.WriteString(output)
	builder.WriteString(".\nPoint the installer at it with:\n  release:\n    checksums_file: ")
	builder.WriteString(output)

	if len(pending) > 0 {
		builder.WriteString("\nThe following platforms still hold a placeholder and cannot be installed:")

		for _, key := range pending {
			builder.WriteString("\n  ")
			builder.WriteString(key.Triple())
		}
	}

	logger.Info(ctx, builder.String())
}
