package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/streamlinelabs/streamline-installer/internal/config"
	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/logger"
	"github.com/streamlinelabs/streamline-installer/internal/repository/receipt"
	"github.com/streamlinelabs/streamline-installer/internal/service/common"
	"github.com/streamlinelabs/streamline-installer/internal/service/fetcher"
	"github.com/streamlinelabs/streamline-installer/internal/service/installer"
)

// ArtifactFetcher downloads and verifies a release artifact.
type ArtifactFetcher interface {
	Fetch(ctx context.Context, desc release.ArtifactDescriptor) (*fetcher.VerifiedArtifact, error)
}

// Provisioner installs one release into one layout.
type Provisioner struct {
	layout     config.Layout
	fetcher    ArtifactFetcher
	builder    installer.Builder
	installer  *installer.Installer
	receipts   receipt.Repository
	retries    int
	retryDelay time.Duration
	stagingDir string
	now        func() time.Time
}

// Option customises a Provisioner.
type Option func(*Provisioner)

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f ArtifactFetcher) Option {
	return func(p *Provisioner) {
		p.fetcher = f
	}
}

// WithBuilder replaces the cargo builder.
func WithBuilder(b installer.Builder) Option {
	return func(p *Provisioner) {
		p.builder = b
	}
}

// WithStagingDir sets where archives are extracted and sources are built.
func WithStagingDir(dir string) Option {
	return func(p *Provisioner) {
		p.stagingDir = dir
	}
}

// New creates a Provisioner from validated configuration.
func New(cfg *config.Config, opts ...Option) *Provisioner {
	layout := cfg.Layout()

	p := &Provisioner{
		layout:     layout,
		fetcher:    fetcher.New(fetcher.WithTimeout(cfg.Timeout)),
		installer:  installer.New(layout),
		receipts:   receipt.NewFileRepository(layout.ReceiptPath),
		retries:    cfg.FetchRetries,
		retryDelay: cfg.RetryDelay,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ResolveSource turns the configured mode into the Source variant. In source mode
// the platform is not resolved and no descriptor is built.
func ResolveSource(cfg *config.Config, key release.PlatformKey) (release.Source, error) {
	if cfg.Mode == release.ModeSource {
		return release.FromSource{Build: cfg.BuildSpec()}, nil
	}

	record, err := cfg.IntegrityRecord()
	if err != nil {
		return nil, err
	}

	desc, err := release.NewDescriptor(key, cfg.Version, cfg.Release.Coordinates, record)
	if err != nil {
		return nil, err
	}

	return release.Precompiled{Descriptor: desc}, nil
}

// Install obtains the binaries from src, installs them, prepares the runtime
// directories and records a receipt.
func (p *Provisioner) Install(ctx context.Context, src release.Source) (*release.Receipt, error) {
	ctx = logger.WithName(ctx, "provision")

	unlock, err := acquireLock(ctx, p.layout.VarDir)
	if err != nil {
		return nil, err
	}

	defer unlock()

	staging, err := os.MkdirTemp(p.stagingDir, "streamline-install-*")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	defer func() {
		_ = os.RemoveAll(staging)
	}()

	rec := &release.Receipt{
		Mode:     src.Kind(),
		DataDir:  p.layout.DataDir,
		LogPath:  p.layout.LogPath,
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}

	var binaries release.BinarySet

	switch s := src.(type) {
	case release.Precompiled:
		binaries, err = p.obtainPrecompiled(ctx, s.Descriptor, staging, rec)
	case release.FromSource:
		rec.Version = HeadVersion
		binaries, err = p.obtainFromSource(ctx, s.Build, staging)
	default:
		err = fmt.Errorf("%w: %T", errUnknownSource, src)
	}

	if err != nil {
		return nil, err
	}

	installed, err := p.installer.Install(ctx, binaries)
	if err != nil {
		return nil, fmt.Errorf("install binaries: %w", err)
	}

	if err = p.installer.PrepareRuntime(ctx); err != nil {
		return nil, err
	}

	rec.Binaries = installed
	rec.InstalledAt = p.now().UTC()

	if actor, actorErr := common.DetectActor(); actorErr == nil {
		rec.InstalledBy = actor
	} else {
		logger.WarnKV(ctx, "Could not detect installing user", "error", actorErr)
	}

	if err = p.receipts.Save(ctx, rec); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Install complete",
		"mode", rec.Mode, "version", rec.Version, "bin_dir", p.layout.BinDir, "receipt", p.layout.ReceiptPath)

	return rec, nil
}

// HeadVersion is recorded as the version of source builds.
const HeadVersion = "HEAD"

var errUnknownSource = errors.New("unknown install source")

func (p *Provisioner) obtainPrecompiled(
	ctx context.Context,
	desc release.ArtifactDescriptor,
	staging string,
	rec *release.Receipt,
) (release.BinarySet, error) {
	ctx = logger.WithKV(ctx, "platform", desc.Platform.String(), "version", desc.Version)
	logger.InfoKV(ctx, "Fetching artifact", "url", desc.URL)

	artifact, err := p.fetchWithRetry(ctx, desc)
	if err != nil {
		return release.BinarySet{}, err
	}

	binaries, err := fetcher.ExtractBinaries(artifact, filepath.Join(staging, "artifact"))
	if err != nil {
		return release.BinarySet{}, err
	}

	rec.Version = desc.Version
	rec.Platform = desc.Platform.String()
	rec.URL = desc.URL
	rec.SHA256 = artifact.SHA256

	return binaries, nil
}

func (p *Provisioner) obtainFromSource(ctx context.Context, spec release.BuildSpec, staging string) (release.BinarySet, error) {
	builder := p.builder
	if builder == nil {
		builder = installer.NewCargoBuilder(filepath.Join(staging, "build"))
	}

	logger.InfoKV(ctx, "Building from source", "repository", spec.Repository, "branch", spec.Branch, "dir", spec.Dir)

	binaries, err := builder.Build(ctx, spec)
	if err != nil {
		return release.BinarySet{}, fmt.Errorf("build from source: %w", err)
	}

	return binaries, nil
}
