package provision

import (
	"context"
	"fmt"

	"github.com/streamlinelabs/streamline-installer/internal/config"
	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/logger"
)

// Options controls an install run from the command line.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file. Empty uses defaults.
	ConfigPath string
	// Prefix overrides the install prefix.
	Prefix string
	// Version overrides the release version.
	Version string
	// Mode overrides the install mode ("precompiled" or "source").
	Mode string
	// Platform overrides host detection with an "os/arch" pair.
	Platform string
}

// LoadConfig loads the configuration file, or the defaults when path is empty,
// and applies the command line overrides.
func LoadConfig(opts *Options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if opts.ConfigPath == "" {
		cfg = config.Default()
	} else if cfg, err = config.Load(opts.ConfigPath); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if opts.Prefix != "" {
		cfg.Prefix = opts.Prefix
	}

	if opts.Version != "" {
		cfg.Version = opts.Version
	}

	if opts.Mode != "" {
		cfg.Mode = opts.Mode
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// platform returns the platform override or the host platform.
func (o *Options) platform() (release.PlatformKey, error) {
	if o.Platform != "" {
		return release.ParsePlatformKey(o.Platform)
	}

	return release.HostPlatform()
}

// Run resolves the install source and installs it.
func Run(ctx context.Context, opts *Options, extra ...Option) (*release.Receipt, *config.Config, error) {
	ctx = logger.WithName(ctx, "provision")

	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	var key release.PlatformKey

	// Head mode never resolves the platform or touches the fetcher.
	if cfg.Mode == release.ModePrecompiled {
		if key, err = opts.platform(); err != nil {
			return nil, cfg, err
		}

		logger.InfoKV(ctx, "Resolved platform", "platform", key.String(), "triple", key.Triple())
	}

	src, err := ResolveSource(cfg, key)
	if err != nil {
		return nil, cfg, err
	}

	rec, err := New(cfg, extra...).Install(ctx, src)
	if err != nil {
		return nil, cfg, err
	}

	return rec, cfg, nil
}
