package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
)

// Config holds every setting of an install run.
type Config struct {
	// Version is the Streamline release to install.
	Version string `yaml:"version"`
	// Mode is "precompiled" (fetch and verify) or "source" (head build).
	Mode string `yaml:"mode"`
	// Release locates artifacts and their integrity record.
	Release ReleaseConfig `yaml:"release"`
	// Source configures head-mode builds.
	Source SourceConfig `yaml:"source"`
	// Prefix is the root of the install tree (bin/ and var/ live under it).
	Prefix string `yaml:"prefix"`
	// Timeout bounds a single artifact download.
	Timeout time.Duration `yaml:"timeout"`
	// FetchRetries is how many times a transport failure is retried.
	FetchRetries int `yaml:"fetch_retries"`
	// RetryDelay is the first delay between fetch attempts; it doubles per attempt.
	RetryDelay time.Duration `yaml:"retry_delay"`
	// Service configures the persistent service declaration.
	Service ServiceConfig `yaml:"service"`
	// SmokeTest configures the post-install smoke test.
	SmokeTest SmokeTestConfig `yaml:"smoke_test"`
}

// ReleaseConfig locates release artifacts and hashes.
type ReleaseConfig struct {
	release.Coordinates `yaml:",inline"`

	// ChecksumsFile is a YAML integrity record produced by streamline-packager.
	ChecksumsFile string `yaml:"checksums_file,omitempty"`
	// Checksums maps target triples to hex SHA-256 values and overrides ChecksumsFile.
	Checksums map[string]string `yaml:"checksums,omitempty"`
}

// SourceConfig locates the sources used in head mode.
type SourceConfig struct {
	Repository string `yaml:"repository"`
	Branch     string `yaml:"branch"`
	Dir        string `yaml:"dir,omitempty"`
}

// ServiceConfig controls how the server is declared to the host service manager.
type ServiceConfig struct {
	// Label is the service name (launchd label or systemd unit name).
	Label string `yaml:"label"`
	// KeepAlive restarts the server on unexpected exit. Defaults to true.
	KeepAlive *bool `yaml:"keep_alive,omitempty"`
	// UnitDir is where the plist or unit file is written.
	UnitDir string `yaml:"unit_dir,omitempty"`
	// Activate runs launchctl/systemctl after writing the unit file.
	Activate bool `yaml:"activate"`
}

// SmokeTestConfig controls the post-install smoke test.
type SmokeTestConfig struct {
	// SettleDelay is how long the server gets to bind sockets and create storage.
	SettleDelay time.Duration `yaml:"settle_delay"`
	// Probe is "http", "grpc" or "none".
	Probe string `yaml:"probe"`
	// HealthPortOffset is added to the allocated port to find the health endpoint.
	HealthPortOffset int `yaml:"health_port_offset"`
	// ProbeTimeout bounds the best-effort health probe.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	// TerminateTimeout bounds the wait after the graceful termination signal.
	TerminateTimeout time.Duration `yaml:"terminate_timeout"`
	// Escalate sends a kill signal when TerminateTimeout expires. Defaults to true.
	Escalate *bool `yaml:"escalate,omitempty"`
	// KillTimeout bounds the wait after the kill signal.
	KillTimeout time.Duration `yaml:"kill_timeout"`
	// WorkDir is where session directories are created (system temp dir when empty).
	WorkDir string `yaml:"work_dir,omitempty"`
	// Env is appended to the environment of the spawned server.
	Env []string `yaml:"env,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for installer settings.
	DefaultConfigFilename = "streamline-installer.yaml"

	// DefaultPrefix mirrors the conventional Homebrew prefix on Intel macOS and Linux.
	DefaultPrefix = "/usr/local"

	// DefaultTimeout bounds a single artifact download.
	DefaultTimeout = 5 * time.Minute

	// DefaultFetchRetries is the number of retries after a transport failure.
	DefaultFetchRetries = 3

	// DefaultRetryDelay is the delay before the first retry.
	DefaultRetryDelay = time.Second

	// DefaultServiceLabel names the service.
	DefaultServiceLabel = "streamline"

	// DefaultSourceRepository is cloned in head mode.
	DefaultSourceRepository = "https://github.com/streamlinelabs/streamline.git"

	// DefaultSourceBranch is cloned in head mode.
	DefaultSourceBranch = "main"

	// DefaultSettleDelay gives the server time to initialise before probing.
	DefaultSettleDelay = 2 * time.Second

	// DefaultHealthPortOffset is where the server usually exposes HTTP health.
	DefaultHealthPortOffset = 2

	// DefaultProbeTimeout bounds the health probe.
	DefaultProbeTimeout = 2 * time.Second

	// DefaultTerminateTimeout bounds the graceful shutdown wait.
	DefaultTerminateTimeout = 5 * time.Second

	// DefaultKillTimeout bounds the wait after a kill signal.
	DefaultKillTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// Probe kinds.
	ProbeHTTP = "http"
	ProbeGRPC = "grpc"
	ProbeNone = "none"

	maxPort = 65535
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidMode is returned for an unknown install mode.
	errInvalidMode = errors.New("mode must be precompiled or source")
	// errInvalidProbe is returned for an unknown probe kind.
	errInvalidProbe = errors.New("smoke_test.probe must be http, grpc or none")
	// errNegativeRetries is returned when fetch_retries is negative.
	errNegativeRetries = errors.New("fetch_retries must not be negative")
	// errInvalidOffset is returned when the health port offset is out of range.
	errInvalidOffset = errors.New("smoke_test.health_port_offset is out of range")
	// errInvalidEnv is returned for smoke-test environment entries without "=".
	errInvalidEnv = errors.New("smoke_test.env entries must look like KEY=VALUE")
)

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	//nolint:errcheck // Defaults always validate.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings and fills defaults for unset fields.
//
//nolint:cyclop,funlen // Flat list of defaults is easier to read than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	cfg.Version = strings.TrimPrefix(strings.TrimSpace(cfg.Version), "v")
	if cfg.Version == "" {
		cfg.Version = release.DefaultVersion
	}

	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	switch cfg.Mode {
	case "":
		cfg.Mode = release.ModePrecompiled
	case release.ModePrecompiled, release.ModeSource:
	default:
		return fmt.Errorf("%w: %q", errInvalidMode, cfg.Mode)
	}

	cfg.Release.Coordinates = cfg.Release.WithDefaults()

	if cfg.Source.Repository == "" {
		cfg.Source.Repository = DefaultSourceRepository
	}

	if cfg.Source.Branch == "" {
		cfg.Source.Branch = DefaultSourceBranch
	}

	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.FetchRetries < 0 {
		return errNegativeRetries
	}

	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	if cfg.Service.Label == "" {
		cfg.Service.Label = DefaultServiceLabel
	}

	if cfg.Service.KeepAlive == nil {
		cfg.Service.KeepAlive = boolPtr(true)
	}

	return validateSmokeTest(&cfg.SmokeTest)
}

func validateSmokeTest(st *SmokeTestConfig) error {
	st.Probe = strings.ToLower(strings.TrimSpace(st.Probe))
	switch st.Probe {
	case "":
		st.Probe = ProbeHTTP
	case ProbeHTTP, ProbeGRPC, ProbeNone:
	default:
		return fmt.Errorf("%w: %q", errInvalidProbe, st.Probe)
	}

	if st.SettleDelay <= 0 {
		st.SettleDelay = DefaultSettleDelay
	}

	if st.HealthPortOffset == 0 {
		st.HealthPortOffset = DefaultHealthPortOffset
	}

	if st.HealthPortOffset < 0 || st.HealthPortOffset > maxPort {
		return fmt.Errorf("%w: %d", errInvalidOffset, st.HealthPortOffset)
	}

	if st.ProbeTimeout <= 0 {
		st.ProbeTimeout = DefaultProbeTimeout
	}

	if st.TerminateTimeout <= 0 {
		st.TerminateTimeout = DefaultTerminateTimeout
	}

	if st.KillTimeout <= 0 {
		st.KillTimeout = DefaultKillTimeout
	}

	if st.Escalate == nil {
		st.Escalate = boolPtr(true)
	}

	for _, entry := range st.Env {
		if !strings.Contains(entry, "=") {
			return fmt.Errorf("%w: %q", errInvalidEnv, entry)
		}
	}

	return nil
}

// KeepsAlive reports the effective keep-alive policy.
func (sc ServiceConfig) KeepsAlive() bool {
	return sc.KeepAlive == nil || *sc.KeepAlive
}

// ShouldEscalate reports whether the smoke test escalates to a kill signal.
func (st SmokeTestConfig) ShouldEscalate() bool {
	return st.Escalate == nil || *st.Escalate
}

// IntegrityRecord merges the checksums file and inline checksums into one record.
// Platforms without a hash keep their placeholder.
func (c *Config) IntegrityRecord() (*release.IntegrityRecord, error) {
	record := release.NewIntegrityRecord(c.Version)

	if c.Release.ChecksumsFile != "" {
		loaded, err := release.LoadIntegrityRecord(c.Release.ChecksumsFile)
		if err != nil {
			return nil, err
		}

		if loaded.Version != "" && strings.TrimPrefix(loaded.Version, "v") != c.Version {
			return nil, fmt.Errorf("integrity record is for version %s, want %s: %w",
				loaded.Version, c.Version, release.ErrPlaceholderHash)
		}

		for triple, digest := range loaded.SHA256 {
			record.SHA256[triple] = digest
		}
	}

	for triple, digest := range c.Release.Checksums {
		record.SHA256[triple] = digest
	}

	return record, nil
}

// BuildSpec converts the source settings for the head-mode builder.
func (c *Config) BuildSpec() release.BuildSpec {
	return release.BuildSpec{
		Repository: c.Source.Repository,
		Branch:     c.Source.Branch,
		Dir:        c.Source.Dir,
	}
}

func boolPtr(v bool) *bool {
	return &v
}
