package supervisor

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/streamlinelabs/streamline-installer/internal/config"
	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
)

// DataDirFlag is the server flag that points it at its storage.
const DataDirFlag = "--data-dir"

// ServiceSpec is the persistent-run policy of the server.
type ServiceSpec struct {
	// Label names the service for the host service manager.
	Label string
	// RunCommand is the executable followed by its arguments.
	RunCommand []string
	// WorkingDir is the directory the server is started in.
	WorkingDir string
	// LogPath receives both stdout and stderr.
	LogPath string
	// KeepAlive restarts the server on unexpected exit.
	KeepAlive bool
}

var (
	errEmptyLabel     = errors.New("label is empty")
	errBadLabel       = errors.New("label must not contain whitespace or path separators")
	errEmptyCommand   = errors.New("run command is empty")
	errRelativePath   = errors.New("path must be absolute")
	errMissingDataDir = errors.New("run command has no " + DataDirFlag + " argument")
)

// BuildSpec derives the ServiceSpec from an installed binary set.
// Both binaries must be present and executable.
func BuildSpec(installed release.InstalledBinarySet, layout config.Layout, cfg config.ServiceConfig) (ServiceSpec, error) {
	if err := installed.Verify(); err != nil {
		return ServiceSpec{}, fmt.Errorf("%w: %w", release.ErrServiceSpecInvalid, err)
	}

	spec := ServiceSpec{
		Label:      cfg.Label,
		RunCommand: []string{installed.ServerPath, DataDirFlag, layout.DataDir},
		WorkingDir: layout.DataDir,
		LogPath:    layout.LogPath,
		KeepAlive:  cfg.KeepsAlive(),
	}

	if err := spec.Validate(); err != nil {
		return ServiceSpec{}, err
	}

	return spec, nil
}

// Validate checks the spec before it is handed to a service manager.
func (s ServiceSpec) Validate() error {
	if err := s.validate(); err != nil {
		return fmt.Errorf("%w: %w", release.ErrServiceSpecInvalid, err)
	}

	return nil
}

func (s ServiceSpec) validate() error {
	if s.Label == "" {
		return errEmptyLabel
	}

	if strings.ContainsAny(s.Label, " \t\n/\\") {
		return fmt.Errorf("%w: %q", errBadLabel, s.Label)
	}

	if len(s.RunCommand) == 0 || s.RunCommand[0] == "" {
		return errEmptyCommand
	}

	paths := []struct {
		name string
		path string
	}{
		{name: "executable", path: s.RunCommand[0]},
		{name: "working directory", path: s.WorkingDir},
		{name: "log path", path: s.LogPath},
	}

	for _, p := range paths {
		if !filepath.IsAbs(p.path) {
			return fmt.Errorf("%s %q: %w", p.name, p.path, errRelativePath)
		}
	}

	dataDir, ok := s.DataDir()
	if !ok {
		return errMissingDataDir
	}

	if !filepath.IsAbs(dataDir) {
		return fmt.Errorf("data directory %q: %w", dataDir, errRelativePath)
	}

	return nil
}

// DataDir returns the value passed to --data-dir.
func (s ServiceSpec) DataDir() (string, bool) {
	for i, arg := range s.RunCommand {
		if arg == DataDirFlag && i+1 < len(s.RunCommand) && s.RunCommand[i+1] != "" {
			return s.RunCommand[i+1], true
		}

		if value, found := strings.CutPrefix(arg, DataDirFlag+"="); found && value != "" {
			return value, true
		}
	}

	return "", false
}
