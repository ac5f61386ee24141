package release

import (
	"fmt"
	"os"
	"path/filepath"
)

// Names of the two binaries every release ships.
const (
	ServerBinary = "streamline"
	CLIBinary    = "streamline-cli"
)

// BinarySet points at freshly extracted or built binaries waiting to be installed.
type BinarySet struct {
	Server string
	CLI    string
}

// InstalledBinarySet points at the binaries placed in the target bin directory.
type InstalledBinarySet struct {
	ServerPath string `json:"server_path"`
	CLIPath    string `json:"cli_path"`
}

// InstalledIn returns the binary set expected inside binDir.
func InstalledIn(binDir string) InstalledBinarySet {
	return InstalledBinarySet{
		ServerPath: filepath.Join(binDir, ServerBinary),
		CLIPath:    filepath.Join(binDir, CLIBinary),
	}
}

// Verify checks that both binaries exist and are executable.
// Anything less is reported as a *PartialBinarySetError naming the missing binaries.
func (s InstalledBinarySet) Verify() error {
	var (
		partial  PartialBinarySetError
		binaries = []struct {
			name string
			path string
		}{
			{name: ServerBinary, path: s.ServerPath},
			{name: CLIBinary, path: s.CLIPath},
		}
	)

	for _, binary := range binaries {
		if err := CheckExecutable(binary.path); err != nil {
			partial.Missing = append(partial.Missing, binary.name)

			if partial.Err == nil {
				partial.Err = err
			}

			continue
		}

		partial.Placed = append(partial.Placed, binary.name)
	}

	if len(partial.Missing) > 0 {
		return &partial
	}

	return nil
}

// CheckExecutable returns an error unless path is a regular file the current user may execute.
func CheckExecutable(path string) error {
	if path == "" {
		return fmt.Errorf("empty path: %w", os.ErrNotExist)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}

	return checkExecutable(path, info)
}
