package config

import (
	"path/filepath"

	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
)

// Layout is the set of directories and files an install uses under the prefix.
type Layout struct {
	Prefix      string
	BinDir      string
	VarDir      string
	DataDir     string
	LogDir      string
	LogPath     string
	ReceiptPath string
}

// Layout derives install paths from the prefix.
func (c *Config) Layout() Layout {
	prefix := filepath.Clean(c.Prefix)
	varDir := filepath.Join(prefix, "var")
	logDir := filepath.Join(varDir, "log")

	return Layout{
		Prefix:      prefix,
		BinDir:      filepath.Join(prefix, "bin"),
		VarDir:      varDir,
		DataDir:     filepath.Join(varDir, release.ServerBinary),
		LogDir:      logDir,
		LogPath:     filepath.Join(logDir, release.ServerBinary+".log"),
		ReceiptPath: filepath.Join(varDir, "streamline-installer", "receipt.json"),
	}
}

// RuntimeDirs lists the directories that must exist before the server runs.
func (l Layout) RuntimeDirs() []string {
	return []string{l.DataDir, l.LogDir}
}

// Binaries returns where the installed binaries live.
func (l Layout) Binaries() release.InstalledBinarySet {
	return release.InstalledIn(l.BinDir)
}
