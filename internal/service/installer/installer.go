package installer

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/streamlinelabs/streamline-installer/internal/config"
	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/logger"
)

const (
	// BinaryFileMode is applied to installed binaries.
	BinaryFileMode os.FileMode = 0o755

	// DirectoryMode is applied to created directories.
	DirectoryMode os.FileMode = 0o755
)

// applyFunc matches goupdate.Apply.
type applyFunc func(update io.Reader, opts goupdate.Options) error

// Installer places binaries according to a config.Layout.
type Installer struct {
	// layout holds the target directories.
	layout config.Layout
	// apply swaps a binary into place.
	apply applyFunc
}

// New creates an Installer for the layout.
func New(layout config.Layout) *Installer {
	return &Installer{
		layout: layout,
		apply:  goupdate.Apply,
	}
}

// Install copies both binaries into the bin directory with the executable bit set.
// When only one binary could be placed, the other is named in a
// *release.PartialBinarySetError and the placed one stays on disk.
func (i *Installer) Install(ctx context.Context, binaries release.BinarySet) (release.InstalledBinarySet, error) {
	ctx = logger.WithName(ctx, "installer")
	target := i.layout.Binaries()

	if err := os.MkdirAll(i.layout.BinDir, DirectoryMode); err != nil {
		return release.InstalledBinarySet{}, fmt.Errorf("create bin directory: %w", err)
	}

	var (
		partial release.PartialBinarySetError
		steps   = []struct {
			name   string
			source string
			target string
		}{
			{name: release.ServerBinary, source: binaries.Server, target: target.ServerPath},
			{name: release.CLIBinary, source: binaries.CLI, target: target.CLIPath},
		}
	)

	for _, step := range steps {
		if err := i.place(step.source, step.target); err != nil {
			logger.ErrorKV(ctx, "Failed to place binary", "binary", step.name, "error", err)

			partial.Missing = append(partial.Missing, step.name)
			if partial.Err == nil {
				partial.Err = err
			}

			continue
		}

		logger.InfoKV(ctx, "Placed binary", "binary", step.name, "path", step.target)
		partial.Placed = append(partial.Placed, step.name)
	}

	if len(partial.Missing) > 0 {
		return target, &partial
	}

	if err := target.Verify(); err != nil {
		return target, err
	}

	return target, nil
}

// PrepareRuntime creates the data and log directories. Existing directories are kept.
func (i *Installer) PrepareRuntime(ctx context.Context) error {
	for _, dir := range i.layout.RuntimeDirs() {
		if err := os.MkdirAll(dir, DirectoryMode); err != nil {
			return fmt.Errorf("create runtime directory %s: %w", dir, err)
		}

		logger.DebugKV(ctx, "Runtime directory ready", "path", dir)
	}

	return nil
}

// place swaps source into target through go-update with a checksum guard.
func (i *Installer) place(source, target string) error {
	if source == "" {
		return fmt.Errorf("no source binary: %w", os.ErrNotExist)
	}

	data, err := os.ReadFile(filepath.Clean(source))
	if err != nil {
		return fmt.Errorf("read %s: %w", source, err)
	}

	checksum := sha256.Sum256(data)

	// go-update renames the existing target aside, so one has to exist.
	created := false

	if _, err = os.Stat(target); errors.Is(err, os.ErrNotExist) {
		f, createErr := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY, BinaryFileMode)
		if createErr != nil {
			return fmt.Errorf("create %s: %w", target, createErr)
		}

		_ = f.Close()
		created = true
	}

	err = i.apply(bytes.NewReader(data), goupdate.Options{
		TargetPath: target,
		TargetMode: BinaryFileMode,
		Checksum:   checksum[:],
		Hash:       crypto.SHA256,
	})
	if err != nil {
		if created {
			_ = os.Remove(target)
		}

		return fmt.Errorf("apply %s: %w", target, err)
	}

	removeLeftovers(target)

	// The umask may have stripped execute bits from the new file.
	if err = os.Chmod(target, BinaryFileMode); err != nil {
		return fmt.Errorf("chmod %s: %w", target, err)
	}

	return nil
}

// removeLeftovers deletes the previous binary go-update renames aside.
func removeLeftovers(target string) {
	dir, name := filepath.Split(target)
	for _, old := range []string{target + ".old", filepath.Join(dir, "."+name+".old")} {
		if _, err := os.Stat(old); err == nil {
			_ = os.Remove(old)
		}
	}
}
