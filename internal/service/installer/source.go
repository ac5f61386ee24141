package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/logger"
	"github.com/streamlinelabs/streamline-installer/internal/service/common"
)

// Builder produces binaries from sources (head mode). It either returns both
// binaries or fails.
type Builder interface {
	Build(ctx context.Context, spec release.BuildSpec) (release.BinarySet, error)
}

// CargoBuilder clones the repository when needed and runs `cargo build --release`.
type CargoBuilder struct {
	// WorkDir receives the clone when the spec has no Dir.
	WorkDir string
	// Runner executes git and cargo.
	Runner common.CommandRunner
}

var errNoRepository = errors.New("build spec has neither a directory nor a repository")

// NewCargoBuilder creates a builder that clones into workDir.
func NewCargoBuilder(workDir string) *CargoBuilder {
	return &CargoBuilder{
		WorkDir: workDir,
		Runner:  common.ExecRunner{},
	}
}

// Build implements Builder.
func (b *CargoBuilder) Build(ctx context.Context, spec release.BuildSpec) (release.BinarySet, error) {
	ctx = logger.WithName(ctx, "cargo-builder")

	dir := spec.Dir
	if dir == "" {
		if spec.Repository == "" {
			return release.BinarySet{}, errNoRepository
		}

		if err := os.MkdirAll(b.WorkDir, DirectoryMode); err != nil {
			return release.BinarySet{}, fmt.Errorf("create work directory: %w", err)
		}

		dir = filepath.Join(b.WorkDir, "src")
		if err := os.RemoveAll(dir); err != nil {
			return release.BinarySet{}, fmt.Errorf("clean checkout: %w", err)
		}

		args := []string{"clone", "--depth", "1"}
		if spec.Branch != "" {
			args = append(args, "--branch", spec.Branch)
		}

		args = append(args, spec.Repository, dir)

		logger.InfoKV(ctx, "Cloning sources", "repository", spec.Repository, "branch", spec.Branch)

		if _, err := b.Runner.Run(ctx, b.WorkDir, "git", args...); err != nil {
			return release.BinarySet{}, fmt.Errorf("clone sources: %w", err)
		}
	}

	logger.InfoKV(ctx, "Building release binaries", "dir", dir)

	if _, err := b.Runner.Run(ctx, dir, "cargo", "build", "--release"); err != nil {
		return release.BinarySet{}, fmt.Errorf("cargo build: %w", err)
	}

	outDir := filepath.Join(dir, "target", "release")
	set := release.BinarySet{
		Server: filepath.Join(outDir, release.ServerBinary),
		CLI:    filepath.Join(outDir, release.CLIBinary),
	}

	built := release.InstalledBinarySet{ServerPath: set.Server, CLIPath: set.CLI}
	if err := built.Verify(); err != nil {
		return release.BinarySet{}, fmt.Errorf("build output: %w", err)
	}

	return set, nil
}
