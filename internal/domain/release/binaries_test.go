package release

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestInstalledBinarySet_Verify covers complete, partial and empty installs.
func TestInstalledBinarySet_Verify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	set := InstalledIn(dir)

	err := set.Verify()

	var partial *PartialBinarySetError
	require.ErrorAs(t, err, &partial)
	require.Equal(t, []string{ServerBinary, CLIBinary}, partial.Missing)
	require.ErrorIs(t, err, ErrPartialBinarySet)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(set.ServerPath, []byte("#!/bin/sh\n"), 0o755))

	err = set.Verify()
	require.ErrorAs(t, err, &partial)
	require.Equal(t, []string{CLIBinary}, partial.Missing)
	require.Equal(t, []string{ServerBinary}, partial.Placed)
	require.Contains(t, err.Error(), CLIBinary)

	// Present but not executable is still partial.
	require.NoError(t, os.WriteFile(set.CLIPath, []byte("#!/bin/sh\n"), 0o644))
	require.ErrorIs(t, set.Verify(), ErrPartialBinarySet)

	require.NoError(t, os.Chmod(set.CLIPath, 0o755))
	require.NoError(t, set.Verify())
}

// TestCheckExecutable_Directory rejects directories.
func TestCheckExecutable_Directory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "streamline")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.Error(t, CheckExecutable(dir))
	require.Error(t, CheckExecutable(""))
}

// TestCleanupFailedError_Unwrap checks both sentinel and cause are reachable.
func TestCleanupFailedError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("still running")
	err := error(&CleanupFailedError{PID: 42, Err: cause})

	require.ErrorIs(t, err, ErrCleanupFailed)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "42")
}
