package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/testutil"
)

type recordedCall struct {
	dir  string
	name string
	args []string
}

// fakeRunner records calls and lets the test produce build output.
type fakeRunner struct {
	calls   []recordedCall
	onCargo func(dir string)
	err     error
}

func (r *fakeRunner) Run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, recordedCall{dir: dir, name: name, args: args})

	if r.err != nil {
		return nil, r.err
	}

	if name == "git" {
		if err := os.MkdirAll(args[len(args)-1], 0o755); err != nil {
			return nil, err
		}
	}

	if name == "cargo" && r.onCargo != nil {
		r.onCargo(dir)
	}

	return nil, nil
}

func writeBuildOutput(t *testing.T) func(dir string) {
	t.Helper()

	return func(dir string) {
		out := filepath.Join(dir, "target", "release")
		require.NoError(t, os.MkdirAll(out, 0o755))
		testutil.WriteExecutable(t, out, release.ServerBinary, testutil.FakeServerScript(testutil.FakeServerHealthy))
		testutil.WriteExecutable(t, out, release.CLIBinary, testutil.FakeCLIScript())
	}
}

func TestCargoBuilder_ClonesAndBuilds(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	runner := &fakeRunner{onCargo: writeBuildOutput(t)}
	builder := &CargoBuilder{WorkDir: workDir, Runner: runner}

	set, err := builder.Build(context.Background(), release.BuildSpec{
		Repository: "https://example.com/streamline.git",
		Branch:     "main",
	})
	require.NoError(t, err)

	checkout := filepath.Join(workDir, "src")
	require.Equal(t, filepath.Join(checkout, "target", "release", release.ServerBinary), set.Server)
	require.Equal(t, filepath.Join(checkout, "target", "release", release.CLIBinary), set.CLI)

	require.Len(t, runner.calls, 2)
	require.Equal(t, "git", runner.calls[0].name)
	require.Equal(t,
		"clone --depth 1 --branch main https://example.com/streamline.git "+checkout,
		strings.Join(runner.calls[0].args, " "))
	require.Equal(t, "cargo", runner.calls[1].name)
	require.Equal(t, checkout, runner.calls[1].dir)
	require.Equal(t, []string{"build", "--release"}, runner.calls[1].args)
}

func TestCargoBuilder_ExistingCheckout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := &fakeRunner{onCargo: writeBuildOutput(t)}
	builder := &CargoBuilder{WorkDir: t.TempDir(), Runner: runner}

	_, err := builder.Build(context.Background(), release.BuildSpec{Dir: dir})
	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	require.Equal(t, "cargo", runner.calls[0].name)
}

func TestCargoBuilder_Failures(t *testing.T) {
	t.Parallel()

	t.Run("no repository", func(t *testing.T) {
		t.Parallel()

		_, err := (&CargoBuilder{WorkDir: t.TempDir(), Runner: &fakeRunner{}}).Build(context.Background(), release.BuildSpec{})
		require.ErrorIs(t, err, errNoRepository)
	})

	t.Run("tool failure", func(t *testing.T) {
		t.Parallel()

		errCargo := errors.New("exit status 101")
		builder := &CargoBuilder{WorkDir: t.TempDir(), Runner: &fakeRunner{err: errCargo}}

		_, err := builder.Build(context.Background(), release.BuildSpec{Dir: t.TempDir()})
		require.ErrorIs(t, err, errCargo)
	})

	t.Run("missing cli in output", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{onCargo: func(dir string) {
			out := filepath.Join(dir, "target", "release")
			require.NoError(t, os.MkdirAll(out, 0o755))
			testutil.WriteExecutable(t, out, release.ServerBinary, testutil.FakeServerScript(testutil.FakeServerHealthy))
		}}
		builder := &CargoBuilder{WorkDir: t.TempDir(), Runner: runner}

		_, err := builder.Build(context.Background(), release.BuildSpec{Dir: t.TempDir()})

		var partial *release.PartialBinarySetError
		require.ErrorAs(t, err, &partial)
		require.Equal(t, []string{release.CLIBinary}, partial.Missing)
	})
}
