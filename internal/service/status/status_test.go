package status

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	ps "github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"

	"github.com/streamlinelabs/streamline-installer/internal/config"
	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/repository/receipt"
	"github.com/streamlinelabs/streamline-installer/internal/testutil"
)

type fakeProcess struct {
	pid  int
	name string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

func listOf(processes ...ps.Process) ProcessLister {
	return func() ([]ps.Process, error) {
		return processes, nil
	}
}

func TestFindRunning(t *testing.T) {
	t.Parallel()

	pids, err := FindRunning(listOf(
		fakeProcess{pid: 42, name: release.ServerBinary},
		fakeProcess{pid: 7, name: release.ServerBinary},
		fakeProcess{pid: 8, name: release.CLIBinary},
		fakeProcess{pid: os.Getpid(), name: release.ServerBinary},
	), release.ServerBinary)
	require.NoError(t, err)
	require.Equal(t, []int{7, 42}, pids)

	errList := errors.New("permission denied")
	_, err = FindRunning(func() ([]ps.Process, error) { return nil, errList }, release.ServerBinary)
	require.ErrorIs(t, err, errList)
}

func TestCollect_NotInstalled(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Prefix = t.TempDir()

	st, err := Collect(context.Background(), &Options{Config: cfg}, listOf())
	require.NoError(t, err)
	require.Nil(t, st.Receipt)
	require.ErrorIs(t, st.BinariesErr, release.ErrPartialBinarySet)
	require.Empty(t, st.RunningPIDs)

	var out bytes.Buffer
	require.NoError(t, st.Print(&out))
	require.Contains(t, out.String(), "not installed")
	require.Contains(t, out.String(), "not running")
}

func TestCollect_Installed(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Prefix = t.TempDir()
	layout := cfg.Layout()

	require.NoError(t, os.MkdirAll(layout.BinDir, 0o755))
	testutil.WriteExecutable(t, layout.BinDir, release.ServerBinary, testutil.FakeServerScript(testutil.FakeServerHealthy))
	testutil.WriteExecutable(t, layout.BinDir, release.CLIBinary, testutil.FakeCLIScript())

	rec := &release.Receipt{
		Version:     "0.2.0",
		Mode:        release.ModePrecompiled,
		Platform:    "linux/x86_64",
		SHA256:      "ab",
		Binaries:    layout.Binaries(),
		DataDir:     layout.DataDir,
		LogPath:     layout.LogPath,
		InstalledAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		InstalledBy: &release.Actor{Hostname: "build-host", Username: "ops"},
	}
	require.NoError(t, receipt.NewFileRepository(layout.ReceiptPath).Save(context.Background(), rec))

	st, err := Collect(context.Background(), &Options{Config: cfg}, listOf(fakeProcess{pid: 99, name: release.ServerBinary}))
	require.NoError(t, err)
	require.NoError(t, st.BinariesErr)
	require.Equal(t, rec.Version, st.Receipt.Version)
	require.Equal(t, []int{99}, st.RunningPIDs)

	var out bytes.Buffer
	require.NoError(t, st.Print(&out))
	require.Contains(t, out.String(), "0.2.0 (precompiled)")
	require.Contains(t, out.String(), "ops@build-host")
	require.Contains(t, out.String(), "running (pid 99)")
	require.Contains(t, out.String(), "ephemeral port")
}
