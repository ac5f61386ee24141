package supervisor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamlinelabs/streamline-installer/internal/config"
	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/testutil"
)

func installedSet(t *testing.T, layout config.Layout) release.InstalledBinarySet {
	t.Helper()

	testutil.WriteExecutable(t, mkdir(t, layout.BinDir), release.ServerBinary, testutil.FakeServerScript(testutil.FakeServerHealthy))
	testutil.WriteExecutable(t, layout.BinDir, release.CLIBinary, testutil.FakeCLIScript())

	return layout.Binaries()
}

func testLayout(t *testing.T) (*config.Config, config.Layout) {
	t.Helper()

	cfg := config.Default()
	cfg.Prefix = t.TempDir()

	return cfg, cfg.Layout()
}

func TestBuildSpec(t *testing.T) {
	t.Parallel()

	cfg, layout := testLayout(t)
	installed := installedSet(t, layout)

	spec, err := BuildSpec(installed, layout, cfg.Service)
	require.NoError(t, err)
	require.Equal(t, config.DefaultServiceLabel, spec.Label)
	require.Equal(t, []string{installed.ServerPath, DataDirFlag, layout.DataDir}, spec.RunCommand)
	require.Equal(t, layout.DataDir, spec.WorkingDir)
	require.Equal(t, layout.LogPath, spec.LogPath)
	require.True(t, spec.KeepAlive)

	dataDir, ok := spec.DataDir()
	require.True(t, ok)
	require.Equal(t, layout.DataDir, dataDir)
}

func TestBuildSpec_KeepAliveDisabled(t *testing.T) {
	t.Parallel()

	cfg, layout := testLayout(t)
	keepAlive := false
	cfg.Service.KeepAlive = &keepAlive

	spec, err := BuildSpec(installedSet(t, layout), layout, cfg.Service)
	require.NoError(t, err)
	require.False(t, spec.KeepAlive)
}

func TestBuildSpec_RequiresBothBinaries(t *testing.T) {
	t.Parallel()

	cfg, layout := testLayout(t)
	testutil.WriteExecutable(t, mkdir(t, layout.BinDir), release.ServerBinary, testutil.FakeServerScript(testutil.FakeServerHealthy))

	_, err := BuildSpec(layout.Binaries(), layout, cfg.Service)
	require.ErrorIs(t, err, release.ErrServiceSpecInvalid)
	require.ErrorIs(t, err, release.ErrPartialBinarySet)
	require.ErrorContains(t, err, release.CLIBinary)
}

func TestServiceSpec_Validate(t *testing.T) {
	t.Parallel()

	valid := ServiceSpec{
		Label:      "streamline",
		RunCommand: []string{"/opt/bin/streamline", DataDirFlag, "/opt/var/streamline"},
		WorkingDir: "/opt/var",
		LogPath:    "/opt/var/log/streamline.log",
		KeepAlive:  true,
	}

	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*ServiceSpec)
	}{
		{name: "empty label", mutate: func(s *ServiceSpec) { s.Label = "" }},
		{name: "label with space", mutate: func(s *ServiceSpec) { s.Label = "stream line" }},
		{name: "label with slash", mutate: func(s *ServiceSpec) { s.Label = "a/b" }},
		{name: "no command", mutate: func(s *ServiceSpec) { s.RunCommand = nil }},
		{name: "relative executable", mutate: func(s *ServiceSpec) { s.RunCommand[0] = "streamline" }},
		{name: "relative working dir", mutate: func(s *ServiceSpec) { s.WorkingDir = "var" }},
		{name: "relative log path", mutate: func(s *ServiceSpec) { s.LogPath = "streamline.log" }},
		{name: "no data dir", mutate: func(s *ServiceSpec) { s.RunCommand = s.RunCommand[:1] }},
		{name: "data dir without value", mutate: func(s *ServiceSpec) { s.RunCommand = s.RunCommand[:2] }},
		{name: "relative data dir", mutate: func(s *ServiceSpec) { s.RunCommand[2] = "data" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spec := valid
			spec.RunCommand = append([]string(nil), valid.RunCommand...)
			tt.mutate(&spec)

			require.ErrorIs(t, spec.Validate(), release.ErrServiceSpecInvalid)
		})
	}
}

func TestServiceSpec_DataDirEqualsForm(t *testing.T) {
	t.Parallel()

	spec := ServiceSpec{RunCommand: []string{"/bin/streamline", DataDirFlag + "=" + filepath.FromSlash("/data")}}

	dir, ok := spec.DataDir()
	require.True(t, ok)
	require.Equal(t, "/data", dir)
}
