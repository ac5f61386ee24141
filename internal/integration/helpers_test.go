package integration

import (
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamlinelabs/streamline-installer/internal/config"
	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/testutil"
)

// releaseServer serves release archives by file name and records requested paths.
type releaseServer struct {
	*httptest.Server

	mu        sync.Mutex
	artifacts map[string][]byte
	requested []string
}

func startReleaseServer(t *testing.T, artifacts map[string][]byte) *releaseServer {
	t.Helper()

	rs := &releaseServer{artifacts: artifacts}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.requested = append(rs.requested, r.URL.Path)
		body, ok := rs.artifacts[path.Base(r.URL.Path)]
		rs.mu.Unlock()

		if !ok {
			http.NotFound(w, r)

			return
		}

		_, _ = w.Write(body)
	}))
	t.Cleanup(rs.Close)

	return rs
}

func (rs *releaseServer) requests() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return append([]string(nil), rs.requested...)
}

// fakeRelease builds a release archive holding fake server and CLI scripts.
func fakeRelease(t *testing.T, mode testutil.FakeServerMode) []byte {
	t.Helper()

	return testutil.Archive(t, "streamline-"+release.DefaultVersion, map[string][]byte{
		release.ServerBinary: testutil.FakeServerScript(mode),
		release.CLIBinary:    testutil.FakeCLIScript(),
	})
}

func linuxX64() release.PlatformKey {
	return release.PlatformKey{OS: release.Linux, Arch: release.X8664}
}

// writeConfig saves a configuration pointing at host and returns its path.
func writeConfig(t *testing.T, mutate func(*config.Config)) (string, *config.Config) {
	t.Helper()

	cfg := config.Default()
	cfg.Prefix = t.TempDir()
	cfg.RetryDelay = 10 * time.Millisecond
	cfg.SmokeTest.WorkDir = t.TempDir()

	mutate(cfg)

	cfgPath := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(cfgPath, cfg))

	return cfgPath, cfg
}
