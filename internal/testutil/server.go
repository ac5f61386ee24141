package testutil

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// FakeServerMode selects how a fake server script behaves.
type FakeServerMode string

const (
	// FakeServerHealthy creates its --data-dir and exits 0 on SIGTERM.
	FakeServerHealthy FakeServerMode = "healthy"
	// FakeServerIgnoresTerm creates its --data-dir and ignores SIGTERM.
	FakeServerIgnoresTerm FakeServerMode = "ignore-term"
	// FakeServerNoDataDir stays alive without creating its --data-dir.
	FakeServerNoDataDir FakeServerMode = "no-data-dir"
	// FakeServerExitsEarly creates its --data-dir and exits immediately.
	FakeServerExitsEarly FakeServerMode = "exit-early"
)

// fakeServerPrologue parses the flags the installer passes and answers
// --version and --help the way the real server does.
const fakeServerPrologue = `#!/bin/sh
data_dir=""
while [ $# -gt 0 ]; do
  case "$1" in
    --data-dir) data_dir="$2"; shift 2 ;;
    --port) shift 2 ;;
    --version) echo "streamline ${FAKE_VERSION:-0.2.0}"; exit 0 ;;
    --help) echo "streamline - The Redis of Streaming"; exit 0 ;;
    *) shift ;;
  esac
done
`

var fakeServerBodies = map[FakeServerMode]string{
	FakeServerHealthy: `mkdir -p "$data_dir"
trap 'exit 0' TERM
while :; do sleep 0.05; done
`,
	FakeServerIgnoresTerm: `mkdir -p "$data_dir"
trap '' TERM
while :; do sleep 0.05; done
`,
	FakeServerNoDataDir: `trap 'exit 0' TERM
while :; do sleep 0.05; done
`,
	FakeServerExitsEarly: `mkdir -p "$data_dir"
exit 3
`,
}

// FakeServerScript returns the contents of a fake server executable.
func FakeServerScript(mode FakeServerMode) []byte {
	return []byte(fakeServerPrologue + fakeServerBodies[mode])
}

// FakeCLIScript returns the contents of a fake CLI executable.
func FakeCLIScript() []byte {
	return []byte(`#!/bin/sh
echo "streamline-cli - produce, consume and manage topics"
`)
}

// WriteExecutable writes contents to dir/name with mode 0755 and returns the path.
func WriteExecutable(t *testing.T, dir, name string, contents []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, contents, 0o755))

	return path
}

// ReservePort returns a free TCP port on the loopback interface and releases it.
func ReservePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()

	return port
}
