package testutil

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// Archive builds a .tar.gz holding files (name -> contents) with mode 0755,
// inside a top-level directory like real release archives.
func Archive(t *testing.T, topDir string, files map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}

	sort.Strings(names)

	if topDir != "" {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     topDir + "/",
			Typeflag: tar.TypeDir,
			Mode:     0o755,
		}))
	}

	for _, name := range names {
		path := name
		if topDir != "" {
			path = topDir + "/" + name
		}

		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     path,
			Typeflag: tar.TypeReg,
			Mode:     0o755,
			Size:     int64(len(files[name])),
		}))

		_, err := tw.Write(files[name])
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	return buf.Bytes()
}

// SHA256Hex returns the hex SHA-256 of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}
