package receipt

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for a missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))
	rec, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, rec)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns an equal receipt.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "var", "streamline-installer", "receipt.json")
	repo := NewFileRepository(file)

	want := &release.Receipt{
		Version:     "0.2.0",
		Mode:        release.ModePrecompiled,
		Platform:    "linux/x86_64",
		URL:         "https://github.com/streamlinelabs/streamline/releases/download/v0.2.0/streamline-0.2.0-x86_64-unknown-linux-gnu.tar.gz",
		SHA256:      "0f0f",
		Binaries:    release.InstalledIn("/usr/local/bin"),
		DataDir:     "/usr/local/var/streamline",
		LogPath:     "/usr/local/var/log/streamline.log",
		InstalledAt: time.Now().UTC().Truncate(time.Second),
		InstalledBy: &release.Actor{
			Hostname: "build-host",
			Username: "o.shokin",
		},
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.Binaries, got.Binaries)
	require.Equal(t, want.InstalledBy, got.InstalledBy)
	require.True(t, want.InstalledAt.Equal(got.InstalledAt))
	require.Equal(t, want.SHA256, got.SHA256)

	_, err = os.Stat(file + ".tmp")
	require.ErrorIs(t, err, os.ErrNotExist)
}
