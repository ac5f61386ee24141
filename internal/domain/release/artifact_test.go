package release

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestArtifactURL checks the release download template for every platform.
func TestArtifactURL(t *testing.T) {
	t.Parallel()

	coords := Coordinates{}

	for _, key := range SupportedPlatforms() {
		got := coords.ArtifactURL("v0.2.0", key)
		require.Equal(t,
			"https://github.com/streamlinelabs/streamline/releases/download/v0.2.0/streamline-0.2.0-"+key.Triple()+".tar.gz",
			got)
	}

	local := Coordinates{Host: "http://127.0.0.1:8080/"}
	require.Equal(t,
		"http://127.0.0.1:8080/streamlinelabs/streamline/releases/download/v1.0.0/streamline-1.0.0-x86_64-unknown-linux-gnu.tar.gz",
		local.ArtifactURL("1.0.0", PlatformKey{OS: Linux, Arch: X8664}))
}

// TestNewDescriptor verifies hash lookup and version validation.
func TestNewDescriptor(t *testing.T) {
	t.Parallel()

	key := PlatformKey{OS: Linux, Arch: ARM64}
	record := NewIntegrityRecord("0.2.0")

	desc, err := NewDescriptor(key, "0.2.0", Coordinates{}, record)
	require.NoError(t, err)
	require.Equal(t, "PLACEHOLDER_SHA256_ARM64_LINUX", record.SHA256[key.Triple()])
	require.True(t, IsPlaceholder(desc.ExpectedHash))
	require.Equal(t, key, desc.Platform)

	digest := strings.Repeat("ab", 32)
	require.NoError(t, record.Set(key, digest))

	desc, err = NewDescriptor(key, "v0.2.0", Coordinates{}, record)
	require.NoError(t, err)
	require.Equal(t, digest, desc.ExpectedHash)
	require.Equal(t, "0.2.0", desc.Version)

	_, err = NewDescriptor(key, " ", Coordinates{}, record)
	require.Error(t, err)

	desc, err = NewDescriptor(key, "0.2.0", Coordinates{}, nil)
	require.NoError(t, err)
	require.Empty(t, desc.ExpectedHash)
}
