package release

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestResolvePlatform_Supported enumerates the four supported pairs and checks the keys are distinct and stable.
func TestResolvePlatform_Supported(t *testing.T) {
	t.Parallel()

	cases := []struct {
		goos, goarch string
		want         PlatformKey
		triple       string
	}{
		{"darwin", "arm64", PlatformKey{OS: Darwin, Arch: ARM64}, "aarch64-apple-darwin"},
		{"darwin", "amd64", PlatformKey{OS: Darwin, Arch: X8664}, "x86_64-apple-darwin"},
		{"linux", "arm64", PlatformKey{OS: Linux, Arch: ARM64}, "aarch64-unknown-linux-gnu"},
		{"linux", "x86_64", PlatformKey{OS: Linux, Arch: X8664}, "x86_64-unknown-linux-gnu"},
	}

	seen := make(map[PlatformKey]struct{}, len(cases))

	for _, tc := range cases {
		got, err := ResolvePlatform(tc.goos, tc.goarch)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
		require.Equal(t, tc.triple, got.Triple())

		again, err := ResolvePlatform(tc.goos, tc.goarch)
		require.NoError(t, err)
		require.Equal(t, got, again)

		seen[got] = struct{}{}
	}

	require.Len(t, seen, len(cases))
	require.ElementsMatch(t, SupportedPlatforms(), []PlatformKey{
		cases[0].want, cases[1].want, cases[2].want, cases[3].want,
	})
}

// TestResolvePlatform_Unsupported ensures unknown hosts fail closed.
func TestResolvePlatform_Unsupported(t *testing.T) {
	t.Parallel()

	for _, pair := range [][2]string{
		{"windows", "amd64"},
		{"linux", "386"},
		{"freebsd", "arm64"},
		{"", ""},
	} {
		key, err := ResolvePlatform(pair[0], pair[1])
		require.ErrorIs(t, err, ErrUnsupportedPlatform, pair)
		require.Equal(t, PlatformKey{}, key)
	}
}

func TestParsePlatformKey(t *testing.T) {
	t.Parallel()

	for _, key := range SupportedPlatforms() {
		parsed, err := ParsePlatformKey(key.String())
		require.NoError(t, err)
		require.Equal(t, key, parsed)
	}

	_, err := ParsePlatformKey("linux")
	require.ErrorIs(t, err, ErrUnsupportedPlatform)

	_, err = ParsePlatformKey("windows/amd64")
	require.ErrorIs(t, err, ErrUnsupportedPlatform)
}
