package release

import (
	"fmt"
	"runtime"
	"strings"
)

// OSFamily is an operating system family with published artifacts.
type OSFamily string

// Arch is a CPU architecture with published artifacts.
type Arch string

const (
	// Darwin is macOS.
	Darwin OSFamily = "darwin"
	// Linux is glibc-based Linux.
	Linux OSFamily = "linux"

	// ARM64 covers Apple silicon and aarch64 Linux.
	ARM64 Arch = "arm64"
	// X8664 covers Intel and AMD 64-bit CPUs.
	X8664 Arch = "x86_64"
)

// PlatformKey identifies the artifact flavour for a host. It is a comparable value.
type PlatformKey struct {
	OS   OSFamily
	Arch Arch
}

// String renders the key as os/arch.
func (k PlatformKey) String() string {
	return string(k.OS) + "/" + string(k.Arch)
}

// Triple returns the target triple used in artifact names and the integrity record.
func (k PlatformKey) Triple() string {
	cpu := "x86_64"
	if k.Arch == ARM64 {
		cpu = "aarch64"
	}

	if k.OS == Darwin {
		return cpu + "-apple-darwin"
	}

	return cpu + "-unknown-linux-gnu"
}

// placeholder returns the sentinel used for this platform in a fresh integrity record.
func (k PlatformKey) placeholder() string {
	arch := "X64"
	if k.Arch == ARM64 {
		arch = "ARM64"
	}

	return fmt.Sprintf("%s_%s_%s", PlaceholderPrefix, arch, strings.ToUpper(string(k.OS)))
}

// SupportedPlatforms lists every platform with a published artifact in a stable order.
func SupportedPlatforms() []PlatformKey {
	return []PlatformKey{
		{OS: Darwin, Arch: ARM64},
		{OS: Darwin, Arch: X8664},
		{OS: Linux, Arch: ARM64},
		{OS: Linux, Arch: X8664},
	}
}

// ResolvePlatform maps an OS family and CPU architecture to a PlatformKey.
// Both Go names (amd64) and target-triple names (x86_64, aarch64) are accepted.
// Anything outside {darwin, linux} x {arm64, x86_64} fails with ErrUnsupportedPlatform.
func ResolvePlatform(goos, goarch string) (PlatformKey, error) {
	var key PlatformKey

	switch strings.ToLower(strings.TrimSpace(goos)) {
	case "darwin", "macos":
		key.OS = Darwin
	case "linux":
		key.OS = Linux
	default:
		return PlatformKey{}, fmt.Errorf("%w: os %q, arch %q", ErrUnsupportedPlatform, goos, goarch)
	}

	switch strings.ToLower(strings.TrimSpace(goarch)) {
	case "arm64", "aarch64":
		key.Arch = ARM64
	case "amd64", "x86_64", "x64":
		key.Arch = X8664
	default:
		return PlatformKey{}, fmt.Errorf("%w: os %q, arch %q", ErrUnsupportedPlatform, goos, goarch)
	}

	return key, nil
}

// HostPlatform resolves the platform of the running process.
func HostPlatform() (PlatformKey, error) {
	return ResolvePlatform(runtime.GOOS, runtime.GOARCH)
}

// ParsePlatformKey parses the "os/arch" form produced by PlatformKey.String.
func ParsePlatformKey(s string) (PlatformKey, error) {
	goos, goarch, ok := strings.Cut(s, "/")
	if !ok {
		return PlatformKey{}, fmt.Errorf("%w: %q is not os/arch", ErrUnsupportedPlatform, s)
	}

	return ResolvePlatform(goos, goarch)
}
