package release

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Default release coordinates of the upstream project.
const (
	DefaultHost    = "github.com"
	DefaultOrg     = "streamlinelabs"
	DefaultRepo    = "streamline"
	DefaultVersion = "0.2.0"
)

var errEmptyVersion = errors.New("release version is empty")

// Coordinates locate releases of a project on a host.
type Coordinates struct {
	Host string `yaml:"host"`
	Org  string `yaml:"org"`
	Repo string `yaml:"repo"`
}

// WithDefaults fills empty fields with the upstream coordinates.
func (c Coordinates) WithDefaults() Coordinates {
	if c.Host == "" {
		c.Host = DefaultHost
	}

	if c.Org == "" {
		c.Org = DefaultOrg
	}

	if c.Repo == "" {
		c.Repo = DefaultRepo
	}

	return c
}

// ArtifactURL renders the download URL of the artifact for a version and platform:
// https://<host>/<org>/<repo>/releases/download/v<version>/<repo>-<version>-<triple>.tar.gz.
// A host carrying a scheme (http://127.0.0.1:8080) is used as is, which lets tests
// point the installer at a local server.
func (c Coordinates) ArtifactURL(version string, key PlatformKey) string {
	c = c.WithDefaults()
	version = strings.TrimPrefix(version, "v")

	base := c.Host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}

	return fmt.Sprintf("%s/%s/%s/releases/download/v%s/%s",
		strings.TrimRight(base, "/"), c.Org, c.Repo, version, c.ArtifactName(version, key))
}

// ArtifactName returns the archive file name for a version and platform.
func (c Coordinates) ArtifactName(version string, key PlatformKey) string {
	c = c.WithDefaults()

	return fmt.Sprintf("%s-%s-%s.tar.gz", c.Repo, strings.TrimPrefix(version, "v"), key.Triple())
}

// ArtifactDescriptor describes one downloadable artifact. There is one per (platform, version).
type ArtifactDescriptor struct {
	Platform     PlatformKey
	Version      string
	URL          string
	ExpectedHash string
}

// NewDescriptor builds the descriptor for a platform from release coordinates and
// the integrity record. A placeholder hash is carried as is: Fetch rejects it before
// any network access.
func NewDescriptor(key PlatformKey, version string, coords Coordinates, record *IntegrityRecord) (ArtifactDescriptor, error) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	if version == "" {
		return ArtifactDescriptor{}, errEmptyVersion
	}

	artifactURL := coords.ArtifactURL(version, key)
	if _, err := url.ParseRequestURI(artifactURL); err != nil {
		return ArtifactDescriptor{}, fmt.Errorf("artifact url %q: %w", artifactURL, err)
	}

	return ArtifactDescriptor{
		Platform:     key,
		Version:      version,
		URL:          artifactURL,
		ExpectedHash: record.Hash(key),
	}, nil
}
