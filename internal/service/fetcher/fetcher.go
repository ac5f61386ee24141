package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/logger"
)

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// VerifiedArtifact is artifact content whose hash matched the integrity record.
type VerifiedArtifact struct {
	Descriptor release.ArtifactDescriptor
	Data       []byte
	SHA256     string
}

// Fetcher retrieves artifacts over HTTP.
type Fetcher struct {
	// client performs the download.
	client Doer
	// maxSize caps the number of bytes read from a response.
	maxSize int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

const (
	// DefaultMaxSize caps artifact downloads at 1 GiB.
	DefaultMaxSize int64 = 1 << 30

	defaultTimeout = 5 * time.Minute
)

// WithClient replaces the HTTP client.
func WithClient(client Doer) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout uses a fresh *http.Client with the given overall timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.client = &http.Client{Timeout: timeout}
		}
	}
}

// WithMaxSize changes the download size cap.
func WithMaxSize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxSize = size
		}
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{Timeout: defaultTimeout},
		maxSize: DefaultMaxSize,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads the artifact described by desc and returns it only if its
// SHA-256 equals desc.ExpectedHash.
func (f *Fetcher) Fetch(ctx context.Context, desc release.ArtifactDescriptor) (*VerifiedArtifact, error) {
	ctx = logger.WithName(ctx, "fetcher")

	if release.IsPlaceholder(desc.ExpectedHash) {
		return nil, fmt.Errorf("%w: platform %s, version %s, value %q",
			release.ErrPlaceholderHash, desc.Platform, desc.Version, desc.ExpectedHash)
	}

	if err := release.ValidateDigest(desc.ExpectedHash); err != nil {
		return nil, fmt.Errorf("%w: platform %s: %w", release.ErrPlaceholderHash, desc.Platform, err)
	}

	logger.InfoKV(ctx, "Downloading artifact", "url", desc.URL)

	data, err := f.download(ctx, desc.URL)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	observed := hex.EncodeToString(sum[:])

	if observed != desc.ExpectedHash {
		logger.ErrorKV(ctx, "Artifact hash mismatch", "expected", desc.ExpectedHash, "observed", observed)

		return nil, fmt.Errorf("%w: platform %s, url %s, expected %s, observed %s",
			release.ErrIntegrityMismatch, desc.Platform, desc.URL, desc.ExpectedHash, observed)
	}

	logger.InfoKV(ctx, "Artifact verified", "sha256", observed, "bytes", len(data))

	return &VerifiedArtifact{
		Descriptor: desc,
		Data:       data,
		SHA256:     observed,
	}, nil
}

// Download retrieves url without any integrity check. It is meant for computing
// the hashes of a new release, never for installing.
func (f *Fetcher) Download(ctx context.Context, artifactURL string) ([]byte, error) {
	return f.download(ctx, artifactURL)
}

// download reads the whole response body, bounded by maxSize.
func (f *Fetcher) download(ctx context.Context, artifactURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifactURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", artifactURL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", release.ErrFetch, artifactURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: unexpected status %s", release.ErrFetch, artifactURL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", release.ErrFetch, artifactURL, err)
	}

	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", release.ErrFetch, artifactURL, f.maxSize)
	}

	return data, nil
}
