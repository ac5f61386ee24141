package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/testutil"
)

var errTransport = errors.New("connection refused")

// countingDoer counts requests and delegates to next, or fails when next is nil.
type countingDoer struct {
	calls atomic.Int32
	next  Doer
}

func (d *countingDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls.Add(1)

	if d.next == nil {
		return nil, errTransport
	}

	return d.next.Do(req)
}

func linuxX64() release.PlatformKey {
	return release.PlatformKey{OS: release.Linux, Arch: release.X8664}
}

func serve(t *testing.T, body []byte) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)

	return ts
}

// TestFetch_PlaceholderHashMakesNoRequests checks the placeholder guard runs before any network access.
func TestFetch_PlaceholderHashMakesNoRequests(t *testing.T) {
	t.Parallel()

	for _, hash := range []string{"PLACEHOLDER_SHA256_X64_LINUX", "", "not-a-digest"} {
		doer := new(countingDoer)
		f := New(WithClient(doer))

		artifact, err := f.Fetch(context.Background(), release.ArtifactDescriptor{
			Platform:     linuxX64(),
			Version:      "0.2.0",
			URL:          "https://example.invalid/streamline.tar.gz",
			ExpectedHash: hash,
		})

		require.ErrorIs(t, err, release.ErrPlaceholderHash, hash)
		require.Nil(t, artifact)
		require.Zero(t, doer.calls.Load())
	}
}

// TestFetch_Verified returns the bytes when the hash matches.
func TestFetch_Verified(t *testing.T) {
	t.Parallel()

	body := []byte("release archive")
	ts := serve(t, body)
	doer := &countingDoer{next: ts.Client()}

	f := New(WithClient(doer))

	artifact, err := f.Fetch(context.Background(), release.ArtifactDescriptor{
		Platform:     linuxX64(),
		Version:      "0.2.0",
		URL:          ts.URL + "/streamline-0.2.0-x86_64-unknown-linux-gnu.tar.gz",
		ExpectedHash: strings.ToLower(testutil.SHA256Hex(body)),
	})

	require.NoError(t, err)
	require.Equal(t, body, artifact.Data)
	require.Equal(t, testutil.SHA256Hex(body), artifact.SHA256)
	require.EqualValues(t, 1, doer.calls.Load())
}

// TestFetch_IntegrityMismatch rejects tampered bytes and reports both hashes.
func TestFetch_IntegrityMismatch(t *testing.T) {
	t.Parallel()

	original := []byte("release archive")
	ts := serve(t, []byte("tampered archive"))

	expected := testutil.SHA256Hex(original)

	artifact, err := New(WithClient(ts.Client())).Fetch(context.Background(), release.ArtifactDescriptor{
		Platform:     linuxX64(),
		Version:      "0.2.0",
		URL:          ts.URL + "/a.tar.gz",
		ExpectedHash: expected,
	})

	require.ErrorIs(t, err, release.ErrIntegrityMismatch)
	require.NotErrorIs(t, err, release.ErrFetch)
	require.Nil(t, artifact)
	require.Contains(t, err.Error(), expected)
	require.Contains(t, err.Error(), testutil.SHA256Hex([]byte("tampered archive")))
	require.Contains(t, err.Error(), "linux/x86_64")
}

// TestFetch_TransportErrors classifies transport failures and bad statuses as ErrFetch.
func TestFetch_TransportErrors(t *testing.T) {
	t.Parallel()

	desc := release.ArtifactDescriptor{
		Platform:     linuxX64(),
		Version:      "0.2.0",
		URL:          "http://127.0.0.1:1/a.tar.gz",
		ExpectedHash: testutil.SHA256Hex([]byte("x")),
	}

	_, err := New(WithClient(new(countingDoer))).Fetch(context.Background(), desc)
	require.ErrorIs(t, err, release.ErrFetch)
	require.ErrorIs(t, err, errTransport)

	ts := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(ts.Close)

	desc.URL = ts.URL + "/missing.tar.gz"

	_, err = New(WithClient(ts.Client())).Fetch(context.Background(), desc)
	require.ErrorIs(t, err, release.ErrFetch)
	require.Contains(t, err.Error(), "404")
}

// TestFetch_MaxSize refuses oversized bodies.
func TestFetch_MaxSize(t *testing.T) {
	t.Parallel()

	body := []byte(strings.Repeat("x", 64))
	ts := serve(t, body)

	_, err := New(WithClient(ts.Client()), WithMaxSize(16)).Fetch(context.Background(), release.ArtifactDescriptor{
		Platform:     linuxX64(),
		URL:          ts.URL,
		ExpectedHash: testutil.SHA256Hex(body),
	})
	require.ErrorIs(t, err, release.ErrFetch)
}
