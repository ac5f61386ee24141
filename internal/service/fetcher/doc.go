// Package fetcher downloads release artifacts and verifies them against the
// integrity record before anything else may use them.
//
// Checks run in a fixed order: the placeholder guard first (no network),
// then the transport, then the SHA-256 comparison. Only transport failures
// wrap release.ErrFetch; retrying them is the caller's decision.
package fetcher
