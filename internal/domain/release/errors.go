package release

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedPlatform is returned for any (os, arch) pair without a published artifact.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrPlaceholderHash means the integrity record has no real hash for the platform yet.
	ErrPlaceholderHash = errors.New("expected hash is a placeholder")
	// ErrFetch marks transport failures. It is the only retryable category.
	ErrFetch = errors.New("fetch failed")
	// ErrIntegrityMismatch means downloaded content does not hash to the expected value.
	ErrIntegrityMismatch = errors.New("integrity mismatch")
	// ErrPartialBinarySet means only part of {server, cli} is present after install.
	ErrPartialBinarySet = errors.New("partial binary set")
	// ErrServiceSpecInvalid is raised before a service spec is handed to the host supervisor.
	ErrServiceSpecInvalid = errors.New("service spec invalid")
	// ErrSmokeTestAssertionFailed signals the installed binary failed validation.
	ErrSmokeTestAssertionFailed = errors.New("smoke test assertion failed")
	// ErrCleanupFailed means a smoke-test child process could not be terminated.
	ErrCleanupFailed = errors.New("cleanup failed")
)

// PartialBinarySetError names the binaries that are missing after an install attempt.
// Files already placed are listed in Placed and are left on disk.
type PartialBinarySetError struct {
	// Missing lists the binary names that could not be placed or found.
	Missing []string
	// Placed lists the binary names that are present.
	Placed []string
	// Err is the underlying failure for the first missing binary, if any.
	Err error
}

func (e *PartialBinarySetError) Error() string {
	msg := fmt.Sprintf("%s: missing %s", ErrPartialBinarySet, strings.Join(e.Missing, ", "))
	if len(e.Placed) > 0 {
		msg += fmt.Sprintf(" (placed %s)", strings.Join(e.Placed, ", "))
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is.
func (e *PartialBinarySetError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPartialBinarySet}
	}

	return []error{ErrPartialBinarySet, e.Err}
}

// CleanupFailedError reports a child process that may still be running.
type CleanupFailedError struct {
	// PID is the process identifier of the leaked child.
	PID int
	// Err describes why termination could not be confirmed.
	Err error
}

func (e *CleanupFailedError) Error() string {
	return fmt.Sprintf("%s: process %d may still be running: %v", ErrCleanupFailed, e.PID, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is.
func (e *CleanupFailedError) Unwrap() []error {
	return []error{ErrCleanupFailed, e.Err}
}
