package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/streamlinelabs/streamline-installer/internal/logger"
)

const (
	// lockFilename marks an install in progress under the var directory.
	lockFilename = "streamline-installer.lock"

	// lockLifetime is the age after which a leftover lock is treated as stale.
	lockLifetime = 30 * time.Minute
)

// ErrInstallInProgress is returned when another install holds the lock.
var ErrInstallInProgress = errors.New("another install is in progress")

// acquireLock creates the install marker in dir and returns its release function.
// A marker older than lockLifetime is removed and taken over.
func acquireLock(ctx context.Context, dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	path := filepath.Join(dir, lockFilename)

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
			_ = f.Close()

			return func() {
				_ = os.Remove(path)
			}, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock: %w", err)
		}

		info, statErr := os.Stat(path)
		if statErr != nil || time.Since(info.ModTime()) <= lockLifetime {
			return nil, fmt.Errorf("%w: %s", ErrInstallInProgress, path)
		}

		logger.InfoKV(ctx, "The install lock is too old, removing it", "path", path)

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock: %w", err)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrInstallInProgress, path)
}
