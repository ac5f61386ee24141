//go:build darwin || linux

package release

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func checkExecutable(path string, _ os.FileInfo) error {
	if err := unix.Access(path, unix.X_OK); err != nil {
		return fmt.Errorf("%s is not executable: %w", path, err)
	}

	return nil
}
