//go:build !darwin && !linux

package release

import (
	"fmt"
	"os"
)

func checkExecutable(path string, info os.FileInfo) error {
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}

	return nil
}
