//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// maxOutputInError caps how much command output is quoted in an error.
const maxOutputInError = 2048

// CommandRunner runs external tools (git, cargo, launchctl, systemctl).
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args in dir and returns combined output.
// On failure the tail of the output is part of the error.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var out bytes.Buffer

	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return out.Bytes(), fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, tail(out.Bytes()))
	}

	return out.Bytes(), nil
}

func tail(output []byte) string {
	trimmed := bytes.TrimSpace(output)
	if len(trimmed) > maxOutputInError {
		trimmed = trimmed[len(trimmed)-maxOutputInError:]
	}

	return string(trimmed)
}
