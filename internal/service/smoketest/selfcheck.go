package smoketest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/logger"
)

// selfCheckTimeout bounds each --version/--help invocation.
const selfCheckTimeout = 10 * time.Second

var errUnexpectedOutput = errors.New("unexpected output")

// selfCheck runs path with flag and expects want in the output.
type selfCheck struct {
	path string
	flag string
	want string
}

// SelfCheck runs the binaries with --version and --help. The server's version
// output must contain wantVersion unless it is empty. Both help texts must
// mention the binary.
func (c *Controller) SelfCheck(ctx context.Context, installed release.InstalledBinarySet, wantVersion string) error {
	ctx = logger.WithName(ctx, "self-check")

	if err := installed.Verify(); err != nil {
		return fmt.Errorf("%w: %w", release.ErrSmokeTestAssertionFailed, err)
	}

	checks := []selfCheck{
		{path: installed.ServerPath, flag: "--help", want: release.ServerBinary},
		{path: installed.CLIPath, flag: "--help", want: release.CLIBinary},
	}

	if wantVersion != "" {
		checks = append(checks, selfCheck{path: installed.ServerPath, flag: "--version", want: wantVersion})
	}

	var errs []error

	for _, check := range checks {
		if err := c.runCheck(ctx, check.path, check.flag, check.want); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", release.ErrSmokeTestAssertionFailed, errors.Join(errs...))
	}

	logger.InfoKV(ctx, "Binary self-checks passed", "version", wantVersion)

	return nil
}

func (c *Controller) runCheck(ctx context.Context, path, flag, want string) error {
	checkCtx, cancel := context.WithTimeout(ctx, selfCheckTimeout)
	defer cancel()

	out, err := c.runner.Run(checkCtx, "", path, flag)
	if err != nil {
		return fmt.Errorf("%s %s: %w", path, flag, err)
	}

	if !strings.Contains(string(out), want) {
		return fmt.Errorf("%s %s: %w: %q does not mention %q", path, flag, errUnexpectedOutput,
			strings.TrimSpace(string(out)), want)
	}

	logger.DebugKV(ctx, "Self-check passed", "binary", path, "flag", flag)

	return nil
}
