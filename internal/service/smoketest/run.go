package smoketest

import (
	"context"
	"errors"

	"github.com/streamlinelabs/streamline-installer/internal/config"
	"github.com/streamlinelabs/streamline-installer/internal/logger"
)

var errConfigRequired = errors.New("smoke test needs a configuration")

// Options controls a standalone smoke-test run.
type Options struct {
	// Config is the validated configuration; the layout gives the binaries to test.
	Config *config.Config
	// ExpectVersion is matched against `streamline --version`; empty skips the match.
	ExpectVersion string
	// SkipSelfCheck disables the --version/--help checks.
	SkipSelfCheck bool
}

// Run smoke-tests the binaries installed under the configured prefix.
func Run(ctx context.Context, opts *Options, extra ...ControllerOption) (*Report, error) {
	ctx = logger.WithName(ctx, "smoke-test")

	if opts.Config == nil {
		return nil, errConfigRequired
	}

	installed := opts.Config.Layout().Binaries()
	controller := NewController(opts.Config.SmokeTest, extra...)

	if !opts.SkipSelfCheck {
		if err := controller.SelfCheck(ctx, installed, opts.ExpectVersion); err != nil {
			return nil, err
		}
	}

	report, err := controller.Run(ctx, installed)
	if report != nil {
		logger.InfoKV(ctx, "Smoke test finished",
			"state", report.State,
			"pid", report.PID,
			"probed", report.Probed,
			"probe_error", report.ProbeErr,
			"session_dir", report.SessionDir,
			"duration", report.Duration.String())
	}

	return report, err
}
