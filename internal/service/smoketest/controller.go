package smoketest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/streamlinelabs/streamline-installer/internal/config"
	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/logger"
	"github.com/streamlinelabs/streamline-installer/internal/service/common"
)

// sessionDirPattern names session directories under the work dir.
const sessionDirPattern = "streamline-smoke-*"

// Report describes a finished session.
type Report struct {
	PID        int
	Port       int
	SessionDir string
	DataDir    string
	LogPath    string
	StartedAt  time.Time
	Duration   time.Duration
	// ProbeErr is the outcome of the best-effort health probe, nil when healthy or skipped.
	ProbeErr error
	// Probed is false when no prober is configured.
	Probed bool
	// Escalated is true when SIGTERM was not honoured and SIGKILL was sent.
	Escalated bool
	// State is the last state the session reached.
	State State
}

// Controller runs smoke-test sessions.
type Controller struct {
	cfg    config.SmokeTestConfig
	prober Prober
	runner common.CommandRunner
	ports  *portClaims
}

// ControllerOption customises a Controller.
type ControllerOption func(*Controller)

// WithProber replaces the prober derived from configuration. A nil prober skips probing.
func WithProber(p Prober) ControllerOption {
	return func(c *Controller) {
		c.prober = p
	}
}

// WithRunner replaces the command runner used for binary self-checks.
func WithRunner(r common.CommandRunner) ControllerOption {
	return func(c *Controller) {
		c.runner = r
	}
}

// NewController creates a controller. cfg is expected to be validated.
func NewController(cfg config.SmokeTestConfig, opts ...ControllerOption) *Controller {
	c := &Controller{
		cfg:    cfg,
		prober: NewProber(cfg),
		runner: common.ExecRunner{},
		ports:  sharedPorts,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run launches the installed server, probes it, asserts on it and terminates it.
// The returned error joins assertion and cleanup failures; a *release.CleanupFailedError
// is never hidden behind an assertion error. The report is returned whenever a
// process was spawned.
func (c *Controller) Run(ctx context.Context, installed release.InstalledBinarySet) (report *Report, err error) {
	ctx = logger.WithName(ctx, "smoke-test")

	// Both binaries are required before a session may exist.
	if err = installed.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %w", release.ErrSmokeTestAssertionFailed, err)
	}

	report = &Report{State: StateLaunching}

	port, err := c.ports.claim()
	if err != nil {
		return nil, err
	}

	defer c.ports.release(port)

	if err = verifyFree(port); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(c.cfg.WorkDir, sessionDirPattern)
	if err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	session, err := spawn(installed.ServerPath, port, dir, c.cfg.Env)
	if err != nil {
		return nil, err
	}

	report.PID = session.PID()
	report.Port = session.Port
	report.SessionDir = session.Dir
	report.DataDir = session.DataDir
	report.LogPath = session.LogPath
	report.StartedAt = session.StartedAt

	ctx = logger.WithKV(ctx, "pid", report.PID, "port", port)
	logger.InfoKV(ctx, "Server launched", "data_dir", session.DataDir, "log", session.LogPath)

	// From here on the child exists, so it is terminated on every path.
	defer func() {
		report.State = StateTerminating

		escalated, cleanupErr := session.terminate(c.cfg.TerminateTimeout, c.cfg.KillTimeout, c.cfg.ShouldEscalate())
		report.Escalated = escalated
		report.Duration = time.Since(session.StartedAt)

		if cleanupErr != nil {
			logger.ErrorKV(ctx, "Server could not be terminated", "error", cleanupErr)
			err = errors.Join(err, cleanupErr)

			return
		}

		report.State = StateDone
		logger.InfoKV(ctx, "Server terminated", "escalated", escalated, "session_dir", session.Dir)
	}()

	if err = sleep(ctx, c.cfg.SettleDelay); err != nil {
		return report, err
	}

	report.State = StateProbing
	report.Probed, report.ProbeErr = c.probe(ctx, port)

	report.State = StateAsserting
	if err = session.assert(); err != nil {
		logger.ErrorKV(ctx, "Smoke test assertion failed", "error", err)

		return report, err
	}

	logger.InfoKV(ctx, "Smoke test assertions passed", "data_dir", session.DataDir)

	return report, nil
}

// probe runs the best-effort health probe. Its failure only gets logged.
func (c *Controller) probe(ctx context.Context, port int) (bool, error) {
	if c.prober == nil {
		return false, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	if err := c.prober.Probe(probeCtx, port); err != nil {
		logger.WarnKV(ctx, "Health probe failed, continuing", "error", err)

		return true, err
	}

	logger.InfoKV(ctx, "Health probe succeeded")

	return true, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
