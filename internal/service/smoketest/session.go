package smoketest

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	ps "github.com/mitchellh/go-ps"
	"golang.org/x/sys/unix"

	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
)

// State is a step of the session lifecycle.
type State string

// Session states in the order they are entered.
const (
	StateIdle        State = "idle"
	StateLaunching   State = "launching"
	StateProbing     State = "probing"
	StateAsserting   State = "asserting"
	StateTerminating State = "terminating"
	StateDone        State = "done"
)

// Session is one running smoke-test child and the resources it holds.
type Session struct {
	// Port is the ephemeral port passed with --port.
	Port int
	// Dir is the session directory; it is kept after the session ends.
	Dir string
	// DataDir is passed with --data-dir and must exist after the settle delay.
	DataDir string
	// LogPath collects the child's stdout and stderr.
	LogPath string
	// StartedAt is when the child was spawned.
	StartedAt time.Time

	cmd     *exec.Cmd
	logFile *os.File
	exited  chan struct{}
	exitErr error
}

var (
	errExitedEarly   = errors.New("server exited before assertions")
	errTermTimeout   = errors.New("no exit after SIGTERM")
	errKillTimeout   = errors.New("no exit after SIGKILL")
	errStillListed   = errors.New("process still listed after reaping")
	errDataDirAbsent = errors.New("data directory was not created")
)

// spawn starts server with --data-dir and --port in dir.
func spawn(server string, port int, dir string, env []string) (*Session, error) {
	s := &Session{
		Port:    port,
		Dir:     dir,
		DataDir: filepath.Join(dir, "data"),
		LogPath: filepath.Join(dir, "server.log"),
		exited:  make(chan struct{}),
	}

	logFile, err := os.OpenFile(s.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}

	// The child is not bound to a context: it is stopped only through terminate.
	cmd := exec.Command(server, "--data-dir", s.DataDir, "--port", strconv.Itoa(port)) //nolint:gosec,noctx // Installed binary.
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err = cmd.Start(); err != nil {
		_ = logFile.Close()

		return nil, fmt.Errorf("start %s: %w", server, err)
	}

	s.cmd = cmd
	s.logFile = logFile
	s.StartedAt = time.Now()

	go func() {
		s.exitErr = cmd.Wait()
		close(s.exited)
	}()

	return s, nil
}

// PID returns the child's process identifier.
func (s *Session) PID() int {
	return s.cmd.Process.Pid
}

// alive reports whether the child has not exited yet.
func (s *Session) alive() bool {
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

// assert checks that the child is still running and initialised its storage.
func (s *Session) assert() error {
	var errs []error

	if !s.alive() {
		errs = append(errs, fmt.Errorf("%w: %v", errExitedEarly, s.exitErr))
	}

	info, err := os.Stat(s.DataDir)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("%w: %s: %w", errDataDirAbsent, s.DataDir, err))
	case !info.IsDir():
		errs = append(errs, fmt.Errorf("%w: %s is not a directory", errDataDirAbsent, s.DataDir))
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", release.ErrSmokeTestAssertionFailed, errors.Join(errs...))
}

// terminate stops the child and waits until it is reaped. It returns whether
// SIGKILL was needed.
func (s *Session) terminate(termTimeout, killTimeout time.Duration, escalate bool) (bool, error) {
	defer func() {
		_ = s.logFile.Close()
	}()

	pid := s.PID()

	if s.alive() {
		if err := s.cmd.Process.Signal(unix.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return false, &release.CleanupFailedError{PID: pid, Err: fmt.Errorf("send SIGTERM: %w", err)}
		}
	}

	if waitExit(s.exited, termTimeout) {
		return false, verifyGone(pid, s.cmd.Path)
	}

	if !escalate {
		return false, &release.CleanupFailedError{PID: pid, Err: fmt.Errorf("%w within %s", errTermTimeout, termTimeout)}
	}

	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return true, &release.CleanupFailedError{PID: pid, Err: fmt.Errorf("send SIGKILL: %w", err)}
	}

	if !waitExit(s.exited, killTimeout) {
		return true, &release.CleanupFailedError{PID: pid, Err: fmt.Errorf("%w within %s", errKillTimeout, killTimeout)}
	}

	return true, verifyGone(pid, s.cmd.Path)
}

func waitExit(exited <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-exited:
		return true
	case <-timer.C:
		return false
	}
}

// verifyGone confirms through the process table that the reaped child is gone.
// A PID reused by an unrelated process is ignored.
func verifyGone(pid int, executable string) error {
	process, err := ps.FindProcess(pid)
	if err != nil {
		return &release.CleanupFailedError{PID: pid, Err: fmt.Errorf("inspect process table: %w", err)}
	}

	if process == nil || process.PPid() != os.Getpid() || process.Executable() != filepath.Base(executable) {
		return nil
	}

	return &release.CleanupFailedError{PID: pid, Err: errStillListed}
}
