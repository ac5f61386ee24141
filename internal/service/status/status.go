package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	ps "github.com/mitchellh/go-ps"

	"github.com/streamlinelabs/streamline-installer/internal/config"
	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/logger"
	"github.com/streamlinelabs/streamline-installer/internal/repository/receipt"
)

// Options controls a status query.
type Options struct {
	// Config is the validated configuration.
	Config *config.Config
}

// Status is a snapshot of the local install.
type Status struct {
	// Receipt is nil when nothing was installed.
	Receipt *release.Receipt
	// BinariesErr is nil when both installed binaries are present and executable.
	BinariesErr error
	// RunningPIDs lists processes named like the server.
	RunningPIDs []int
}

// ProcessLister lists running processes.
type ProcessLister func() ([]ps.Process, error)

// Collect gathers the install status.
func Collect(ctx context.Context, opts *Options, list ProcessLister) (*Status, error) {
	ctx = logger.WithName(ctx, "status")

	if list == nil {
		list = ps.Processes
	}

	layout := opts.Config.Layout()
	st := &Status{BinariesErr: layout.Binaries().Verify()}

	rec, err := receipt.NewFileRepository(layout.ReceiptPath).Load(ctx)

	switch {
	case err == nil:
		st.Receipt = rec
	case errors.Is(err, receipt.ErrNotFound):
		logger.DebugKV(ctx, "No install receipt", "path", layout.ReceiptPath)
	default:
		return nil, err
	}

	if st.RunningPIDs, err = FindRunning(list, release.ServerBinary); err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	return st, nil
}

// FindRunning returns the PIDs of processes whose executable is name, excluding this process.
func FindRunning(list ProcessLister, name string) ([]int, error) {
	processList, err := list()
	if err != nil {
		return nil, err
	}

	thisProcessID := os.Getpid()

	var pids []int

	for _, process := range processList {
		if process.Pid() == thisProcessID || process.Executable() != name {
			continue
		}

		pids = append(pids, process.Pid())
	}

	sort.Ints(pids)

	return pids, nil
}

// Print writes a human-readable status report to w.
func (s *Status) Print(w io.Writer) error {
	var b strings.Builder

	if s.Receipt == nil {
		b.WriteString("Streamline is not installed (no receipt found).\n")
	} else {
		r := s.Receipt
		fmt.Fprintf(&b, "Version:      %s (%s)\n", r.Version, r.Mode)
		fmt.Fprintf(&b, "Platform:     %s\n", r.Platform)

		if r.SHA256 != "" {
			fmt.Fprintf(&b, "SHA-256:      %s\n", r.SHA256)
		}

		fmt.Fprintf(&b, "Server:       %s\n", r.Binaries.ServerPath)
		fmt.Fprintf(&b, "CLI:          %s\n", r.Binaries.CLIPath)
		fmt.Fprintf(&b, "Data dir:     %s\n", r.DataDir)
		fmt.Fprintf(&b, "Log:          %s\n", r.LogPath)
		fmt.Fprintf(&b, "Installed at: %s\n", r.InstalledAt.Format("2006-01-02 15:04:05 MST"))

		if r.InstalledBy != nil {
			fmt.Fprintf(&b, "Installed by: %s@%s\n", r.InstalledBy.Username, r.InstalledBy.Hostname)
		}
	}

	if s.BinariesErr != nil {
		fmt.Fprintf(&b, "Binaries:     %v\n", s.BinariesErr)
	} else {
		b.WriteString("Binaries:     ok\n")
	}

	if len(s.RunningPIDs) == 0 {
		b.WriteString("State:        not running\n")
	} else {
		pids := make([]string, 0, len(s.RunningPIDs))
		for _, pid := range s.RunningPIDs {
			pids = append(pids, fmt.Sprint(pid))
		}

		fmt.Fprintf(&b, "State:        running (pid %s)\n", strings.Join(pids, ", "))
		b.WriteString("The smoke test uses its own ephemeral port and does not touch the running server.\n")
	}

	_, err := io.WriteString(w, b.String())

	return err
}
