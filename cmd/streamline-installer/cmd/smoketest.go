package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// smokeExpectVersion must appear in `streamline --version`.
	smokeExpectVersion string
	// smokeSkipSelfCheck skips the --version/--help checks.
	smokeSkipSelfCheck bool
)

// smokeTestCmd runs the smoke test against the installed binaries.
var smokeTestCmd = &cobra.Command{
	Use:   "smoke-test",
	Short: "Start the installed server on a free port, check it and stop it.",
	Long: `Starts <prefix>/bin/streamline with an isolated data directory on an ephemeral
port, waits for it to settle, probes its health endpoint (best effort) and
checks that the data directory was created. The server is always terminated;
the session directory is kept for inspection.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		return runSmokeTest(ctx, cfg, smokeExpectVersion, smokeSkipSelfCheck)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	smokeTestCmd.Flags().StringVar(&smokeExpectVersion, "expect-version", "", "version that --version must report")
	smokeTestCmd.Flags().BoolVar(&smokeSkipSelfCheck, "skip-self-check", false, "skip the --version/--help checks")
	rootCmd.AddCommand(smokeTestCmd)
}
