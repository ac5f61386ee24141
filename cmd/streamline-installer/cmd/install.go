package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/streamlinelabs/streamline-installer/internal/config"
	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/logger"
	"github.com/streamlinelabs/streamline-installer/internal/service/provision"
	"github.com/streamlinelabs/streamline-installer/internal/service/smoketest"
)

var (
	// installVersion overrides the configured release version.
	installVersion string
	// installMode overrides the configured install mode.
	installMode string
	// installPlatform overrides host detection.
	installPlatform string
	// installService declares the service after installing.
	installService bool
	// installSmokeTest runs the smoke test after installing.
	installSmokeTest bool
)

// installCmd resolves, fetches, verifies and installs the binaries.
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the Streamline server and CLI.",
	Long: `Installs the server and CLI binaries into <prefix>/bin.

In precompiled mode the release archive for this host is downloaded and its
SHA-256 checked against the integrity record before anything is written.
In source mode (--mode source) the sources are built with cargo instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signalContext()
		defer stop()

		options := &provision.Options{
			ConfigPath: configPath,
			Prefix:     prefix,
			Version:    installVersion,
			Mode:       installMode,
			Platform:   installPlatform,
		}

		rec, cfg, err := provision.Run(ctx, options)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), provision.Caveats(cfg))

		if installService {
			if _, err = registerService(ctx, cfg, cfg.Service.Activate); err != nil {
				return err
			}
		}

		if !installSmokeTest {
			return nil
		}

		return runSmokeTest(ctx, cfg, expectedVersion(rec), false)
	},
}

// expectedVersion is the version `streamline --version` must print, empty for source builds.
func expectedVersion(rec *release.Receipt) string {
	if rec.Mode != release.ModePrecompiled {
		return ""
	}

	return rec.Version
}

// runSmokeTest runs the smoke test and reports a failure without undoing the install.
func runSmokeTest(ctx context.Context, cfg *config.Config, wantVersion string, skipSelfCheck bool) error {
	report, err := smoketest.Run(ctx, &smoketest.Options{
		Config:        cfg,
		ExpectVersion: wantVersion,
		SkipSelfCheck: skipSelfCheck,
	})
	if err != nil {
		if report != nil {
			logger.ErrorKV(ctx, "Smoke test failed; the installed files are kept",
				"session_dir", report.SessionDir, "log", report.LogPath)
		}

		return fmt.Errorf("smoke test: %w", err)
	}

	if report.ProbeErr != nil {
		logger.WarnKV(ctx, "Health endpoint did not answer; the server still passed", "error", report.ProbeErr)
	}

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	installCmd.Flags().StringVar(&installVersion, "version", "", "release version to install")
	installCmd.Flags().StringVar(&installMode, "mode", "", "install mode: precompiled or source")
	installCmd.Flags().StringVar(&installPlatform, "platform", "", "install the artifact for os/arch instead of this host")
	installCmd.Flags().BoolVar(&installService, "service", false, "declare the service after installing")
	installCmd.Flags().BoolVar(&installSmokeTest, "smoke-test", true, "smoke-test the installed server")
	rootCmd.AddCommand(installCmd)
}
