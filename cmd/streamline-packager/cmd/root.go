package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/streamlinelabs/streamline-installer/internal/service/packager"
	"github.com/streamlinelabs/streamline-installer/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// output is the integrity record path.
	output string
	// artifactDir reads archives from disk instead of downloading them.
	artifactDir string
	// strict fails when a platform keeps its placeholder.
	strict bool

	// rootCmd represents the base command for computing the integrity record.
	rootCmd = &cobra.Command{
		Use:   "streamline-packager [version]",
		Short: "Compute the SHA-256 integrity record of a Streamline release",
		Long: `Downloads the release archive of every supported platform (or reads it from
--artifact-dir), hashes it and writes the YAML integrity record used by
streamline-installer through release.checksums_file. Platforms without an
archive keep a placeholder, which blocks installs on them.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &packager.Options{
				ConfigPath:  configPath,
				Output:      output,
				ArtifactDir: artifactDir,
				Strict:      strict,
			}

			if len(args) > 0 {
				options.Version = args[0]
			}

			_, err := packager.Run(ctx, options, nil)

			return err
		},
	}
)

// Execute runs the streamline-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file with release coordinates")
	rootCmd.Flags().StringVarP(&output, "output", "o", packager.DefaultOutput, "path of the integrity record to write")
	rootCmd.Flags().StringVarP(&artifactDir, "artifact-dir", "d", "", "read archives from this directory")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "fail when any platform has no hash")
}
