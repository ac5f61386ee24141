package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/service/provision"
)

// resolvePlatform is an "os/arch" override for resolve and install.
var resolvePlatform string

// resolveCmd prints the artifact descriptor for the host.
var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the artifact that would be installed on this host.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := &provision.Options{ConfigPath: configPath, Prefix: prefix}

		cfg, err := provision.LoadConfig(opts)
		if err != nil {
			return err
		}

		var key release.PlatformKey

		// Head mode never resolves the platform.
		if cfg.Mode == release.ModePrecompiled {
			if key, err = hostOrOverride(resolvePlatform); err != nil {
				return err
			}
		}

		src, err := provision.ResolveSource(cfg, key)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		switch s := src.(type) {
		case release.Precompiled:
			hash := s.Descriptor.ExpectedHash
			if release.IsPlaceholder(hash) {
				hash += " (placeholder, install will be refused)"
			}

			_, _ = fmt.Fprintf(out, "platform: %s\ntriple:   %s\nversion:  %s\nurl:      %s\nsha256:   %s\n",
				s.Descriptor.Platform, s.Descriptor.Platform.Triple(), s.Descriptor.Version, s.Descriptor.URL, hash)
		case release.FromSource:
			_, _ = fmt.Fprintf(out, "mode:       source\nrepository: %s\nbranch:     %s\n", s.Build.Repository, s.Build.Branch)
		}

		return nil
	},
}

// hostOrOverride parses override as os/arch, or resolves the host when it is empty.
func hostOrOverride(override string) (release.PlatformKey, error) {
	if override != "" {
		return release.ParsePlatformKey(override)
	}

	return release.HostPlatform()
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	resolveCmd.Flags().StringVar(&resolvePlatform, "platform", "", "resolve for os/arch instead of this host")
	rootCmd.AddCommand(resolveCmd)
}
