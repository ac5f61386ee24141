package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/streamlinelabs/streamline-installer/internal/config"
	"github.com/streamlinelabs/streamline-installer/internal/logger"
	"github.com/streamlinelabs/streamline-installer/internal/service/provision"
	"github.com/streamlinelabs/streamline-installer/internal/version"
)

// errUnknownLogLevel is returned for a --log-level value zap does not know.
var errUnknownLogLevel = errors.New("unknown log level")

var (
	// configPath to the configuration YAML file; empty means built-in defaults.
	configPath string
	// prefix overrides the install prefix.
	prefix string
	// logLevel is the minimum level of log messages.
	logLevel string

	// rootCmd represents the base command of the installer.
	rootCmd = &cobra.Command{
		Use:   "streamline-installer",
		Short: "Install, supervise and smoke-test the Streamline server.",
		Long: `Resolves the Streamline release artifact for this host, verifies its SHA-256
against the integrity record, installs the server and CLI binaries, declares the
server to launchd or systemd and smoke-tests the installed binary.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if !logger.ConfigureLevel(logLevel) {
				return fmt.Errorf("%w: %q", errUnknownLogLevel, logLevel)
			}

			return nil
		},
	}
)

// Execute runs the streamline-installer CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext cancels on SIGTERM and SIGINT.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// loadConfig applies the persistent flags on top of the configuration file.
func loadConfig() (*config.Config, error) {
	return provision.LoadConfig(&provision.Options{ConfigPath: configPath, Prefix: prefix})
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVarP(&prefix, "prefix", "p", "", "install prefix (default "+config.DefaultPrefix+")")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level: debug, info, warn, error")
}
