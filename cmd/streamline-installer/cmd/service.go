package cmd

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/streamlinelabs/streamline-installer/internal/config"
	"github.com/streamlinelabs/streamline-installer/internal/service/supervisor"
)

// serviceActivate loads and starts the service after writing it.
var serviceActivate bool

// serviceCmd groups service declaration commands.
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Declare the server to launchd (macOS) or systemd (Linux).",
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Write the service declaration and optionally activate it.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		path, err := registerService(ctx, cfg, serviceActivate || cfg.Service.Activate)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)

		return nil
	},
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop the service and remove its declaration.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		registrar, err := supervisor.NewUnitFileRegistrar(runtime.GOOS, cfg.Service.UnitDir, serviceActivate || cfg.Service.Activate)
		if err != nil {
			return err
		}

		return registrar.Unregister(ctx, cfg.Service.Label)
	},
}

var servicePrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the service declaration without writing it.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		spec, err := supervisor.BuildSpec(cfg.Layout().Binaries(), cfg.Layout(), cfg.Service)
		if err != nil {
			return err
		}

		registrar, err := supervisor.NewUnitFileRegistrar(runtime.GOOS, cfg.Service.UnitDir, false)
		if err != nil {
			return err
		}

		data, err := registrar.Render(spec)
		if err != nil {
			return err
		}

		_, err = cmd.OutOrStdout().Write(data)

		return err
	},
}

// registerService builds the ServiceSpec for the installed binaries and hands it to the host.
func registerService(ctx context.Context, cfg *config.Config, activate bool) (string, error) {
	layout := cfg.Layout()

	spec, err := supervisor.BuildSpec(layout.Binaries(), layout, cfg.Service)
	if err != nil {
		return "", err
	}

	registrar, err := supervisor.NewUnitFileRegistrar(runtime.GOOS, cfg.Service.UnitDir, activate)
	if err != nil {
		return "", err
	}

	return registrar.Register(ctx, spec)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	serviceInstallCmd.Flags().BoolVar(&serviceActivate, "activate", false, "load and start the service (launchctl/systemctl)")
	serviceUninstallCmd.Flags().BoolVar(&serviceActivate, "activate", false, "stop the service before removing it")
	serviceCmd.AddCommand(serviceInstallCmd, serviceUninstallCmd, servicePrintCmd)
	rootCmd.AddCommand(serviceCmd)
}
