package cmd

import (
	"github.com/spf13/cobra"

	"github.com/streamlinelabs/streamline-installer/internal/service/status"
)

// statusCmd prints the install receipt and whether the server runs.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the installed release and whether the server is running.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := status.Collect(ctx, &status.Options{Config: cfg}, nil)
		if err != nil {
			return err
		}

		return st.Print(cmd.OutOrStdout())
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(statusCmd)
}
