package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogPath    string
}

// NewRootCommand creates the root command for the portfolio binary.
// Without a subcommand it runs the web server.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Personal portfolio web site",
		Long: `Serves the portfolio pages, the contact form and the small tools
shown on the projects page: a QR code generator and an activity time
similarity check.

Run without a subcommand to start the web server.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to configuration file (defaults and environment when empty)")
	cmd.PersistentFlags().StringVar(&opts.LogPath, "log", "", "path to log directory (overrides the configured one)")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewQRCommand(opts))
	cmd.AddCommand(NewSimilarityCommand(opts))
	cmd.AddCommand(NewDockerfileCommand(opts))

	return cmd
}
