package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adenrele/Web-Portfolio/internal/container"
)

// DockerfileOptions holds flags for the dockerfile command.
type DockerfileOptions struct {
	Manifest string
	Output   string
}

// NewDockerfileCommand creates the dockerfile command.
func NewDockerfileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DockerfileOptions{}

	cmd := &cobra.Command{
		Use:   "dockerfile",
		Short: "Render the container image recipe",
		Long: `Render the Dockerfile for this service.

The module manifest is parsed first so that a malformed go.mod fails here
rather than halfway through an image build.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Manifest != "" {
				m, err := container.CheckManifest(opts.Manifest)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: module %s, %d direct dependencies\n", opts.Manifest, m.Module, len(m.Direct()))
			}

			var buf bytes.Buffer
			if err := container.DefaultRecipe().Render(&buf); err != nil {
				return err
			}

			if opts.Output == "" || opts.Output == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(opts.Output, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", opts.Output, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Manifest, "check", "go.mod", "manifest to validate before rendering (empty to skip)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "-", "output file (- for stdout)")

	return cmd
}
