package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adenrele/Web-Portfolio/internal/similarity"
)

// NewSimilarityCommand creates the similarity command.
func NewSimilarityCommand(rootOpts *RootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "similarity <csv-file>",
		Short: "Find the two users with the most similar activity times",
		Long: `Read a Users,Times CSV file (times as HH:MM:SS) and print the pair of
users whose average time of day is closest.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := similarity.ComputeFromCSV(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Fprintf(out, "Most similar users: %s and %s (distance %.6f)\n", result.User1, result.User2, result.Distance)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}
