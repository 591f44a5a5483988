package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adenrele/Web-Portfolio/internal/qrcode"
)

// QROptions holds flags for the qr command.
type QROptions struct {
	URL  string
	Name string
	Type string
	Dir  string
}

// NewQRCommand creates the qr command.
func NewQRCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QROptions{}

	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Create a QR code image for a link",
		Long: `Create a QR code image for a link and save it as <dir>/QR/<name>.<type>.

The path relative to the static directory is printed on success.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			creator, err := qrcode.NewCreator(opts.URL, opts.Name, opts.Type)
			if err != nil {
				return err
			}

			img, err := creator.Create()
			if err != nil {
				return err
			}

			rel, err := creator.Save(opts.Dir, img)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), rel)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "link to encode (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "qrcode", "file name without extension")
	cmd.Flags().StringVar(&opts.Type, "type", "png", "image type (png|jpg|gif|bmp|tiff)")
	cmd.Flags().StringVar(&opts.Dir, "dir", "static", "static directory the QR folder is created in")
	cmd.MarkFlagRequired("url")

	return cmd
}
