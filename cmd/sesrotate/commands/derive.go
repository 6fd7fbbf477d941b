package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/sesrotate/pkg/smtppass"
)

// NewDeriveCommand creates the 'derive' command, an offline helper that
// computes the SES SMTP password for a secret access key. Useful when
// seeding a secret by hand or diagnosing a relay authentication failure.
func NewDeriveCommand(opts *RootOptions) *cobra.Command {
	var (
		region    string
		secretKey string
	)

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive the SES SMTP password for a secret access key",
		Long: `Compute the SMTP password the SES SMTP interface expects for an IAM
secret access key and signing region. Purely local; no AWS calls are made.

The secret key is read from stdin unless --secret-key is given, to keep
it out of shell history and process listings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readSecretKey(secretKey, cmd.InOrStdin())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), smtppass.Derive(key, region))
			return nil
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "SES signing region, e.g. us-east-1")
	cmd.Flags().StringVar(&secretKey, "secret-key", "", "Secret access key (default: read from stdin)")
	_ = cmd.MarkFlagRequired("region")

	return cmd
}
