package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/sesrotate/internal/awsapi"
	"github.com/systmms/sesrotate/internal/rotation"
)

// NewCheckCommand creates the 'check' command: standalone live
// verification of an access key, with the same propagation-tolerant retry
// behavior as the testSecret step.
func NewCheckCommand(opts *RootOptions) *cobra.Command {
	var (
		accessKeyID string
		secretKey   string
		region      string
		expect      string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify an access key authenticates, printing the resolved identity",
		Long: `Authenticate with an access key against STS and print the identity it
resolves to. Authentication failures are retried on the same schedule as
the testSecret rotation step, tolerating key propagation delay.

With --expect, exits non-zero unless the key resolves to that identity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.Logger()

			key, err := readSecretKey(secretKey, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			clients, err := awsapi.New(ctx, awsapi.Options{Region: region})
			if err != nil {
				return err
			}

			rotator := rotation.New(clients, expect, logger)
			identity, err := rotator.VerifyCredential(ctx, accessKeyID, key)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), identity)
			if expect != "" && identity != expect {
				return fmt.Errorf("authenticated as %s, expected %s", identity, expect)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accessKeyID, "access-key-id", "", "Access key ID to verify")
	cmd.Flags().StringVar(&secretKey, "secret-key", "", "Secret access key (default: read from stdin)")
	cmd.Flags().StringVar(&region, "region", "", "AWS region for the STS call")
	cmd.Flags().StringVar(&expect, "expect", "", "Identity the key must resolve to")
	_ = cmd.MarkFlagRequired("access-key-id")

	return cmd
}
