package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/sesrotate/internal/awsapi"
	"github.com/systmms/sesrotate/internal/rotation"
)

// NewRotateCommand creates the 'rotate' command, which performs exactly
// one rotation step. The orchestrator owning the secret's stage
// bookkeeping invokes it once per step.
func NewRotateCommand(opts *RootOptions) *cobra.Command {
	var (
		secretID string
		token    string
		step     string
	)

	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Perform one step of a secret rotation",
		Long: `Perform one step of the four-step rotation protocol for an SES SMTP
credential secret.

Steps are invoked in order by the orchestrator:
  createSecret   mint a replacement access key and stage the new payload
  setSecret      no-op (IAM issues the key material itself)
  testSecret     authenticate with the staged credential
  finishSecret   promote the staged version to AWSCURRENT

Every step is idempotent and safe to re-invoke after a partial failure.

Examples:
  sesrotate rotate --secret-id arn:aws:secretsmanager:...:secret:ses-smtp \
    --token 11111111-2222-3333-4444-555555555555 --step createSecret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.Logger()

			cfg, err := opts.LoadConfig(logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			clients, err := awsapi.New(ctx, awsapi.Options{
				Region:                 cfg.Region,
				SecretsManagerEndpoint: cfg.SecretsManagerEndpoint,
			})
			if err != nil {
				return err
			}

			rotator := rotation.New(clients, cfg.Username, logger,
				rotation.WithMetrics(rotation.NewMetrics()))

			return rotator.Execute(ctx, rotation.Event{
				SecretID:           secretID,
				ClientRequestToken: token,
				Step:               rotation.Step(step),
			})
		},
	}

	cmd.Flags().StringVar(&secretID, "secret-id", "", "ARN or name of the secret to rotate")
	cmd.Flags().StringVar(&token, "token", "", "Client request token identifying the secret version")
	cmd.Flags().StringVar(&step, "step", "", "Rotation step (createSecret, setSecret, testSecret, finishSecret)")
	_ = cmd.MarkFlagRequired("secret-id")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("step")

	return cmd
}
