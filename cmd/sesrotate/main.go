package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/sesrotate/cmd/sesrotate/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &commands.RootOptions{}

	rootCmd := &cobra.Command{
		Use:   "sesrotate",
		Short: "Zero-downtime rotation of SES SMTP credentials in Secrets Manager",
		Long: `sesrotate rotates an IAM access key pair and its derived SES SMTP
password stored in AWS Secrets Manager, one rotation step at a time,
without interrupting the applications consuming the secret.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "sesrotate.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewRotateCommand(opts),
		commands.NewServeCommand(opts),
		commands.NewDeriveCommand(opts),
		commands.NewCheckCommand(opts),
	)

	return rootCmd.Execute()
}
