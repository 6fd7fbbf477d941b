package commands

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/sesrotate/internal/awsapi"
	dserrors "github.com/systmms/sesrotate/internal/errors"
	"github.com/systmms/sesrotate/internal/logging"
	"github.com/systmms/sesrotate/internal/rotation"
	"github.com/systmms/sesrotate/internal/rotation/health"
)

// NewServeCommand creates the 'serve' command, an HTTP front end for
// orchestrators that POST rotation events instead of invoking the CLI
// per step. The listener also exposes Prometheus metrics and a liveness
// probe.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rotation requests over HTTP",
		Long: `Run an HTTP server accepting rotation events.

Endpoints:
  POST /rotate   body: {"SecretId": ..., "ClientRequestToken": ..., "Step": ...}
  GET  /metrics  Prometheus metrics
  GET  /healthz  liveness probe`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.Logger()

			cfg, err := opts.LoadConfig(logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			clients, err := awsapi.New(ctx, awsapi.Options{
				Region:                 cfg.Region,
				SecretsManagerEndpoint: cfg.SecretsManagerEndpoint,
			})
			if err != nil {
				return err
			}

			rotator := rotation.New(clients, cfg.Username, logger,
				rotation.WithMetrics(rotation.NewMetrics()))

			serverConfig := health.DefaultServerConfig()
			serverConfig.Addr = listen
			server := health.NewServer(serverConfig)
			server.Handle("/rotate", rotateHandler(rotator, logger))

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			logger.Info("Listening on %s, rotating keys for user %s", listen, rotator.Username())

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("Shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				return server.Stop(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8080", "Listen address")

	return cmd
}

// rotateHandler decodes a rotation event and runs it. Rotation mistakes
// the orchestrator can correct (bad step, bad token) come back as 400s,
// transient upstream failures as 503s, everything else as 500s.
func rotateHandler(rotator *rotation.Rotator, logger *logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var event rotation.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			http.Error(w, "invalid rotation event: "+err.Error(), http.StatusBadRequest)
			return
		}
		if event.SecretID == "" || event.ClientRequestToken == "" {
			http.Error(w, "SecretId and ClientRequestToken are required", http.StatusBadRequest)
			return
		}

		if err := rotator.Execute(r.Context(), event); err != nil {
			logger.Error("Rotation step %s failed for %s: %v", event.Step, event.SecretID, err)
			http.Error(w, err.Error(), statusForRotationError(err))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}

func statusForRotationError(err error) int {
	switch err.(type) {
	case rotation.NotConfiguredError,
		rotation.UnknownVersionError,
		rotation.InvalidStageError,
		rotation.UnknownStepError:
		return http.StatusBadRequest
	}
	if dserrors.IsRetryable(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
