package commands

import (
	"github.com/gurr-i/tgsaver/pkg/health"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// NewServeCmd creates the status server command
func NewServeCmd(factory OptsFactory) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve liveness and stats endpoints",
		Long: `Serve runs the HTTP status surface until interrupted. /health
answers liveness probes and /stats reports transfer metrics, slot usage,
staging disk usage and failure counts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "serve").Logger().WithContext(ctx)

			o, err := factory(ctx)
			if err != nil {
				return err
			}
			if port == 0 {
				port = o.Config.Health.Port
			}

			srv, err := health.NewServer(health.ServerOptions{
				Port:    port,
				Metrics: o.Metrics,
				Pool:    o.Pool,
				Staging: o.Staging,
				Errors:  o.Errors,
			})
			if err != nil {
				return errors.Errorf("creating health server: %w", err)
			}
			if err := srv.Start(ctx); err != nil {
				return errors.Errorf("serving: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (defaults to health.port from config)")

	return cmd
}
