package commands

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// NewSweepCmd creates the staging cleanup command
func NewSweepCmd(factory OptsFactory) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove stale files from the staging area",
		Long: `Sweep deletes staged files older than the cutoff. Staged files are
normally removed as soon as their item finishes; sweep cleans up after
crashes and kills.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "sweep").Logger().WithContext(ctx)

			o, err := factory(ctx)
			if err != nil {
				return err
			}
			if maxAge == 0 {
				maxAge = o.Config.Staging.SweepMaxAge
			}

			removed, err := o.Staging.SweepOlderThan(ctx, maxAge)
			if err != nil {
				return errors.Errorf("sweeping staging area: %w", err)
			}
			pterm.Success.Printfln("removed %d stale staged files", removed)
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "age cutoff (defaults to staging.sweep_max_age from config)")

	return cmd
}
