package commands

import (
	"github.com/gurr-i/tgsaver/pkg/link"
	"github.com/gurr-i/tgsaver/pkg/status"
	"github.com/gurr-i/tgsaver/pkg/transfer"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// NewTransferCmd creates the single-item transfer command
func NewTransferCmd(factory OptsFactory) *cobra.Command {
	var destination int64

	cmd := &cobra.Command{
		Use:   "transfer <link>",
		Short: "Transfer one item from a source collection",
		Long: `Transfer fetches a single item by link and delivers it to the
destination. The item is staged on disk during the move and the staged
copy is always removed afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "transfer").Logger().WithContext(ctx)

			parsed, err := link.Parse(args[0])
			if err != nil {
				return errors.Errorf("parsing link: %w", err)
			}

			o, err := factory(ctx)
			if err != nil {
				return err
			}
			client, err := newClient(ctx, o)
			if err != nil {
				return err
			}
			pipeline, err := newPipeline(ctx, o, client)
			if err != nil {
				return err
			}

			var outcome transfer.Outcome
			err = o.Pool.AcquireAndRun(ctx, func() error {
				var execErr error
				outcome, execErr = pipeline.Execute(ctx, transfer.Task{
					Source:        parsed.Collection,
					ItemID:        parsed.ItemID,
					Access:        parsed.Access,
					DestinationID: destination,
					RequesterID:   destination,
				})
				return execErr
			})
			if err != nil {
				return errors.Errorf("executing transfer: %w", err)
			}

			line := status.NewDefaultOutcomeFormatter().FormatOutcome(outcome)
			switch outcome.Kind {
			case transfer.Succeeded:
				pterm.Success.Println(line)
			case transfer.Skipped:
				pterm.Warning.Println(line)
			case transfer.Failed:
				pterm.Error.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&destination, "dest", 0, "destination collection id")
	_ = cmd.MarkFlagRequired("dest")

	return cmd
}
