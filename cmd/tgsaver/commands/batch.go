package commands

import (
	"bufio"
	"os"
	"strconv"

	"github.com/gurr-i/tgsaver/pkg/batch"
	"github.com/gurr-i/tgsaver/pkg/errtrack"
	"github.com/gurr-i/tgsaver/pkg/frontend"
	"github.com/gurr-i/tgsaver/pkg/link"
	"github.com/gurr-i/tgsaver/pkg/log"
	"github.com/gurr-i/tgsaver/pkg/transfer"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// NewBatchCmd creates the batch transfer command
func NewBatchCmd(factory OptsFactory) *cobra.Command {
	var destination int64

	cmd := &cobra.Command{
		Use:   "batch <link> <count>",
		Short: "Transfer a range of consecutive items",
		Long: `Batch transfers up to 300 consecutive items starting at the linked
item. While the batch runs, type pause, resume, cancel or status on
stdin to control it. Failed and missing items are reported but do not
abort the batch.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "batch").Logger().WithContext(ctx)

			parsed, err := link.Parse(args[0])
			if err != nil {
				return errors.Errorf("parsing link: %w", err)
			}
			count, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Errorf("parsing count: %w", err)
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
			snapshotter, err := newSnapshotter(ctx, o)
			if err != nil {
				return err
			}

			logger := log.New(os.Stdout, zerolog.InfoLevel)
			logger.Header("transferring items")

			orchOpts := transfer.OrchestratorOptions{
				Controller: o.Controller,
				Pipeline:   pipeline,
				Pool:       o.Pool,
				Errors:     o.Errors,
				ItemDelay:  o.Config.Transfer.ItemDelay,
				OnOutcome: func(outcome transfer.Outcome, job batch.Job) {
					logger.LogItemOperation(ctx, log.ItemOperation{
						ItemID:    outcome.ItemID,
						Category:  outcome.Category,
						Status:    outcome.Kind.String(),
						Succeeded: outcome.Kind == transfer.Succeeded,
						Skipped:   outcome.Kind == transfer.Skipped,
						Failed:    outcome.Kind == transfer.Failed,
					})
				},
			}
			if snapshotter != nil {
				defer snapshotter.Close()
				orchOpts.Snapshot = snapshotter
			}
			orch, err := transfer.NewOrchestrator(orchOpts)
			if err != nil {
				return errors.Errorf("creating orchestrator: %w", err)
			}

			logger.StartBatchOperation(ctx, log.BatchOperation{
				Source:      parsed.Collection,
				StartItemID: parsed.ItemID,
				Count:       count,
				Destination: destination,
			})

			// Control verbs arrive on stdin while the batch runs.
			go controlLoop(o.Console, destination)

			summary, err := orch.Run(ctx, transfer.Request{
				Source:        parsed.Collection,
				Access:        parsed.Access,
				StartItemID:   parsed.ItemID,
				Count:         count,
				DestinationID: destination,
				RequesterID:   destination,
			})
			logger.EndBatchOperation(ctx)
			if err != nil {
				return errors.Errorf("running batch: %w", err)
			}

			frontend.RenderSummary(summary)
			reportSuggestions(o.Errors)
			return nil
		},
	}

	cmd.Flags().Int64Var(&destination, "dest", 0, "destination collection id")
	_ = cmd.MarkFlagRequired("dest")

	return cmd
}

func controlLoop(console *frontend.Console, requesterID int64) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		pterm.Info.Println(console.HandleCommand(scanner.Text(), requesterID))
	}
}

func reportSuggestions(tracker *errtrack.Tracker) {
	for kind, count := range tracker.Counts() {
		if hint := errtrack.Suggestion(kind); hint != "" {
			pterm.Info.Printfln("%s ×%d: %s", kind, count, hint)
		}
	}
}
