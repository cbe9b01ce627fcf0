package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gurr-i/tgsaver/cmd/tgsaver/commands"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:   "tgsaver",
		Short: "Batch content transfers between remote collections",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
		SilenceUsage: true,
	}
	addRootFlags(root)

	root.AddCommand(
		commands.NewTransferCmd(newRootOpts),
		commands.NewBatchCmd(newRootOpts),
		commands.NewServeCmd(newRootOpts),
		commands.NewSweepCmd(newRootOpts),
		commands.NewSpeedCmd(),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
