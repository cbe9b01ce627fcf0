package main

import (
	"context"
	"os"

	"github.com/gurr-i/tgsaver/cmd/tgsaver/opts"
	"github.com/gurr-i/tgsaver/pkg/batch"
	"github.com/gurr-i/tgsaver/pkg/config"
	"github.com/gurr-i/tgsaver/pkg/errtrack"
	"github.com/gurr-i/tgsaver/pkg/frontend"
	"github.com/gurr-i/tgsaver/pkg/perf"
	"github.com/gurr-i/tgsaver/pkg/progress"
	"github.com/gurr-i/tgsaver/pkg/rate"
	"github.com/gurr-i/tgsaver/pkg/staging"
	"github.com/gurr-i/tgsaver/pkg/transfer"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

var (
	// Flags
	configFile string
	debug      bool
)

// newRootOpts creates a new rootOpts with initialized dependencies
func newRootOpts(ctx context.Context) (*opts.RootOpts, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}

	if !debug {
		if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
			zerolog.SetGlobalLevel(level)
		}
	}

	store, err := staging.New(cfg.Staging.Dir)
	if err != nil {
		return nil, errors.Errorf("creating staging store: %w", err)
	}

	controller := batch.NewController()

	return &opts.RootOpts{
		Config:     cfg,
		Controller: controller,
		Limiter:    rate.NewLimiter(cfg.Rate.Window, cfg.Rate.Capacity),
		Tracker:    progress.NewTracker(),
		Metrics:    perf.NewMetrics(),
		Errors:     errtrack.NewTracker(),
		Staging:    store,
		Pool:       transfer.NewPool(cfg.Transfer.Slots),
		Console:    frontend.NewConsole(controller),
	}, nil
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

// setupLogging configures zerolog based on flags
func setupLogging() {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log
}
