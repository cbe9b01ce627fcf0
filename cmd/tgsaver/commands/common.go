package commands

import (
	"context"

	"github.com/gurr-i/tgsaver/cmd/tgsaver/opts"
	"github.com/gurr-i/tgsaver/pkg/batch"
	"github.com/gurr-i/tgsaver/pkg/frontend"
	"github.com/gurr-i/tgsaver/pkg/perf"
	"github.com/gurr-i/tgsaver/pkg/remote"
	"github.com/gurr-i/tgsaver/pkg/remote/httpapi"
	"github.com/gurr-i/tgsaver/pkg/state"
	"github.com/gurr-i/tgsaver/pkg/transfer"
	"gitlab.com/tozd/go/errors"
)

// OptsFactory builds the shared options after flags are parsed
type OptsFactory func(ctx context.Context) (*opts.RootOpts, error)

// newClient authenticates against the configured remote service
func newClient(ctx context.Context, o *opts.RootOpts) (remote.Client, error) {
	if err := o.Config.ValidateCredentials(); err != nil {
		return nil, errors.Errorf("checking credentials: %w", err)
	}

	token := o.Config.Client.Token
	if token == "" {
		token = o.Config.Client.PrivateToken
	}
	if _, err := httpapi.New(ctx, httpapi.Options{
		BaseURL: o.Config.Client.BaseURL,
		Token:   token,
	}); err != nil {
		return nil, errors.Errorf("creating http client: %w", err)
	}

	client, err := remote.GetClient(o.Config.Client.Name)
	if err != nil {
		return nil, errors.Errorf("resolving client: %w", err)
	}
	return client, nil
}

// newPipeline assembles the item pipeline from the shared options
func newPipeline(ctx context.Context, o *opts.RootOpts, client remote.Client) (*transfer.Pipeline, error) {
	policy := perf.DefaultRetryPolicy()
	policy.Base = o.Config.Transfer.RetryBase
	policy.Max = o.Config.Transfer.RetryMax

	pipeline, err := transfer.NewPipeline(transfer.PipelineOptions{
		Client:      client,
		Staging:     o.Staging,
		Limiter:     o.Limiter,
		Tracker:     o.Tracker,
		Metrics:     o.Metrics,
		Policy:      policy,
		Report:      frontend.RenderEvent,
		MaxItemSize: o.Config.Transfer.MaxItemSize,
		Cancelled: func(requesterID int64) bool {
			job, ok := o.Controller.Snapshot(requesterID)
			return ok && job.State == batch.StateCancelled
		},
	})
	if err != nil {
		return nil, errors.Errorf("creating pipeline: %w", err)
	}
	return pipeline, nil
}

// newSnapshotter connects the optional Redis snapshot store
func newSnapshotter(ctx context.Context, o *opts.RootOpts) (*state.Store, error) {
	if !o.Config.Redis.Enabled {
		return nil, nil
	}
	store, err := state.Connect(ctx, o.Config.Redis.Addr, o.Config.Redis.Password, o.Config.Redis.DB)
	if err != nil {
		return nil, errors.Errorf("connecting snapshot store: %w", err)
	}
	return store, nil
}
