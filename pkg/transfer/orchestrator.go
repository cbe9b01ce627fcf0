// Copyright 2025 gurr-i
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transfer

import (
	"context"
	"time"

	"github.com/gurr-i/tgsaver/pkg/batch"
	"github.com/gurr-i/tgsaver/pkg/remote"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	// defaultItemDelay spaces consecutive items so a long batch does not
	// hammer the remote service.
	defaultItemDelay = 300 * time.Millisecond
	// defaultPausePoll is how often a paused batch re-checks its state.
	defaultPausePoll = time.Second
)

// Snapshotter persists batch progress externally. Saves are best-effort;
// a failing snapshot never fails the batch.
type Snapshotter interface {
	Save(ctx context.Context, job batch.Job) error
	Delete(ctx context.Context, requesterID int64) error
}

// ErrorRecorder collects failure occurrences for later inspection.
type ErrorRecorder interface {
	Record(kind, detail string)
}

// 📋 Request describes one batch of consecutive items to transfer
type Request struct {
	Source        string
	Access        remote.AccessType
	StartItemID   int64
	Count         int
	DestinationID int64
	RequesterID   int64
}

// 🧮 Summary is the terminal report for one batch run
type Summary struct {
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Outcomes   []Outcome     `json:"outcomes"`
	Elapsed    time.Duration `json:"elapsed"`
	FinalState batch.State   `json:"final_state"`
}

// 🎛️ OrchestratorOptions configures an Orchestrator
type OrchestratorOptions struct {
	Controller *batch.Controller
	Pipeline   *Pipeline
	Pool       *Pool

	// Snapshot persists progress after each item. Optional.
	Snapshot Snapshotter
	// Errors collects failure kinds. Optional.
	Errors ErrorRecorder
	// OnOutcome observes each item outcome as it lands. Optional.
	OnOutcome func(Outcome, batch.Job)

	// ItemDelay overrides the inter-item spacing. Zero means the default.
	ItemDelay time.Duration
	// PausePoll overrides how often a paused batch re-checks. Zero means
	// the default.
	PausePoll time.Duration
}

// 🎭 Orchestrator runs whole batches through the pipeline, one item at a
// time in ascending id order
type Orchestrator struct {
	controller *batch.Controller
	pipeline   *Pipeline
	pool       *Pool
	snapshot   Snapshotter
	errs       ErrorRecorder
	onOutcome  func(Outcome, batch.Job)
	itemDelay  time.Duration
	pausePoll  time.Duration
}

// 🏭 NewOrchestrator creates an Orchestrator, validating required
// collaborators
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.Controller == nil {
		return nil, errors.New("batch controller is required")
	}
	if opts.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if opts.Pool == nil {
		opts.Pool = NewPool(DefaultSlots)
	}
	if opts.ItemDelay <= 0 {
		opts.ItemDelay = defaultItemDelay
	}
	if opts.PausePoll <= 0 {
		opts.PausePoll = defaultPausePoll
	}
	return &Orchestrator{
		controller: opts.Controller,
		pipeline:   opts.Pipeline,
		pool:       opts.Pool,
		snapshot:   opts.Snapshot,
		errs:       opts.Errors,
		onOutcome:  opts.OnOutcome,
		itemDelay:  opts.ItemDelay,
		pausePoll:  opts.PausePoll,
	}, nil
}

// Run executes one batch request to completion, pause, cancellation or
// context end. One batch per requester at a time.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Summary, error) {
	logger := zerolog.Ctx(ctx)

	if req.Count < 1 || req.Count > batch.MaxItems {
		return Summary{}, errors.Errorf("batch size must be between 1 and %d, got %d", batch.MaxItems, req.Count)
	}
	if !o.controller.Start(req.RequesterID, req.Count, req.StartItemID, req.Source, req.Access, req.DestinationID) {
		return Summary{}, errors.Errorf("requester %d already has an active batch", req.RequesterID)
	}

	logger.Info().
		Int64("requester_id", req.RequesterID).
		Str("source", req.Source).
		Int64("start_item_id", req.StartItemID).
		Int("count", req.Count).
		Msg("batch started")

	started := time.Now()
	summary := Summary{Outcomes: make([]Outcome, 0, req.Count)}

	for i := 0; i < req.Count; i++ {
		itemID := req.StartItemID + int64(i)

		proceed, err := o.awaitRunnable(ctx, req.RequesterID)
		if err != nil {
			return o.finish(ctx, req, summary, started), errors.Errorf("batch interrupted: %w", err)
		}
		if !proceed {
			break
		}

		var outcome Outcome
		runErr := o.pool.AcquireAndRun(ctx, func() error {
			var execErr error
			outcome, execErr = o.pipeline.Execute(ctx, Task{
				Source:        req.Source,
				ItemID:        itemID,
				Access:        req.Access,
				DestinationID: req.DestinationID,
				RequesterID:   req.RequesterID,
			})
			return execErr
		})
		if runErr != nil {
			return o.finish(ctx, req, summary, started), errors.Errorf("batch interrupted: %w", runErr)
		}
		if outcome.Cancelled() {
			break
		}

		summary.Outcomes = append(summary.Outcomes, outcome)
		switch outcome.Kind {
		case Succeeded:
			summary.Succeeded++
		case Skipped:
			summary.Skipped++
		case Failed:
			summary.Failed++
			if o.errs != nil {
				o.errs.Record(string(outcome.Failure), outcome.Detail)
			}
		}

		job, _ := o.controller.RecordProgress(req.RequesterID, itemID)
		if o.onOutcome != nil {
			o.onOutcome(outcome, job)
		}
		o.persist(ctx, job)

		if job.State.Terminal() {
			break
		}
		if i < req.Count-1 {
			if err := sleepCtx(ctx, o.itemDelay); err != nil {
				return o.finish(ctx, req, summary, started), errors.Errorf("batch interrupted: %w", err)
			}
		}
	}

	return o.finish(ctx, req, summary, started), nil
}

// awaitRunnable blocks while the batch is paused. Returns false when the
// batch reached a terminal state.
func (o *Orchestrator) awaitRunnable(ctx context.Context, requesterID int64) (bool, error) {
	for {
		job, ok := o.controller.Snapshot(requesterID)
		if !ok {
			return false, nil
		}
		switch job.State {
		case batch.StateRunning:
			return true, nil
		case batch.StatePaused:
			if err := sleepCtx(ctx, o.pausePoll); err != nil {
				return false, errors.Errorf("waiting while paused: %w", err)
			}
		default:
			return false, nil
		}
	}
}

func (o *Orchestrator) persist(ctx context.Context, job batch.Job) {
	if o.snapshot == nil {
		return
	}
	if err := o.snapshot.Save(ctx, job); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("saving batch snapshot")
	}
}

// finish closes out the batch: reads the final state, drops terminal
// bookkeeping and removes the external snapshot.
func (o *Orchestrator) finish(ctx context.Context, req Request, summary Summary, started time.Time) Summary {
	logger := zerolog.Ctx(ctx)

	summary.Elapsed = time.Since(started)
	if job, ok := o.controller.Snapshot(req.RequesterID); ok {
		summary.FinalState = job.State
	} else {
		summary.FinalState = batch.StateCompleted
	}
	o.controller.DiscardIfTerminal(req.RequesterID)

	if o.snapshot != nil {
		if err := o.snapshot.Delete(ctx, req.RequesterID); err != nil {
			logger.Debug().Err(err).Msg("deleting batch snapshot")
		}
	}

	logger.Info().
		Int64("requester_id", req.RequesterID).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Str("final_state", summary.FinalState.String()).
		Dur("elapsed", summary.Elapsed).
		Msg("batch finished")

	return summary
}
