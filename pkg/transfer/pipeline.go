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
	"io"
	"time"

	"github.com/gurr-i/tgsaver/pkg/perf"
	"github.com/gurr-i/tgsaver/pkg/progress"
	"github.com/gurr-i/tgsaver/pkg/rate"
	"github.com/gurr-i/tgsaver/pkg/remote"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// MaxItemSize is the largest media payload the pipeline will stage and
// deliver.
const MaxItemSize = 2 << 30 // 2 GiB

// 🎛️ PipelineOptions configures a Pipeline
type PipelineOptions struct {
	Client  remote.Client
	Staging StagingStore
	Limiter *rate.Limiter
	Tracker *progress.Tracker
	Metrics *perf.Metrics
	Policy  perf.RetryPolicy

	// Report receives throttled progress events. Optional.
	Report func(progress.Event)

	// Cancelled reports whether the requester's batch has been cancelled.
	// Optional; a nil check never cancels.
	Cancelled func(requesterID int64) bool

	// MaxItemSize overrides the default size ceiling. Zero means MaxItemSize.
	MaxItemSize int64
}

// ⚙️ Pipeline moves single items through fetch, validate, transfer and
// cleanup
type Pipeline struct {
	client      remote.Client
	staging     StagingStore
	limiter     *rate.Limiter
	tracker     *progress.Tracker
	metrics     *perf.Metrics
	policy      perf.RetryPolicy
	report      func(progress.Event)
	cancelled   func(int64) bool
	maxItemSize int64
}

// 🏭 NewPipeline creates a Pipeline, validating required collaborators
func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	if opts.Client == nil {
		return nil, errors.New("client is required")
	}
	if opts.Staging == nil {
		return nil, errors.New("staging store is required")
	}
	if opts.Limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	if opts.Tracker == nil {
		opts.Tracker = progress.NewTracker()
	}
	if opts.Metrics == nil {
		opts.Metrics = perf.NewMetrics()
	}
	if opts.Policy == (perf.RetryPolicy{}) {
		opts.Policy = perf.DefaultRetryPolicy()
	}
	if opts.MaxItemSize <= 0 {
		opts.MaxItemSize = MaxItemSize
	}
	return &Pipeline{
		client:      opts.Client,
		staging:     opts.Staging,
		limiter:     opts.Limiter,
		tracker:     opts.Tracker,
		metrics:     opts.Metrics,
		policy:      opts.Policy,
		report:      opts.Report,
		cancelled:   opts.Cancelled,
		maxItemSize: opts.MaxItemSize,
	}, nil
}

// Execute runs one task through the pipeline. Every task gets exactly one
// Outcome unless the context ended, in which case the error is non-nil and
// the outcome must be ignored. A cancelled batch yields a Skipped outcome
// with Cancelled() true; nothing escapes as a raised failure.
func (p *Pipeline) Execute(ctx context.Context, task Task) (Outcome, error) {
	logger := zerolog.Ctx(ctx)

	if err := ctx.Err(); err != nil {
		return Outcome{}, errors.Errorf("before fetch: %w", err)
	}
	if p.cancelled != nil && p.cancelled(task.RequesterID) {
		return p.cancelledOutcome(task), nil
	}

	// Admission. A denied request fails right away rather than queueing,
	// so a saturated requester sees the denial instead of silent latency.
	if !p.limiter.Allow(task.RequesterID) {
		logger.Warn().
			Int64("requester_id", task.RequesterID).
			Int64("item_id", task.ItemID).
			Msg("rate limit exceeded")
		p.metrics.AddFailure()
		return Outcome{
			ItemID:  task.ItemID,
			Kind:    Failed,
			Failure: FailureRateLimited,
			Detail:  "too many requests in window",
		}, nil
	}

	item, outcome, err := p.fetch(ctx, task)
	if err != nil {
		return Outcome{}, err
	}
	if item == nil {
		return outcome, nil
	}

	if item.Category == remote.CategoryText {
		outcome, err = p.deliverText(ctx, task, item)
		outcome.Category = item.Category.String()
		return outcome, err
	}
	defer func() {
		if item.Body != nil {
			item.Body.Close()
		}
	}()

	if bad, reason := p.validate(item); bad {
		logger.Warn().
			Int64("item_id", task.ItemID).
			Str("reason", reason).
			Msg("item failed validation")
		p.metrics.AddFailure()
		return Outcome{
			ItemID:   task.ItemID,
			Kind:     Failed,
			Category: item.Category.String(),
			Failure:  FailureValidationFailed,
			Detail:   reason,
		}, nil
	}

	outcome, err = p.deliverMedia(ctx, task, item)
	outcome.Category = item.Category.String()
	return outcome, err
}

// fetch retrieves the item with retries. A nil item with a nil error means
// the returned outcome is final.
func (p *Pipeline) fetch(ctx context.Context, task Task) (*remote.Item, Outcome, error) {
	logger := zerolog.Ctx(ctx)

	var lastErr error
	for attempt := 0; attempt < perf.MaxRetries; attempt++ {
		item, err := p.client.FetchItem(ctx, task.Source, task.ItemID, task.Access, nil)
		if err == nil {
			return item, Outcome{}, nil
		}
		if errors.Is(err, remote.ErrNotFound) {
			return nil, Outcome{
				ItemID: task.ItemID,
				Kind:   Skipped,
				Detail: "item does not exist",
			}, nil
		}
		if errors.Is(err, remote.ErrAccessDenied) {
			p.metrics.AddFailure()
			return nil, Outcome{
				ItemID:  task.ItemID,
				Kind:    Failed,
				Failure: FailureAccessDenied,
				Detail:  err.Error(),
			}, nil
		}

		lastErr = err
		if attempt < perf.MaxRetries-1 {
			p.metrics.AddRetry()
			delay := p.policy.Delay(attempt)
			logger.Warn().
				Int64("item_id", task.ItemID).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Err(err).
				Msg("fetch failed, retrying")
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, Outcome{}, errors.Errorf("waiting to retry fetch: %w", err)
			}
		}
	}

	p.metrics.AddFailure()
	return nil, Outcome{
		ItemID:  task.ItemID,
		Kind:    Failed,
		Failure: FailureNotFound,
		Detail:  "fetch failed: " + lastErr.Error(),
	}, nil
}

// cancelledOutcome resolves a cancellation checkpoint. The item consumed
// no retry attempt.
func (p *Pipeline) cancelledOutcome(task Task) Outcome {
	return Outcome{
		ItemID: task.ItemID,
		Kind:   Skipped,
		Detail: detailCancelled,
	}
}

func (p *Pipeline) validate(item *remote.Item) (bool, string) {
	if item.Category == remote.CategoryUnknown {
		return true, "unsupported content category"
	}
	if item.Size > p.maxItemSize {
		return true, "item exceeds size limit"
	}
	return false, ""
}

// deliverText sends a text item directly. Text never touches staging.
func (p *Pipeline) deliverText(ctx context.Context, task Task, item *remote.Item) (Outcome, error) {
	send := func(ctx context.Context) error {
		return p.client.SendText(ctx, task.DestinationID, item.Text)
	}
	return p.deliverWithRetries(ctx, task, send)
}

// deliverMedia stages the payload, sends it by category, and always
// removes the staged file exactly once.
func (p *Pipeline) deliverMedia(ctx context.Context, task Task, item *remote.Item) (Outcome, error) {
	logger := zerolog.Ctx(ctx)

	p.tracker.Start(task.ItemID, item.Size, progress.PhaseDownload)
	started := time.Now()
	reader := &trackedReader{
		r: item.Body,
		tick: func(current int64) {
			p.emit(task.ItemID, current, item.Size)
		},
	}
	path, err := p.staging.Write(reader, item.Name)
	p.tracker.Finish(task.ItemID)
	if err != nil {
		p.metrics.AddFailure()
		return Outcome{
			ItemID:  task.ItemID,
			Kind:    Failed,
			Failure: FailureTransferError,
			Detail:  "staging item: " + err.Error(),
		}, nil
	}
	p.metrics.AddDownload(reader.n, time.Since(started))
	defer func() {
		if err := p.staging.Remove(path); err != nil {
			logger.Warn().Str("path", path).Err(err).Msg("removing staged file")
		}
	}()

	if p.cancelled != nil && p.cancelled(task.RequesterID) {
		return p.cancelledOutcome(task), nil
	}

	total := item.Size
	if reader.n > 0 {
		total = reader.n
	}
	p.tracker.Start(task.ItemID, total, progress.PhaseUpload)
	defer p.tracker.Finish(task.ItemID)
	onProgress := func(current, totalHint int64) {
		p.emit(task.ItemID, current, total)
	}

	send := p.sender(item.Category, task.DestinationID, path, item.Caption, onProgress)
	started = time.Now()
	outcome, err := p.deliverWithRetries(ctx, task, send)
	if err == nil && outcome.Kind == Succeeded {
		p.metrics.AddUpload(total, time.Since(started))
	}
	return outcome, err
}

// sender binds the per-category send endpoint for one staged file.
func (p *Pipeline) sender(category remote.ContentCategory, destination int64, path, caption string, onProgress remote.ProgressFunc) func(context.Context) error {
	return func(ctx context.Context) error {
		switch category {
		case remote.CategoryPhoto:
			return p.client.SendPhoto(ctx, destination, path, caption, onProgress)
		case remote.CategoryVideo:
			return p.client.SendVideo(ctx, destination, path, caption, onProgress)
		case remote.CategoryAudio:
			return p.client.SendAudio(ctx, destination, path, caption, onProgress)
		case remote.CategoryVoice:
			return p.client.SendVoice(ctx, destination, path, onProgress)
		case remote.CategoryDocument:
			return p.client.SendDocument(ctx, destination, path, caption, onProgress)
		case remote.CategoryAnimation:
			return p.client.SendAnimation(ctx, destination, path, caption, onProgress)
		case remote.CategoryVideoNote:
			return p.client.SendVideoNote(ctx, destination, path, onProgress)
		case remote.CategorySticker:
			return p.client.SendSticker(ctx, destination, path, onProgress)
		default:
			return errors.Errorf("no send endpoint for category %s", category)
		}
	}
}

// deliverWithRetries drives one send function through the retry policy.
func (p *Pipeline) deliverWithRetries(ctx context.Context, task Task, send func(context.Context) error) (Outcome, error) {
	logger := zerolog.Ctx(ctx)

	var lastErr error
	for attempt := 0; attempt < perf.MaxRetries; attempt++ {
		err := send(ctx)
		if err == nil {
			return Outcome{ItemID: task.ItemID, Kind: Succeeded}, nil
		}

		lastErr = err
		if attempt < perf.MaxRetries-1 {
			p.metrics.AddRetry()
			delay := p.policy.Delay(attempt)
			logger.Warn().
				Int64("item_id", task.ItemID).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Err(err).
				Msg("send failed, retrying")
			if err := sleepCtx(ctx, delay); err != nil {
				return Outcome{}, errors.Errorf("waiting to retry send: %w", err)
			}
		}
	}

	p.metrics.AddFailure()
	return Outcome{
		ItemID:  task.ItemID,
		Kind:    Failed,
		Failure: FailureTransferError,
		Detail:  "send failed: " + lastErr.Error(),
	}, nil
}

// emit pushes one byte counter through the throttle and forwards the
// event when one is due.
func (p *Pipeline) emit(itemID, current, total int64) {
	event, ok := p.tracker.Update(itemID, current, total)
	if ok && p.report != nil {
		p.report(event)
	}
}

// trackedReader counts bytes as they stream through and reports each
// advance.
type trackedReader struct {
	r    io.Reader
	n    int64
	tick func(current int64)
}

func (tr *trackedReader) Read(b []byte) (int, error) {
	n, err := tr.r.Read(b)
	if n > 0 {
		tr.n += int64(n)
		if tr.tick != nil {
			tr.tick(tr.n)
		}
	}
	return n, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
