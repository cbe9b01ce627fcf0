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

package transfer_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gurr-i/tgsaver/pkg/perf"
	"github.com/gurr-i/tgsaver/pkg/rate"
	"github.com/gurr-i/tgsaver/pkg/remote"
	"github.com/gurr-i/tgsaver/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastPolicy keeps retry waits negligible in tests.
var fastPolicy = perf.RetryPolicy{Base: time.Millisecond, Max: 5 * time.Millisecond}

// 🤡 fakeClient scripts fetch and send behavior per item
type fakeClient struct {
	mu       sync.Mutex
	fetchFn  func(itemID int64, attempt int) (*remote.Item, error)
	sendErrs []error // consumed one per send call, nil means success
	fetches  map[int64]int
	sends    []string // category names in call order
	texts    []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{fetches: map[int64]int{}}
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) FetchItem(ctx context.Context, collection string, itemID int64, access remote.AccessType, onProgress remote.ProgressFunc) (*remote.Item, error) {
	f.mu.Lock()
	attempt := f.fetches[itemID]
	f.fetches[itemID]++
	f.mu.Unlock()
	return f.fetchFn(itemID, attempt)
}

func (f *fakeClient) JoinSource(ctx context.Context, collection string, access remote.AccessType) error {
	return nil
}

func (f *fakeClient) send(category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, category)
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		return err
	}
	return nil
}

func (f *fakeClient) SendText(ctx context.Context, destination int64, text string) error {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return f.send("text")
}

func (f *fakeClient) SendPhoto(ctx context.Context, destination int64, path, caption string, onProgress remote.ProgressFunc) error {
	return f.send("photo")
}

func (f *fakeClient) SendVideo(ctx context.Context, destination int64, path, caption string, onProgress remote.ProgressFunc) error {
	return f.send("video")
}

func (f *fakeClient) SendAudio(ctx context.Context, destination int64, path, caption string, onProgress remote.ProgressFunc) error {
	return f.send("audio")
}

func (f *fakeClient) SendVoice(ctx context.Context, destination int64, path string, onProgress remote.ProgressFunc) error {
	return f.send("voice")
}

func (f *fakeClient) SendDocument(ctx context.Context, destination int64, path, caption string, onProgress remote.ProgressFunc) error {
	return f.send("document")
}

func (f *fakeClient) SendAnimation(ctx context.Context, destination int64, path, caption string, onProgress remote.ProgressFunc) error {
	return f.send("animation")
}

func (f *fakeClient) SendVideoNote(ctx context.Context, destination int64, path string, onProgress remote.ProgressFunc) error {
	return f.send("video_note")
}

func (f *fakeClient) SendSticker(ctx context.Context, destination int64, path string, onProgress remote.ProgressFunc) error {
	return f.send("sticker")
}

// 🤡 fakeStaging records writes and removals in memory
type fakeStaging struct {
	mu      sync.Mutex
	writes  int
	removes map[string]int
}

func newFakeStaging() *fakeStaging {
	return &fakeStaging{removes: map[string]int{}}
}

func (f *fakeStaging) Write(r io.Reader, name string) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	return "/staging/" + name, nil
}

func (f *fakeStaging) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes[path]++
	return nil
}

func mediaItem(id int64, category remote.ContentCategory, payload string) *remote.Item {
	return &remote.Item{
		ID:       id,
		Category: category,
		Name:     "item.bin",
		Size:     int64(len(payload)),
		Caption:  "caption",
		Body:     io.NopCloser(strings.NewReader(payload)),
	}
}

func newPipeline(t *testing.T, client *fakeClient, staging *fakeStaging, extra func(*transfer.PipelineOptions)) *transfer.Pipeline {
	t.Helper()
	opts := transfer.PipelineOptions{
		Client:  client,
		Staging: staging,
		Limiter: rate.NewLimiter(time.Minute, 100),
		Policy:  fastPolicy,
	}
	if extra != nil {
		extra(&opts)
	}
	p, err := transfer.NewPipeline(opts)
	require.NoError(t, err)
	return p
}

// 🧪 TestExecuteDeliversDocument tests the happy path end to end
func TestExecuteDeliversDocument(t *testing.T) {
	client := newFakeClient()
	client.fetchFn = func(itemID int64, attempt int) (*remote.Item, error) {
		return mediaItem(itemID, remote.CategoryDocument, "payload-bytes"), nil
	}
	staging := newFakeStaging()
	p := newPipeline(t, client, staging, nil)

	outcome, err := p.Execute(context.Background(), transfer.Task{ItemID: 7, RequesterID: 1})
	require.NoError(t, err)

	assert.Equal(t, transfer.Succeeded, outcome.Kind)
	assert.Equal(t, int64(7), outcome.ItemID)
	assert.Equal(t, "document", outcome.Category)
	assert.Equal(t, []string{"document"}, client.sends)
	assert.Equal(t, 1, staging.writes)
	assert.Equal(t, 1, staging.removes["/staging/item.bin"], "staged file removed exactly once")
}

// 🧪 TestExecuteSkipsMissingItem tests that a missing item is skipped
// without retries
func TestExecuteSkipsMissingItem(t *testing.T) {
	client := newFakeClient()
	client.fetchFn = func(itemID int64, attempt int) (*remote.Item, error) {
		return nil, remote.ErrNotFound
	}
	staging := newFakeStaging()
	p := newPipeline(t, client, staging, nil)

	outcome, err := p.Execute(context.Background(), transfer.Task{ItemID: 3, RequesterID: 1})
	require.NoError(t, err)

	assert.Equal(t, transfer.Skipped, outcome.Kind)
	assert.Equal(t, 1, client.fetches[3], "not-found must not be retried")
	assert.Zero(t, staging.writes)
}

// 🧪 TestExecuteAccessDeniedNotRetried tests that access failures fail
// fast
func TestExecuteAccessDeniedNotRetried(t *testing.T) {
	client := newFakeClient()
	client.fetchFn = func(itemID int64, attempt int) (*remote.Item, error) {
		return nil, remote.ErrAccessDenied
	}
	p := newPipeline(t, client, newFakeStaging(), nil)

	outcome, err := p.Execute(context.Background(), transfer.Task{ItemID: 3, RequesterID: 1})
	require.NoError(t, err)

	assert.Equal(t, transfer.Failed, outcome.Kind)
	assert.Equal(t, transfer.FailureAccessDenied, outcome.Failure)
	assert.Equal(t, 1, client.fetches[3])
}

// 🧪 TestExecuteRetriesTransientFetch tests recovery after transient
// fetch errors
func TestExecuteRetriesTransientFetch(t *testing.T) {
	client := newFakeClient()
	client.fetchFn = func(itemID int64, attempt int) (*remote.Item, error) {
		if attempt < 2 {
			return nil, io.ErrUnexpectedEOF
		}
		return mediaItem(itemID, remote.CategoryPhoto, "img"), nil
	}
	staging := newFakeStaging()
	p := newPipeline(t, client, staging, nil)

	outcome, err := p.Execute(context.Background(), transfer.Task{ItemID: 9, RequesterID: 1})
	require.NoError(t, err)

	assert.Equal(t, transfer.Succeeded, outcome.Kind)
	assert.Equal(t, 3, client.fetches[9])
	assert.Equal(t, []string{"photo"}, client.sends)
}

// 🧪 TestExecuteFetchExhaustsRetries tests that a fetch yielding nothing
// after the full retry budget produces a not_found outcome
func TestExecuteFetchExhaustsRetries(t *testing.T) {
	client := newFakeClient()
	client.fetchFn = func(itemID int64, attempt int) (*remote.Item, error) {
		return nil, io.ErrUnexpectedEOF
	}
	p := newPipeline(t, client, newFakeStaging(), nil)

	outcome, err := p.Execute(context.Background(), transfer.Task{ItemID: 9, RequesterID: 1})
	require.NoError(t, err)

	assert.Equal(t, transfer.Failed, outcome.Kind)
	assert.Equal(t, transfer.FailureNotFound, outcome.Failure)
	assert.Equal(t, perf.MaxRetries, client.fetches[9])
}

// 🧪 TestExecuteRateLimited tests that a saturated requester fails
// without touching the remote service
func TestExecuteRateLimited(t *testing.T) {
	client := newFakeClient()
	client.fetchFn = func(itemID int64, attempt int) (*remote.Item, error) {
		return mediaItem(itemID, remote.CategoryVideo, "vid"), nil
	}
	p := newPipeline(t, client, newFakeStaging(), func(opts *transfer.PipelineOptions) {
		opts.Limiter = rate.NewLimiter(time.Minute, 1)
	})

	first, err := p.Execute(context.Background(), transfer.Task{ItemID: 1, RequesterID: 1})
	require.NoError(t, err)
	require.Equal(t, transfer.Succeeded, first.Kind)

	second, err := p.Execute(context.Background(), transfer.Task{ItemID: 2, RequesterID: 1})
	require.NoError(t, err)
	assert.Equal(t, transfer.Failed, second.Kind)
	assert.Equal(t, transfer.FailureRateLimited, second.Failure)
	assert.Equal(t, 0, client.fetches[2], "rate-limited items never reach fetch")
}

// 🧪 TestExecuteValidation tests the size ceiling and unknown categories
func TestExecuteValidation(t *testing.T) {
	tests := []struct {
		name string
		item *remote.Item
	}{
		{
			name: "oversized",
			item: &remote.Item{
				ID:       5,
				Category: remote.CategoryVideo,
				Name:     "big.mp4",
				Size:     100,
				Body:     io.NopCloser(strings.NewReader("x")),
			},
		},
		{
			name: "unknown_category",
			item: &remote.Item{
				ID:       5,
				Category: remote.CategoryUnknown,
				Name:     "what",
				Size:     1,
				Body:     io.NopCloser(strings.NewReader("x")),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeClient()
			client.fetchFn = func(itemID int64, attempt int) (*remote.Item, error) {
				return tt.item, nil
			}
			staging := newFakeStaging()
			p := newPipeline(t, client, staging, func(opts *transfer.PipelineOptions) {
				opts.MaxItemSize = 10
			})

			outcome, err := p.Execute(context.Background(), transfer.Task{ItemID: 5, RequesterID: 1})
			require.NoError(t, err)

			assert.Equal(t, transfer.Failed, outcome.Kind)
			assert.Equal(t, transfer.FailureValidationFailed, outcome.Failure)
			assert.Zero(t, staging.writes, "invalid items never reach staging")
			assert.Empty(t, client.sends)
		})
	}
}

// 🧪 TestExecuteTextItem tests that text bypasses staging entirely
func TestExecuteTextItem(t *testing.T) {
	client := newFakeClient()
	client.fetchFn = func(itemID int64, attempt int) (*remote.Item, error) {
		return &remote.Item{ID: itemID, Category: remote.CategoryText, Text: "hello"}, nil
	}
	staging := newFakeStaging()
	p := newPipeline(t, client, staging, nil)

	outcome, err := p.Execute(context.Background(), transfer.Task{ItemID: 4, RequesterID: 1})
	require.NoError(t, err)

	assert.Equal(t, transfer.Succeeded, outcome.Kind)
	assert.Equal(t, []string{"hello"}, client.texts)
	assert.Zero(t, staging.writes)
}

// 🧪 TestExecuteSendFailureCleansStaging tests that the staged file is
// removed even when every send attempt fails
func TestExecuteSendFailureCleansStaging(t *testing.T) {
	client := newFakeClient()
	client.fetchFn = func(itemID int64, attempt int) (*remote.Item, error) {
		return mediaItem(itemID, remote.CategoryAudio, "song"), nil
	}
	client.sendErrs = []error{io.ErrClosedPipe, io.ErrClosedPipe, io.ErrClosedPipe}
	staging := newFakeStaging()
	p := newPipeline(t, client, staging, nil)

	outcome, err := p.Execute(context.Background(), transfer.Task{ItemID: 8, RequesterID: 1})
	require.NoError(t, err)

	assert.Equal(t, transfer.Failed, outcome.Kind)
	assert.Equal(t, transfer.FailureTransferError, outcome.Failure)
	assert.Len(t, client.sends, perf.MaxRetries)
	assert.Equal(t, 1, staging.removes["/staging/item.bin"], "staged file removed exactly once")
}

// 🧪 TestExecuteSendRecoversAfterRetry tests a send that succeeds on the
// second attempt
func TestExecuteSendRecoversAfterRetry(t *testing.T) {
	client := newFakeClient()
	client.fetchFn = func(itemID int64, attempt int) (*remote.Item, error) {
		return mediaItem(itemID, remote.CategorySticker, "st"), nil
	}
	client.sendErrs = []error{io.ErrClosedPipe}
	staging := newFakeStaging()
	p := newPipeline(t, client, staging, nil)

	outcome, err := p.Execute(context.Background(), transfer.Task{ItemID: 2, RequesterID: 1})
	require.NoError(t, err)

	assert.Equal(t, transfer.Succeeded, outcome.Kind)
	assert.Len(t, client.sends, 2)
	assert.Equal(t, 1, staging.removes["/staging/item.bin"])
}

// 🧪 TestExecuteCancelled tests that a cancelled batch resolves to a
// Skipped outcome before any remote call, without raising
func TestExecuteCancelled(t *testing.T) {
	client := newFakeClient()
	client.fetchFn = func(itemID int64, attempt int) (*remote.Item, error) {
		return mediaItem(itemID, remote.CategoryVideo, "vid"), nil
	}
	p := newPipeline(t, client, newFakeStaging(), func(opts *transfer.PipelineOptions) {
		opts.Cancelled = func(requesterID int64) bool { return true }
	})

	outcome, err := p.Execute(context.Background(), transfer.Task{ItemID: 1, RequesterID: 1})
	require.NoError(t, err)

	assert.Equal(t, transfer.Skipped, outcome.Kind)
	assert.Equal(t, "cancelled", outcome.Detail)
	assert.True(t, outcome.Cancelled())
	assert.Equal(t, 0, client.fetches[1])
}

// 🧪 TestExecuteCancelledMidDelivery tests that a cancellation observed
// after staging still cleans up and resolves to a Skipped outcome
func TestExecuteCancelledMidDelivery(t *testing.T) {
	var fetched bool
	client := newFakeClient()
	client.fetchFn = func(itemID int64, attempt int) (*remote.Item, error) {
		fetched = true
		return mediaItem(itemID, remote.CategoryVideo, "vid"), nil
	}
	staging := newFakeStaging()
	p := newPipeline(t, client, staging, func(opts *transfer.PipelineOptions) {
		opts.Cancelled = func(requesterID int64) bool { return fetched }
	})

	outcome, err := p.Execute(context.Background(), transfer.Task{ItemID: 6, RequesterID: 1})
	require.NoError(t, err)

	assert.True(t, outcome.Cancelled())
	assert.Empty(t, client.sends, "cancelled items are never sent")
	assert.Equal(t, 1, staging.writes)
	assert.Equal(t, 1, staging.removes["/staging/item.bin"], "staged file removed exactly once")
}

// 🧪 TestNewPipelineValidation tests required-collaborator checks
func TestNewPipelineValidation(t *testing.T) {
	_, err := transfer.NewPipeline(transfer.PipelineOptions{})
	require.Error(t, err)

	_, err = transfer.NewPipeline(transfer.PipelineOptions{Client: newFakeClient()})
	require.Error(t, err)
}
