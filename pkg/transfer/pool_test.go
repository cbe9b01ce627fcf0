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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gurr-i/tgsaver/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 🧪 TestPoolCapsConcurrency tests that no more than the slot count runs
// at once
func TestPoolCapsConcurrency(t *testing.T) {
	pool := transfer.NewPool(3)

	var running, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.AcquireAndRun(context.Background(), func() error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(3))
	assert.Equal(t, int64(0), pool.Stats().InUse)
}

// 🧪 TestPoolHonorsContext tests that an expired context skips the work
func TestPoolHonorsContext(t *testing.T) {
	pool := transfer.NewPool(1)

	release := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		_ = pool.AcquireAndRun(context.Background(), func() error {
			close(acquired)
			<-release
			return nil
		})
	}()
	<-acquired

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	ran := false
	err := pool.AcquireAndRun(ctx, func() error {
		ran = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, ran)
	close(release)
}

// 🧪 TestPoolDefaultSlots tests the fallback slot count
func TestPoolDefaultSlots(t *testing.T) {
	pool := transfer.NewPool(0)
	assert.Equal(t, int64(transfer.DefaultSlots), pool.Stats().Slots)
}
