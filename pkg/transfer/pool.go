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
	"sync/atomic"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/semaphore"
)

// DefaultSlots is the number of items that may be mid-transfer at once.
const DefaultSlots = 3

// 🎟️ Pool caps how many transfers run concurrently
type Pool struct {
	sem   *semaphore.Weighted
	slots int64
	inUse atomic.Int64
}

// 🏭 NewPool creates a Pool with the given slot count (DefaultSlots when
// non-positive)
func NewPool(slots int) *Pool {
	if slots <= 0 {
		slots = DefaultSlots
	}
	return &Pool{
		sem:   semaphore.NewWeighted(int64(slots)),
		slots: int64(slots),
	}
}

// AcquireAndRun blocks until a slot is free, runs fn, and releases the
// slot when fn returns. An expired context surfaces without running fn.
func (p *Pool) AcquireAndRun(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return errors.Errorf("acquiring transfer slot: %w", err)
	}
	p.inUse.Add(1)
	defer func() {
		p.inUse.Add(-1)
		p.sem.Release(1)
	}()
	return fn()
}

// PoolStats is a point-in-time view of slot usage.
type PoolStats struct {
	Slots int64 `json:"slots"`
	InUse int64 `json:"in_use"`
}

// Stats reports current slot usage
func (p *Pool) Stats() PoolStats {
	return PoolStats{Slots: p.slots, InUse: p.inUse.Load()}
}
