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

// Package rate implements per-requester request admission over a sliding
// fixed window. Denial is expressed purely as a false return; callers are
// expected to slow down rather than retry.
package rate

import (
	"sync"
	"time"
)

// Defaults matching the remote service's documented request quota
const (
	DefaultWindow   = 60 * time.Second
	DefaultCapacity = 20
)

// 🪟 window tracks one requester's request count for the current period
type window struct {
	count   int
	startAt time.Time
}

// 🚦 Limiter gates requests per requester. All state lives in one map
// guarded by one lock; windows are created lazily and reset in place.
type Limiter struct {
	mu       sync.Mutex
	window   time.Duration
	capacity int
	windows  map[int64]*window

	now func() time.Time // injectable for tests
}

// 🏭 NewLimiter creates a limiter with the given window length and
// per-requester capacity
func NewLimiter(windowLen time.Duration, capacity int) *Limiter {
	return &Limiter{
		window:   windowLen,
		capacity: capacity,
		windows:  make(map[int64]*window),
		now:      time.Now,
	}
}

// Allow reports whether the requester may issue one more request. A fresh
// or elapsed window restarts at now with count zero; at capacity the call
// returns false without mutation.
func (l *Limiter) Allow(requesterID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[requesterID]
	if !ok || now.Sub(w.startAt) >= l.window {
		w = &window{startAt: now}
		l.windows[requesterID] = w
	}

	if w.count >= l.capacity {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests the requester has left in the
// current window, without consuming one
func (l *Limiter) Remaining(requesterID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[requesterID]
	if !ok || l.now().Sub(w.startAt) >= l.window {
		return l.capacity
	}
	if w.count >= l.capacity {
		return 0
	}
	return l.capacity - w.count
}
