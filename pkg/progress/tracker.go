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

// Package progress turns raw byte counters into a bounded stream of
// display events, so a continuous download never overwhelms the remote
// service's edit-rate limits.
package progress

import (
	"sync"
	"time"
)

// Phase identifies which direction a transfer is moving
type Phase string

const (
	PhaseDownload Phase = "download"
	PhaseUpload   Phase = "upload"
)

// Throttle tuning: emit on every 5% bucket or at least every 3 seconds,
// and smooth speed over the last 10 samples.
const (
	percentBucket     = 5
	minUpdateInterval = 3 * time.Second
	maxSpeedSamples   = 10
)

// 🎫 Event is one throttled display update
type Event struct {
	ID      int64   // Transfer identifier the event belongs to
	Phase   Phase   // download or upload
	Percent int     // Completed percentage, 0–100
	Current int64   // Bytes moved so far
	Total   int64   // Total bytes expected
	Speed   float64 // Smoothed bytes/sec, 0 when unknown
	ETA     string  // Human-readable estimate, "calculating..." when unknown
}

// 🧾 state is the per-transfer bookkeeping, discarded when the transfer ends
type state struct {
	phase        Phase
	current      int64
	total        int64
	startedAt    time.Time
	lastEmit     time.Time
	lastBucket   int
	emitted      bool
	finalSent    bool
	speedSamples []float64
}

// 🎛️ Tracker owns the progress state table. One instance serves all
// in-flight transfers; entries are created by Start and dropped by Finish.
type Tracker struct {
	mu     sync.Mutex
	states map[int64]*state

	now func() time.Time // injectable for tests
}

// 🏭 NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[int64]*state),
		now:    time.Now,
	}
}

// Start begins tracking a transfer. Calling it again for the same id
// resets the state (a transfer that moves from download to upload).
func (t *Tracker) Start(id int64, total int64, phase Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.states[id] = &state{
		phase:      phase,
		total:      total,
		startedAt:  t.now(),
		lastBucket: -1,
	}
}

// Update feeds one raw byte-counter callback. It returns an Event and
// true only when the update passes the throttle: the first update, the
// final one, a 5%-bucket change, or 3s elapsed since the last emission.
func (t *Tracker) Update(id int64, current, total int64) (Event, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.states[id]
	if !ok {
		s = &state{total: total, startedAt: t.now(), lastBucket: -1}
		t.states[id] = s
	}
	s.current = current
	if total > 0 {
		s.total = total
	}

	now := t.now()
	percent := 0
	if s.total > 0 {
		percent = int(float64(current) / float64(s.total) * 100)
	}
	bucket := percent / percentBucket * percentBucket

	first := current == 0 && !s.emitted
	final := s.total > 0 && current >= s.total && !s.finalSent
	bucketChanged := bucket != s.lastBucket
	stale := s.emitted && now.Sub(s.lastEmit) >= minUpdateInterval

	if s.finalSent || (!first && !final && !bucketChanged && !stale) {
		return Event{}, false
	}

	s.emitted = true
	s.finalSent = s.total > 0 && current >= s.total
	s.lastEmit = now
	s.lastBucket = bucket

	speed := s.sampleSpeed(now)
	return Event{
		ID:      id,
		Phase:   s.phase,
		Percent: percent,
		Current: current,
		Total:   s.total,
		Speed:   speed,
		ETA:     FormatETA(s.total-current, speed),
	}, true
}

// sampleSpeed records the average-since-start speed and returns the mean
// of the most recent samples. Caller holds the lock.
func (s *state) sampleSpeed(now time.Time) float64 {
	elapsed := now.Sub(s.startedAt).Seconds()
	if elapsed <= 0 || s.current <= 0 {
		return 0
	}

	s.speedSamples = append(s.speedSamples, float64(s.current)/elapsed)
	if len(s.speedSamples) > maxSpeedSamples {
		s.speedSamples = s.speedSamples[len(s.speedSamples)-maxSpeedSamples:]
	}

	var sum float64
	for _, sample := range s.speedSamples {
		sum += sample
	}
	return sum / float64(len(s.speedSamples))
}

// Finish discards the transfer's state
func (t *Tracker) Finish(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, id)
}

// InFlight returns how many transfers are currently tracked
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.states)
}
