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

// Package errtrack accumulates failure occurrences by kind so operators
// can see what a long batch run keeps tripping over.
package errtrack

import (
	"sync"
	"time"
)

// maxRecent bounds the in-memory occurrence log.
const maxRecent = 100

// 📝 Occurrence is one recorded failure
type Occurrence struct {
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

// 📒 Tracker counts failures by kind and keeps the most recent ones
type Tracker struct {
	mu     sync.Mutex
	counts map[string]int
	recent []Occurrence
	now    func() time.Time
}

// 🏭 NewTracker creates an empty Tracker
func NewTracker() *Tracker {
	return &Tracker{
		counts: make(map[string]int),
		now:    time.Now,
	}
}

// Record notes one failure occurrence
func (t *Tracker) Record(kind, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counts[kind]++
	t.recent = append(t.recent, Occurrence{Kind: kind, Detail: detail, At: t.now()})
	if len(t.recent) > maxRecent {
		t.recent = t.recent[len(t.recent)-maxRecent:]
	}
}

// Counts returns a copy of the per-kind totals
func (t *Tracker) Counts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// Recent returns the most recent occurrences, oldest first
func (t *Tracker) Recent() []Occurrence {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Occurrence(nil), t.recent...)
}

// Total returns how many failures have been recorded
func (t *Tracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0
	for _, v := range t.counts {
		total += v
	}
	return total
}

// Suggestion maps a failure kind to a short operator hint. Unknown kinds
// get an empty string.
func Suggestion(kind string) string {
	switch kind {
	case "access_denied":
		return "the source needs an elevated-privilege session; check credentials"
	case "not_found":
		return "the item id range contains gaps; deleted items are skipped"
	case "rate_limited":
		return "too many requests in the window; slow down or wait for the window to reset"
	case "validation_failed":
		return "the item is oversized or of an unsupported kind"
	case "transfer_error":
		return "the remote service kept failing; check connectivity and retry later"
	default:
		return ""
	}
}
