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

// Package batch owns the lifecycle state machine for batch jobs. The
// controller is the single authority that operator pause/resume/cancel
// commands and the orchestration loop consult.
package batch

import (
	"sync"
	"time"

	"github.com/gurr-i/tgsaver/pkg/remote"
)

// MaxItems bounds how many items a single batch may cover
const MaxItems = 300

// 📊 State represents the lifecycle state of a batch job
type State int

const (
	StateRunning State = iota
	StatePaused
	StateCancelled
	StateCompleted
)

// String returns a string representation of State
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCancelled:
		return "cancelled"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition out of this state is permitted
func (s State) Terminal() bool {
	return s == StateCancelled || s == StateCompleted
}

// 📦 Job tracks one requester's batch. At most one non-terminal Job
// exists per requester at any time.
type Job struct {
	RequesterID     int64             // Owner of the batch
	Total           int               // Items requested (1–MaxItems)
	Current         int               // Attempts processed so far
	StartItemID     int64             // First item identifier in the range
	LastProcessedID int64             // Identifier handed to RecordProgress last
	Source          string            // Source collection identifier
	Access          remote.AccessType // public or private
	DestinationID   int64             // Destination collection identifier
	State           State             // Lifecycle state
	StartedAt       time.Time         // Creation time
	PausedAt        *time.Time        // Set while paused, cleared on resume
}

// Percent returns completed progress as a percentage
func (j Job) Percent() float64 {
	if j.Total == 0 {
		return 0
	}
	return float64(j.Current) / float64(j.Total) * 100
}

// 🎮 Controller manages the batch job set under a single lock. Operations
// are O(1) in-memory bookkeeping; the lock is never held across I/O.
type Controller struct {
	mu   sync.Mutex
	jobs map[int64]*Job
}

// 🏭 NewController creates an empty batch controller
func NewController() *Controller {
	return &Controller{
		jobs: make(map[int64]*Job),
	}
}

// Start creates a RUNNING job for the requester. It returns false without
// mutating anything if an active (running or paused) job already exists;
// a leftover terminal job is discarded first.
func (c *Controller) Start(requesterID int64, total int, startItemID int64, source string, access remote.AccessType, destinationID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.jobs[requesterID]; ok {
		if !existing.State.Terminal() {
			return false
		}
		delete(c.jobs, requesterID)
	}

	c.jobs[requesterID] = &Job{
		RequesterID:     requesterID,
		Total:           total,
		Current:         0,
		StartItemID:     startItemID,
		LastProcessedID: startItemID - 1, // incremented before the first item is processed
		Source:          source,
		Access:          access,
		DestinationID:   destinationID,
		State:           StateRunning,
		StartedAt:       time.Now(),
	}
	return true
}

// Pause transitions RUNNING→PAUSED, recording the pause time
func (c *Controller) Pause(requesterID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	job, ok := c.jobs[requesterID]
	if !ok || job.State != StateRunning {
		return false
	}
	now := time.Now()
	job.State = StatePaused
	job.PausedAt = &now
	return true
}

// Resume transitions PAUSED→RUNNING, clearing the pause time
func (c *Controller) Resume(requesterID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	job, ok := c.jobs[requesterID]
	if !ok || job.State != StatePaused {
		return false
	}
	job.State = StateRunning
	job.PausedAt = nil
	return true
}

// Cancel transitions RUNNING or PAUSED to CANCELLED
func (c *Controller) Cancel(requesterID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	job, ok := c.jobs[requesterID]
	if !ok || job.State.Terminal() {
		return false
	}
	job.State = StateCancelled
	return true
}

// RecordProgress advances the attempt counter for a RUNNING job and notes
// the last processed item id. Reaching Total completes the job. Progress
// counts attempts, not successes: skipped and failed items advance it too.
func (c *Controller) RecordProgress(requesterID int64, itemID int64) (Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	job, ok := c.jobs[requesterID]
	if !ok {
		return Job{}, false
	}
	if job.State == StateRunning {
		job.Current++
		job.LastProcessedID = itemID
		if job.Current >= job.Total {
			job.State = StateCompleted
		}
	}
	return *job, true
}

// Snapshot returns a read-only copy of the requester's job
func (c *Controller) Snapshot(requesterID int64) (Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	job, ok := c.jobs[requesterID]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// DiscardIfTerminal removes the job iff it is COMPLETED or CANCELLED
func (c *Controller) DiscardIfTerminal(requesterID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if job, ok := c.jobs[requesterID]; ok && job.State.Terminal() {
		delete(c.jobs, requesterID)
	}
}
