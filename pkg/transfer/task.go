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

// Package transfer implements the per-item fetch → validate → transfer →
// cleanup pipeline and the batch orchestrator that drives it.
package transfer

import (
	"io"

	"github.com/gurr-i/tgsaver/pkg/remote"
	"github.com/gurr-i/tgsaver/pkg/staging"
)

// 📦 Task describes one item to move from a source collection to a
// destination
type Task struct {
	Source        string            // Collection the item lives in
	ItemID        int64             // Item identifier within the collection
	Access        remote.AccessType // How the source is reached
	DestinationID int64             // Where the item is delivered
	RequesterID   int64             // Who asked for the transfer
}

// OutcomeKind classifies how an item attempt ended.
type OutcomeKind int

const (
	// Succeeded means the item was delivered to the destination
	Succeeded OutcomeKind = iota
	// Skipped means the item does not exist at the source
	Skipped
	// Failed means the item exists but could not be delivered
	Failed
)

// String returns the lowercase name of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// FailureKind names the reason a Failed outcome failed.
type FailureKind string

const (
	FailureNone             FailureKind = ""
	FailureNotFound         FailureKind = "not_found"
	FailureAccessDenied     FailureKind = "access_denied"
	FailureValidationFailed FailureKind = "validation_failed"
	FailureTransferError    FailureKind = "transfer_error"
	FailureRateLimited      FailureKind = "rate_limited"
)

// detailCancelled marks an outcome produced by a cancellation checkpoint
// rather than by the item itself.
const detailCancelled = "cancelled"

// 📊 Outcome is the result of processing one task
type Outcome struct {
	ItemID   int64       `json:"item_id"`
	Kind     OutcomeKind `json:"kind"`
	Category string      `json:"category,omitempty"` // Content category when known
	Failure  FailureKind `json:"failure,omitempty"`
	Detail   string      `json:"detail,omitempty"`
}

// Cancelled reports whether the outcome records a batch cancellation
// observed while the item was in flight.
func (o Outcome) Cancelled() bool {
	return o.Kind == Skipped && o.Detail == detailCancelled
}

// StagingStore is the slice of the staging area the pipeline needs.
// *staging.Store satisfies it.
type StagingStore interface {
	Write(r io.Reader, name string) (string, error)
	Remove(path string) error
}

var _ StagingStore = (*staging.Store)(nil)
