// Package status formats item outcomes and batch progress for user-facing
// output. Presentation only; the transfer package owns the semantics.
package status

import (
	"fmt"

	"github.com/gurr-i/tgsaver/pkg/transfer"
)

// OutcomeFormatter defines how item outcomes and progress should be formatted
type OutcomeFormatter interface {
	// FormatOutcome formats one item outcome as a status message
	FormatOutcome(outcome transfer.Outcome) string

	// FormatProgress formats a batch progress message
	FormatProgress(current, total int) string

	// FormatError formats an error message
	FormatError(err error) string
}

// DefaultOutcomeFormatter provides a default implementation of OutcomeFormatter
type DefaultOutcomeFormatter struct{}

// NewDefaultOutcomeFormatter creates a new DefaultOutcomeFormatter
func NewDefaultOutcomeFormatter() *DefaultOutcomeFormatter {
	return &DefaultOutcomeFormatter{}
}

// FormatOutcome formats one item outcome with emojis
func (f *DefaultOutcomeFormatter) FormatOutcome(outcome transfer.Outcome) string {
	switch {
	case outcome.Kind == transfer.Succeeded:
		return fmt.Sprintf("✨ Delivered %d", outcome.ItemID)
	case outcome.Kind == transfer.Skipped:
		return fmt.Sprintf("🫥 Skipped %d (missing)", outcome.ItemID)
	case outcome.Failure == transfer.FailureAccessDenied:
		return fmt.Sprintf("🔒 Denied %d", outcome.ItemID)
	case outcome.Failure == transfer.FailureRateLimited:
		return fmt.Sprintf("⏳ Throttled %d", outcome.ItemID)
	case outcome.Failure == transfer.FailureValidationFailed:
		return fmt.Sprintf("🚫 Rejected %d (%s)", outcome.ItemID, outcome.Detail)
	default:
		return fmt.Sprintf("❌ Failed %d (%s)", outcome.ItemID, outcome.Detail)
	}
}

// FormatProgress formats a batch progress message
func (f *DefaultOutcomeFormatter) FormatProgress(current, total int) string {
	return fmt.Sprintf("🔄 Processing items... [%d/%d]", current, total)
}

// FormatError formats an error message
func (f *DefaultOutcomeFormatter) FormatError(err error) string {
	return fmt.Sprintf("❌ Error: %v", err)
}
