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

package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	itemIndent    = 4  // spaces to indent item entries
	idWidth       = 12 // Base width for item ids
	categoryWidth = 12 // Width for content category
	statusWidth   = 18 // Width for status text
)

// 🎯 ItemOperation represents one item transfer for logging
type ItemOperation struct {
	ItemID    int64  // Item identifier within the source
	Category  string // Content category (photo/video/document/...)
	Status    string // Outcome status text
	Succeeded bool   // Whether the item was delivered
	Skipped   bool   // Whether the item was missing at the source
	Failed    bool   // Whether the item failed
	Retries   int    // Retry attempts spent on the item
}

// 📦 BatchOperation represents one batch run for logging
type BatchOperation struct {
	Source      string // Source collection identifier
	StartItemID int64  // First item id in the range
	Count       int    // Number of consecutive items
	Destination int64  // Destination collection
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog       zerolog.Logger
	console    io.Writer
	mu         sync.Mutex
	currentOp  *BatchOperation
	operations []ItemOperation
}

// 🏭 New creates a new logger
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
		mu:      sync.Mutex{},
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatItemOperation formats an item transfer for display
func (l *Logger) formatItemOperation(op ItemOperation) string {
	// Determine symbol and color
	var symbol rune
	var symbolColor color.Attribute
	switch {
	case op.Failed:
		symbol = '✗'
		symbolColor = color.FgRed
	case op.Skipped:
		symbol = '-'
		symbolColor = color.FgYellow
	case op.Succeeded:
		symbol = '✓'
		symbolColor = color.FgGreen
	default:
		symbol = '⟳'
		symbolColor = color.FgBlue
	}

	// Format category with color
	var categoryColor color.Attribute
	switch op.Category {
	case "photo", "video", "animation", "video_note":
		categoryColor = color.FgCyan
	case "audio", "voice":
		categoryColor = color.FgMagenta
	default:
		categoryColor = color.FgBlue
	}

	// Build the line
	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", itemIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*d", idWidth, op.ItemID),
		color.New(categoryColor).Sprint(fmt.Sprintf("%-*s", categoryWidth, op.Category)),
		fmt.Sprintf("%-*s", statusWidth, op.Status))
}

// 📝 LogItemOperation logs one item transfer
func (l *Logger) LogItemOperation(ctx context.Context, op ItemOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Add to operations list
	l.operations = append(l.operations, op)

	// Format and print
	fmt.Fprintln(l.console, l.formatItemOperation(op))

	// Log to zerolog
	l.zlog.Info().
		Int64("item_id", op.ItemID).
		Str("category", op.Category).
		Str("status", op.Status).
		Bool("succeeded", op.Succeeded).
		Bool("skipped", op.Skipped).
		Bool("failed", op.Failed).
		Int("retries", op.Retries).
		Msg("item transfer")
}

// 📝 StartBatchOperation starts a new batch run
func (l *Logger) StartBatchOperation(ctx context.Context, op BatchOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentOp = &op
	l.operations = nil

	// Print batch header
	fmt.Fprintf(l.console, "[transferring %s]\n",
		color.New(color.FgCyan).Sprint(op.Source))

	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprintf("items %d-%d", op.StartItemID, op.StartItemID+int64(op.Count)-1),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprintf("→ %d", op.Destination))

	// Log to zerolog
	l.zlog.Info().
		Str("source", op.Source).
		Int64("start_item_id", op.StartItemID).
		Int("count", op.Count).
		Int64("destination", op.Destination).
		Msg("starting batch")
}

// 📝 EndBatchOperation ends the current batch run
func (l *Logger) EndBatchOperation(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentOp == nil {
		return
	}

	// Log summary
	l.zlog.Info().
		Str("source", l.currentOp.Source).
		Int("items", len(l.operations)).
		Msg("batch complete")

	l.currentOp = nil
	l.operations = nil
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	appText := color.New(color.Bold, color.FgCyan).Sprint("tgsaver")
	fmt.Fprintf(l.console, "\n%s %s\n\n", appText, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
