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

// Package frontend renders batch progress for operators and dispatches
// the pause/resume/cancel/status control verbs.
package frontend

import (
	"fmt"
	"strings"

	"github.com/gurr-i/tgsaver/pkg/batch"
	"github.com/gurr-i/tgsaver/pkg/progress"
	"github.com/gurr-i/tgsaver/pkg/transfer"
	"github.com/pterm/pterm"
)

// barWidth matches the narrowest terminal the output still reads well in.
const barWidth = 20

// 🖥️ Console ties control verbs to the batch controller
type Console struct {
	controller *batch.Controller
}

// 🏭 NewConsole creates a Console over a controller
func NewConsole(controller *batch.Controller) *Console {
	return &Console{controller: controller}
}

// HandleCommand dispatches one control verb for a requester and returns
// the response text
func (c *Console) HandleCommand(verb string, requesterID int64) string {
	switch strings.ToLower(strings.TrimSpace(verb)) {
	case "status":
		job, ok := c.controller.Snapshot(requesterID)
		if !ok {
			return "no active batch"
		}
		return RenderStatus(job)
	case "pause":
		if !c.controller.Pause(requesterID) {
			return "nothing to pause"
		}
		return "batch paused"
	case "resume":
		if !c.controller.Resume(requesterID) {
			return "nothing to resume"
		}
		return "batch resumed"
	case "cancel":
		if !c.controller.Cancel(requesterID) {
			return "nothing to cancel"
		}
		return "batch cancelled"
	default:
		return "commands: status, pause, resume, cancel"
	}
}

// RenderStatus formats one batch snapshot as a single status line
func RenderStatus(job batch.Job) string {
	percent := int(job.Percent())
	return fmt.Sprintf("%s %d%% (%d/%d) %s, last item %d",
		progress.Bar(percent, barWidth),
		percent,
		job.Current,
		job.Total,
		job.State,
		job.LastProcessedID,
	)
}

// RenderEvent prints one throttled progress event
func RenderEvent(event progress.Event) {
	line := fmt.Sprintf("%s %s %d%% %s/%s",
		event.Phase,
		progress.Bar(event.Percent, barWidth),
		event.Percent,
		progress.FormatBytes(event.Current),
		progress.FormatBytes(event.Total),
	)
	if event.Speed > 0 {
		line += fmt.Sprintf(" @ %s/s ETA %s", progress.FormatBytes(int64(event.Speed)), event.ETA)
	}
	pterm.Info.Println(line)
}

// RenderSummary prints a finished batch as a table
func RenderSummary(summary transfer.Summary) {
	data := pterm.TableData{
		{"Result", "Count"},
		{"Succeeded", fmt.Sprintf("%d", summary.Succeeded)},
		{"Skipped", fmt.Sprintf("%d", summary.Skipped)},
		{"Failed", fmt.Sprintf("%d", summary.Failed)},
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	switch {
	case summary.Failed > 0:
		pterm.Warning.Printfln("finished %s with %d failures in %s",
			summary.FinalState, summary.Failed, progress.FormatDuration(summary.Elapsed))
	default:
		pterm.Success.Printfln("finished %s in %s",
			summary.FinalState, progress.FormatDuration(summary.Elapsed))
	}
}
