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

package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker() (*Tracker, *time.Time) {
	at := time.Unix(1700000000, 0)
	tr := NewTracker()
	tr.now = func() time.Time { return at }
	return tr, &at
}

// 🧪 TestEmitsStartAndEndExactlyOnce tests the mandatory first and final events
func TestEmitsStartAndEndExactlyOnce(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Start(1, 1000, PhaseDownload)

	starts, finals := 0, 0
	feed := []int64{0, 0, 0, 500, 1000, 1000}
	for _, current := range feed {
		ev, ok := tr.Update(1, current, 1000)
		if !ok {
			continue
		}
		if ev.Current == 0 {
			starts++
		}
		if ev.Current >= ev.Total {
			finals++
		}
	}
	assert.Equal(t, 1, starts, "exactly one start event")
	assert.Equal(t, 1, finals, "exactly one completion event")
}

// 🧪 TestEventCountIsBounded tests that many raw updates collapse to few events
func TestEventCountIsBounded(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Start(1, 100000, PhaseUpload)

	emitted := 0
	for current := int64(0); current <= 100000; current += 7 {
		if _, ok := tr.Update(1, current, 100000); ok {
			emitted++
		}
	}
	// 20 bucket changes plus start and completion; time never advances
	assert.LessOrEqual(t, emitted, 100/5+2)
	assert.GreaterOrEqual(t, emitted, 100/5)
}

// 🧪 TestTimeBasedEmission tests the 3-second staleness trigger
func TestTimeBasedEmission(t *testing.T) {
	tr, at := newTestTracker()
	tr.Start(1, 1_000_000, PhaseDownload)

	_, ok := tr.Update(1, 0, 1_000_000)
	require.True(t, ok)

	// Same bucket, no time passed: suppressed
	_, ok = tr.Update(1, 10, 1_000_000)
	assert.False(t, ok)

	*at = at.Add(3 * time.Second)
	ev, ok := tr.Update(1, 20, 1_000_000)
	require.True(t, ok, "stale update must be emitted")
	assert.Equal(t, 0, ev.Percent)
	assert.Greater(t, ev.Speed, 0.0)
}

// 🧪 TestETAReporting tests speed smoothing and the unknown-speed fallback
func TestETAReporting(t *testing.T) {
	tr, at := newTestTracker()
	tr.Start(1, 2000, PhaseDownload)

	ev, ok := tr.Update(1, 0, 2000)
	require.True(t, ok)
	assert.Equal(t, "calculating...", ev.ETA, "no bytes moved yet")

	*at = at.Add(time.Second)
	ev, ok = tr.Update(1, 1000, 2000)
	require.True(t, ok)
	// 1000 B/s smoothed, 1000 bytes remaining
	assert.Equal(t, "1s", ev.ETA)
}

// 🧪 TestFinishDropsState tests that state is discarded at transfer end
func TestFinishDropsState(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Start(1, 100, PhaseDownload)
	tr.Start(2, 100, PhaseUpload)
	require.Equal(t, 2, tr.InFlight())

	tr.Finish(1)
	assert.Equal(t, 1, tr.InFlight())
	tr.Finish(1) // idempotent
	assert.Equal(t, 1, tr.InFlight())
}

// 🧪 TestFormatHelpers tests byte, duration and bar rendering
func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.00 KB", FormatBytes(1024))
	assert.Equal(t, "2.50 MB", FormatBytes(2621440))
	assert.Equal(t, "1.00 GB", FormatBytes(1073741824))

	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "2m 5s", FormatDuration(125*time.Second))
	assert.Equal(t, "1h 1m 5s", FormatDuration(3665*time.Second))

	assert.Equal(t, "calculating...", FormatETA(100, 0))
	assert.Equal(t, "10s", FormatETA(1000, 100))

	assert.Equal(t, "██████████░░░░░░░░░░", Bar(50, 20))
	assert.Equal(t, "████████████████████", Bar(100, 20))
	assert.Equal(t, "░░░░░░░░░░░░░░░░░░░░", Bar(0, 20))
}
