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

// Package perf provides retry backoff policy, chunk sizing and transfer
// metrics for the pipeline.
package perf

import (
	"math/rand"
	"sync"
	"time"
)

// MaxRetries bounds retry attempts for each pipeline phase. Fetch and
// transfer keep independent budgets.
const MaxRetries = 3

const (
	minDelay = 100 * time.Millisecond
	mb       = 1024 * 1024
)

// ⏳ RetryPolicy computes exponential-backoff delays with optional jitter
type RetryPolicy struct {
	Base   time.Duration // Delay before the first retry
	Max    time.Duration // Cap on the un-jittered delay
	Jitter bool          // Perturb by up to ±25% to avoid thundering herds
}

// DefaultRetryPolicy returns the policy used in production: 1s base,
// 60s cap, jitter on
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Base: time.Second, Max: 60 * time.Second, Jitter: true}
}

// Delay returns how long to wait before attempt+1. The result is floored
// at 100ms and, with jitter, never exceeds Max × 1.25.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.Base << uint(attempt)
	if delay > p.Max || delay <= 0 {
		delay = p.Max
	}

	if p.Jitter {
		jitter := time.Duration(float64(delay) * 0.25)
		delay += time.Duration(rand.Int63n(int64(2*jitter+1))) - jitter
	}

	if delay < minDelay {
		delay = minDelay
	}
	return delay
}

// OptimalChunkSize returns the transfer chunk size for a file of the
// given size: 256KB below 10MB, 1MB below 100MB, 2MB below 500MB, 4MB
// above.
func OptimalChunkSize(fileSize int64) int64 {
	switch {
	case fileSize < 10*mb:
		return 256 * 1024
	case fileSize < 100*mb:
		return 1 * mb
	case fileSize < 500*mb:
		return 2 * mb
	default:
		return 4 * mb
	}
}

// 📊 Summary is a snapshot of accumulated transfer metrics
type Summary struct {
	UptimeSeconds        float64 `json:"uptime_seconds"`
	TotalDownloads       int     `json:"total_downloads"`
	TotalUploads         int     `json:"total_uploads"`
	DownloadedMB         float64 `json:"total_data_downloaded_mb"`
	UploadedMB           float64 `json:"total_data_uploaded_mb"`
	AvgDownloadSpeedMBps float64 `json:"average_download_speed_mbps"`
	AvgUploadSpeedMBps   float64 `json:"average_upload_speed_mbps"`
	FailedOperations     int     `json:"failed_operations"`
	RetryCount           int     `json:"retry_count"`
	SuccessRate          float64 `json:"success_rate"`
}

// 📈 Metrics tracks transfer counters and smoothed speeds. Speed samples
// are kept in a bounded ring of the most recent 100.
type Metrics struct {
	mu                   sync.Mutex
	totalDownloads       int
	totalUploads         int
	bytesDownloaded      int64
	bytesUploaded        int64
	avgDownloadSpeedMBps float64
	avgUploadSpeedMBps   float64
	failedOperations     int
	retryCount           int
	startedAt            time.Time
	speedSamples         []float64
}

const maxSpeedSamples = 100

// 🏭 NewMetrics creates a metrics tracker with the uptime clock started
func NewMetrics() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

// AddDownload records a completed download of the given size and duration
func (m *Metrics) AddDownload(bytes int64, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalDownloads++
	m.bytesDownloaded += bytes
	if duration > 0 {
		m.avgDownloadSpeedMBps = m.addSample(bytes, duration)
	}
}

// AddUpload records a completed upload of the given size and duration
func (m *Metrics) AddUpload(bytes int64, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalUploads++
	m.bytesUploaded += bytes
	if duration > 0 {
		m.avgUploadSpeedMBps = m.addSample(bytes, duration)
	}
}

// addSample appends a MB/s sample and returns the running mean. Caller
// holds the lock.
func (m *Metrics) addSample(bytes int64, duration time.Duration) float64 {
	speed := float64(bytes) / duration.Seconds() / mb
	m.speedSamples = append(m.speedSamples, speed)
	if len(m.speedSamples) > maxSpeedSamples {
		m.speedSamples = m.speedSamples[len(m.speedSamples)-maxSpeedSamples:]
	}
	var sum float64
	for _, s := range m.speedSamples {
		sum += s
	}
	return sum / float64(len(m.speedSamples))
}

// AddFailure records a permanently failed operation
func (m *Metrics) AddFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failedOperations++
}

// AddRetry records one retry attempt
func (m *Metrics) AddRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryCount++
}

// Summary returns a snapshot for the stats surface
func (m *Metrics) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	operations := m.totalDownloads + m.totalUploads
	denominator := operations + m.failedOperations
	if denominator == 0 {
		denominator = 1
	}

	return Summary{
		UptimeSeconds:        time.Since(m.startedAt).Seconds(),
		TotalDownloads:       m.totalDownloads,
		TotalUploads:         m.totalUploads,
		DownloadedMB:         float64(m.bytesDownloaded) / mb,
		UploadedMB:           float64(m.bytesUploaded) / mb,
		AvgDownloadSpeedMBps: m.avgDownloadSpeedMBps,
		AvgUploadSpeedMBps:   m.avgUploadSpeedMBps,
		FailedOperations:     m.failedOperations,
		RetryCount:           m.retryCount,
		SuccessRate:          float64(operations) / float64(denominator) * 100,
	}
}
