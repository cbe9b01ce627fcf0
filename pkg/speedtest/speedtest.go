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

// Package speedtest measures the host's network throughput so operators
// can tell transfer slowness apart from remote throttling.
package speedtest

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/showwin/speedtest-go/speedtest"
	"gitlab.com/tozd/go/errors"
)

// 📶 Result is one completed measurement
type Result struct {
	ServerName   string        `json:"server_name"`
	Latency      time.Duration `json:"latency"`
	DownloadMbps float64       `json:"download_mbps"`
	UploadMbps   float64       `json:"upload_mbps"`
}

// Run measures latency, download and upload against the closest server
func Run(ctx context.Context) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	client := speedtest.New()
	servers, err := client.FetchServerListContext(ctx)
	if err != nil {
		return nil, errors.Errorf("fetching server list: %w", err)
	}
	targets, err := servers.FindServer(nil)
	if err != nil {
		return nil, errors.Errorf("selecting server: %w", err)
	}
	if len(targets) == 0 {
		return nil, errors.New("no measurement servers available")
	}
	server := targets[0]

	logger.Info().Str("server", server.Name).Msg("measuring against server")

	if err := server.PingTestContext(ctx, nil); err != nil {
		return nil, errors.Errorf("ping test: %w", err)
	}
	if err := server.DownloadTestContext(ctx); err != nil {
		return nil, errors.Errorf("download test: %w", err)
	}
	if err := server.UploadTestContext(ctx); err != nil {
		return nil, errors.Errorf("upload test: %w", err)
	}

	return &Result{
		ServerName:   server.Name,
		Latency:      server.Latency,
		DownloadMbps: server.DLSpeed.Mbps(),
		UploadMbps:   server.ULSpeed.Mbps(),
	}, nil
}
