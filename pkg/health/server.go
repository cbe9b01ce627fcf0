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

// Package health exposes a small HTTP surface for liveness probes and
// runtime statistics.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gurr-i/tgsaver/pkg/errtrack"
	"github.com/gurr-i/tgsaver/pkg/perf"
	"github.com/gurr-i/tgsaver/pkg/staging"
	"github.com/gurr-i/tgsaver/pkg/transfer"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🎛️ ServerOptions wires the stats sources into the HTTP surface.
// Every source is optional; absent ones are omitted from /stats.
type ServerOptions struct {
	Port    int
	Metrics *perf.Metrics
	Pool    *transfer.Pool
	Staging *staging.Store
	Errors  *errtrack.Tracker
}

// 🩺 Server serves liveness and stats endpoints
type Server struct {
	opts    ServerOptions
	srv     *http.Server
	started time.Time
}

// 🏭 NewServer creates a Server listening on the configured port
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Port < 1 || opts.Port > 65535 {
		return nil, errors.Errorf("port %d out of range", opts.Port)
	}

	s := &Server{opts: opts, started: time.Now()}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", s.handleLiveness)
	router.GET("/health", s.handleLiveness)
	router.GET("/stats", s.handleStats)

	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}
	return s, nil
}

// Start serves until the context ends, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info().Str("addr", s.srv.Addr).Msg("health server listening")

	select {
	case err := <-errCh:
		return errors.Errorf("health server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return errors.Errorf("shutting down health server: %w", err)
		}
		return nil
	}
}

// Handler exposes the underlying handler for tests
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	stats := gin.H{
		"uptime": time.Since(s.started).String(),
	}
	if s.opts.Metrics != nil {
		stats["performance"] = s.opts.Metrics.Summary()
	}
	if s.opts.Pool != nil {
		stats["pool"] = s.opts.Pool.Stats()
	}
	if s.opts.Staging != nil {
		if dirStats, err := s.opts.Staging.DirStats(); err == nil {
			stats["staging"] = dirStats
		}
	}
	if s.opts.Errors != nil {
		stats["errors"] = gin.H{
			"total":  s.opts.Errors.Total(),
			"counts": s.opts.Errors.Counts(),
		}
	}
	c.JSON(http.StatusOK, stats)
}
