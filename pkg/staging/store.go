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

// Package staging handles local staging files for in-flight transfers:
// write, inspect, remove, and sweep leftovers that outlived their batch.
package staging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 💾 Store writes staging files under a single directory. Names are
// uuid-prefixed so concurrent transfers of identically-named items never
// collide.
type Store struct {
	dir string
}

// 🏭 New creates the staging directory if needed and returns a store
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("staging directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Errorf("creating staging directory: %w", err)
	}
	return &Store{dir: filepath.Clean(dir)}, nil
}

// Dir returns the staging directory path
func (s *Store) Dir() string {
	return s.dir
}

// Write streams the reader into a fresh staging file and returns its
// path. The partial file is removed if the copy fails.
func (s *Store) Write(r io.Reader, name string) (string, error) {
	if name == "" {
		name = "item"
	}
	path := filepath.Join(s.dir, uuid.NewString()+"-"+filepath.Base(name))

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Errorf("creating staging file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", errors.Errorf("writing staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", errors.Errorf("closing staging file: %w", err)
	}
	return path, nil
}

// Remove deletes a staging file
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return errors.Errorf("removing staging file: %w", err)
	}
	return nil
}

// SizeOf returns the size of a staging file in bytes
func (s *Store) SizeOf(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Errorf("stating staging file: %w", err)
	}
	return info.Size(), nil
}

// Exists reports whether the staging file is present
func (s *Store) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Errorf("checking staging file existence: %w", err)
}

// 📊 Stats summarizes the staging directory for the stats surface
type Stats struct {
	TotalFiles int   `json:"total_files"`
	TotalBytes int64 `json:"total_bytes"`
}

// DirStats walks the staging directory and totals its files
func (s *Store) DirStats() (Stats, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return Stats{}, errors.Errorf("reading staging directory: %w", err)
	}

	var stats Stats
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.TotalFiles++
		stats.TotalBytes += info.Size()
	}
	return stats, nil
}

// SweepOlderThan removes staging files whose modification time is older
// than maxAge and returns how many were removed. Leftovers only exist
// after a crash; live transfers remove their own files.
func (s *Store) SweepOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, errors.Errorf("reading staging directory: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.dir, entry.Name())
			if err := os.Remove(path); err != nil {
				logger.Warn().Str("path", path).Err(err).Msg("could not remove stale staging file")
				continue
			}
			removed++
		}
	}
	return removed, nil
}
