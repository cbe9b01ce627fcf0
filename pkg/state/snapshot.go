// Package state persists batch progress snapshots to Redis so operators
// can inspect long-running batches from outside the process. Snapshots
// are write-only from the orchestrator's point of view: the process never
// reads them back, so a cold or absent Redis costs nothing but the
// visibility.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gurr-i/tgsaver/pkg/batch"
	"github.com/redis/go-redis/v9"
	"gitlab.com/tozd/go/errors"
)

// snapshotTTL keeps abandoned snapshots from accumulating.
const snapshotTTL = 24 * time.Hour

// 📸 Snapshot is the externally visible shape of one batch in flight
type Snapshot struct {
	RequesterID     int64     `json:"requester_id"`
	Source          string    `json:"source"`
	Total           int       `json:"total"`
	Current         int       `json:"current"`
	LastProcessedID int64     `json:"last_processed_id"`
	State           string    `json:"state"`
	StartedAt       time.Time `json:"started_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// 🗄️ Store writes batch snapshots to Redis
type Store struct {
	rdb *redis.Client
}

// 🏭 NewStore creates a Store on an existing Redis client
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Connect dials Redis and verifies the connection
func Connect(ctx context.Context, addr, password string, db int) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Errorf("pinging redis at %s: %w", addr, err)
	}
	return &Store{rdb: rdb}, nil
}

func key(requesterID int64) string {
	return fmt.Sprintf("batch:%d", requesterID)
}

// Save writes one batch snapshot, replacing any previous one
func (s *Store) Save(ctx context.Context, job batch.Job) error {
	snap := Snapshot{
		RequesterID:     job.RequesterID,
		Source:          job.Source,
		Total:           job.Total,
		Current:         job.Current,
		LastProcessedID: job.LastProcessedID,
		State:           job.State.String(),
		StartedAt:       job.StartedAt,
		UpdatedAt:       time.Now(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Errorf("marshaling snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, key(job.RequesterID), data, snapshotTTL).Err(); err != nil {
		return errors.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Delete removes the requester's snapshot
func (s *Store) Delete(ctx context.Context, requesterID int64) error {
	if err := s.rdb.Del(ctx, key(requesterID)).Err(); err != nil {
		return errors.Errorf("deleting snapshot: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client
func (s *Store) Close() error {
	return s.rdb.Close()
}
