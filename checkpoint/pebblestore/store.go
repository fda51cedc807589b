// Package pebblestore persists randflake checkpoints in an embedded Pebble
// key-value store, for deployments without a database server.
package pebblestore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/sxyafiq/randflake"
)

// keyPrefix namespaces checkpoint keys so the database can be shared.
const keyPrefix = "randflake/checkpoint/"

// valueHeaderLen is ts, updated_at and ahead (8 bytes each, milliseconds);
// the incarnation follows.
const valueHeaderLen = 24

// Options configures the store.
type Options struct {
	// DataDir is the path to the Pebble database directory.
	DataDir string
	// NoSync skips the WAL fsync on each save. Only for tests and throwaway data:
	// a mark lost in a crash can let a restarted generator reissue IDs.
	NoSync bool
	// PebbleOptions allows advanced tuning of Pebble. If nil, defaults are used.
	PebbleOptions *pebble.Options
}

// Store implements randflake.Checkpointer on a Pebble database.
type Store struct {
	mu        sync.Mutex // serialises read-compare-write in Save
	db        *pebble.DB
	writeSync bool
}

// Open creates or opens a Pebble database with the provided options.
func Open(opts Options) (*Store, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebble: Options.DataDir is required")
	}
	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}
	db, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, writeSync: !opts.NoSync}, nil
}

// Close closes the Pebble database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func key(machineID int64) []byte {
	return []byte(fmt.Sprintf("%s%04d", keyPrefix, machineID))
}

func encodeValue(cp randflake.Checkpoint) []byte {
	buf := make([]byte, valueHeaderLen+len(cp.Incarnation))
	binary.BigEndian.PutUint64(buf[0:8], uint64(cp.Timestamp))
	binary.BigEndian.PutUint64(buf[8:16], uint64(cp.UpdatedAt.UnixMilli()))
	binary.BigEndian.PutUint64(buf[16:24], uint64(cp.Ahead.Milliseconds()))
	copy(buf[valueHeaderLen:], cp.Incarnation)
	return buf
}

func decodeValue(machineID int64, val []byte) (randflake.Checkpoint, error) {
	if len(val) < valueHeaderLen {
		return randflake.Checkpoint{}, fmt.Errorf("corrupt checkpoint for machine %d: %d bytes", machineID, len(val))
	}
	return randflake.Checkpoint{
		MachineID:   machineID,
		Timestamp:   int64(binary.BigEndian.Uint64(val[0:8])),
		UpdatedAt:   time.UnixMilli(int64(binary.BigEndian.Uint64(val[8:16]))).UTC(),
		Ahead:       time.Duration(binary.BigEndian.Uint64(val[16:24])) * time.Millisecond,
		Incarnation: string(val[valueHeaderLen:]),
	}, nil
}

// get copies the value for machineID.
func (s *Store) get(machineID int64) (randflake.Checkpoint, error) {
	val, closer, err := s.db.Get(key(machineID))
	if errors.Is(err, pebble.ErrNotFound) {
		return randflake.Checkpoint{}, randflake.ErrNoCheckpoint
	}
	if err != nil {
		return randflake.Checkpoint{}, err
	}
	defer closer.Close()
	return decodeValue(machineID, val)
}

// Load implements randflake.Checkpointer.
func (s *Store) Load(_ context.Context, machineID int64) (randflake.Checkpoint, error) {
	return s.get(machineID)
}

// Save implements randflake.Checkpointer.
func (s *Store) Save(ctx context.Context, cp randflake.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.get(cp.MachineID)
	switch {
	case errors.Is(err, randflake.ErrNoCheckpoint):
	case err != nil:
		return err
	case cur.Timestamp >= cp.Timestamp:
		return nil
	}

	syncMode := pebble.NoSync
	if s.writeSync {
		syncMode = pebble.Sync
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(key(cp.MachineID), encodeValue(cp), nil); err != nil {
		return err
	}
	return b.Commit(syncMode)
}
