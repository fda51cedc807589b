package randflake

import (
	"context"
	"sync"
	"time"
)

// DefaultCheckpointAhead is how far past the current millisecond a
// generator reserves when it persists a checkpoint.
const DefaultCheckpointAhead = time.Second

// Checkpoint is the persisted high-water mark of one machine id.
//
// Every ID minted by the writing generator has a timestamp at or below
// Timestamp, so a restarted generator that only mints above it can never
// reissue a (millisecond, sequence) pair.
type Checkpoint struct {
	MachineID int64

	// Timestamp is the reserved mark in milliseconds since the Unix epoch.
	Timestamp int64

	// Ahead is how far past the writer's clock Timestamp was reserved.
	// A restarting generator accepts a clock up to this far behind the mark.
	Ahead time.Duration

	// Incarnation identifies the generator instance that wrote the mark.
	Incarnation string

	UpdatedAt time.Time
}

// Checkpointer persists checkpoints across process restarts.
//
// Implementations live in the checkpoint/ subpackages (sqlite, redis,
// pebble). Save must never move a stored mark backwards.
type Checkpointer interface {
	// Load returns the stored checkpoint, or ErrNoCheckpoint.
	Load(ctx context.Context, machineID int64) (Checkpoint, error)

	// Save stores cp if its Timestamp is above the stored one.
	Save(ctx context.Context, cp Checkpoint) error
}

// MemoryCheckpointer keeps checkpoints in process memory. It survives
// generator restarts within one process, which is what tests need.
type MemoryCheckpointer struct {
	mu  sync.Mutex
	cps map[int64]Checkpoint
}

// NewMemoryCheckpointer returns an empty MemoryCheckpointer.
func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{cps: make(map[int64]Checkpoint)}
}

// Load implements Checkpointer.
func (m *MemoryCheckpointer) Load(_ context.Context, machineID int64) (Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.cps[machineID]
	if !ok {
		return Checkpoint{}, ErrNoCheckpoint
	}
	return cp, nil
}

// Save implements Checkpointer.
func (m *MemoryCheckpointer) Save(_ context.Context, cp Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.cps[cp.MachineID]; ok && cur.Timestamp >= cp.Timestamp {
		return nil
	}
	m.cps[cp.MachineID] = cp
	return nil
}
