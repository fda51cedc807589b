package pebblestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sxyafiq/randflake"
)

func TestOpen_RequiresDataDir(t *testing.T) {
	_, err := Open(Options{})
	require.Error(t, err)
}

func TestStore_SaveLoadReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(Options{DataDir: dir})
	require.NoError(t, err)

	_, err = s.Load(ctx, 1023)
	require.ErrorIs(t, err, randflake.ErrNoCheckpoint)

	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	want := randflake.Checkpoint{MachineID: 1023, Timestamp: 1_700_000_000_000, Ahead: 1500 * time.Millisecond, Incarnation: "3f1c", UpdatedAt: at}
	require.NoError(t, s.Save(ctx, want))
	require.NoError(t, s.Close())

	s, err = Open(Options{DataDir: dir})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx, 1023)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_NeverMovesBackwards(t *testing.T) {
	ctx := context.Background()
	s, err := Open(Options{DataDir: t.TempDir(), NoSync: true})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, randflake.Checkpoint{MachineID: 8, Timestamp: 300, Incarnation: "a"}))
	require.NoError(t, s.Save(ctx, randflake.Checkpoint{MachineID: 8, Timestamp: 200, Incarnation: "b"}))

	cp, err := s.Load(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(300), cp.Timestamp)
	assert.Equal(t, "a", cp.Incarnation)

	// Other machine ids are independent.
	_, err = s.Load(ctx, 9)
	assert.ErrorIs(t, err, randflake.ErrNoCheckpoint)
}

func TestStore_SaveHonoursContext(t *testing.T) {
	s, err := Open(Options{DataDir: t.TempDir(), NoSync: true})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Save(ctx, randflake.Checkpoint{MachineID: 1, Timestamp: 1}), context.Canceled)
}

func TestDecodeValue_Corrupt(t *testing.T) {
	_, err := decodeValue(1, []byte{1, 2, 3})
	assert.Error(t, err)
}

func TestStore_GeneratorRestartWaitsPastMark(t *testing.T) {
	s, err := Open(Options{DataDir: t.TempDir(), NoSync: true})
	require.NoError(t, err)
	defer s.Close()

	cfg := randflake.DefaultConfig(5)
	cfg.Checkpointer = s
	cfg.CheckpointAhead = 30 * time.Millisecond

	first, err := randflake.NewWithConfig(cfg)
	require.NoError(t, err)
	before, err := first.GenerateID()
	require.NoError(t, err)

	// Restarting immediately lands inside the reserved window, so the new
	// generator waits until the wall clock passes the mark.
	second, err := randflake.NewWithConfig(cfg)
	require.NoError(t, err)
	after, err := second.GenerateID()
	require.NoError(t, err)

	mark, err := s.Load(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, second.Incarnation(), mark.Incarnation)
	assert.Greater(t, after.Decompose(randflake.DefaultEpoch).Timestamp,
		before.Decompose(randflake.DefaultEpoch).Timestamp+30)
}
