package randflake

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dapr/kit/logger"
	"github.com/stretchr/testify/require"
)

const testEpoch = DefaultEpoch

// fakeClock is a settable Clock safe for use across goroutines.
type fakeClock struct {
	ms atomic.Int64
}

func newFakeClock(ms int64) *fakeClock {
	c := &fakeClock{}
	c.ms.Store(ms)
	return c
}

func (c *fakeClock) Now() int64          { return c.ms.Load() }
func (c *fakeClock) Set(ms int64)        { c.ms.Store(ms) }
func (c *fakeClock) Advance(delta int64) { c.ms.Add(delta) }

// syncBuffer guards a bytes.Buffer for loggers written from several goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(t *testing.T) (logger.Logger, *syncBuffer) {
	t.Helper()
	l := logger.NewLogger(t.Name())
	buf := &syncBuffer{}
	l.SetOutput(buf)
	l.SetOutputLevel(logger.DebugLevel)
	return l, buf
}

// newTestGenerator builds a generator on a fake clock.
func newTestGenerator(t *testing.T, machineID int64, clock Clock, opts ...func(*Config)) *Generator {
	t.Helper()
	l := logger.NewLogger(t.Name() + ".generator")
	l.SetOutput(io.Discard)
	cfg := DefaultConfig(machineID)
	cfg.Epoch = testEpoch
	cfg.Clock = clock
	cfg.Logger = l
	for _, o := range opts {
		o(&cfg)
	}
	g, err := NewWithConfig(cfg)
	require.NoError(t, err)
	return g
}

func withSequence(s SequenceStrategy) func(*Config) {
	return func(c *Config) { c.Sequence = s }
}

func withCheckpointer(cp Checkpointer, ahead int64) func(*Config) {
	return func(c *Config) {
		c.Checkpointer = cp
		c.CheckpointAhead = msDuration(ahead)
	}
}

// failingCheckpointer fails every Load or Save with err.
type failingCheckpointer struct {
	loadErr error
	saveErr error
}

func (f failingCheckpointer) Load(context.Context, int64) (Checkpoint, error) {
	if f.loadErr != nil {
		return Checkpoint{}, f.loadErr
	}
	return Checkpoint{}, ErrNoCheckpoint
}

func (f failingCheckpointer) Save(context.Context, Checkpoint) error { return f.saveErr }

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

var errStoreDown = errors.New("store down")
