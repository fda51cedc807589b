// Package randflake generates compact, roughly time-ordered 64-bit
// identifiers without coordination between processes, and decodes them
// back into their fields.
//
// # ID Structure (64 bits)
//
//	(milliseconds since epoch) << 22 | machine id << 12 | sequence
//
// The machine id (0-1023) is supplied by the operator and must be unique
// among concurrently running generators. The sequence (0-4095) separates
// IDs minted within the same millisecond; by default it is drawn at random
// from the values not yet used in that millisecond.
//
// # Guarantees
//
//   - No duplicate within a generator: a (millisecond, sequence) pair is
//     issued at most once. When all 4096 sequences of a millisecond are
//     used, the generator waits for the clock to advance.
//   - Clock regression is an error: if the clock reads earlier than the
//     last millisecond an ID was minted for, ErrClockRegression is returned
//     and no ID is produced.
//   - Thread-safe: the read-check-mutate path runs under one mutex.
//   - Optional restart safety: with a Checkpointer the generator persists a
//     reserved high-water mark and never mints at or below it after restart.
//
// # Usage
//
//	gen, err := randflake.New(randflake.DefaultEpoch, 42)
//	if err != nil {
//	    return err
//	}
//	id, err := gen.GenerateID()
//	ts, machine, seq := randflake.Parse(id.Uint64(), randflake.DefaultEpoch)
package randflake

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dapr/kit/logger"
	"github.com/google/uuid"
)

// neverMinted is the lastTimestamp sentinel of a fresh generator.
const neverMinted int64 = -1

// Config holds configuration options for the generator.
//
// Only MachineID is required; DefaultConfig fills in the rest.
type Config struct {
	// MachineID identifies this generator, 0-1023. Assigning unique values
	// to concurrently running generators is the operator's job.
	MachineID int64

	// Epoch is the reference instant in milliseconds since the Unix epoch.
	// The same value must be used to Parse the IDs. Accepted as-is.
	Epoch int64

	// Sequence selects the per-millisecond allocation policy.
	// Default: SequenceRandom.
	Sequence SequenceStrategy

	// Rand is the random source for SequenceRandom. Default: math/rand/v2.
	Rand Intner

	// Clock is the time source. Default: SystemClock.
	Clock Clock

	// Logger receives regression, exhaustion and checkpoint events.
	// Default: logger.NewLogger("randflake").
	Logger logger.Logger

	// Checkpointer persists the high-water mark across restarts. Optional.
	Checkpointer Checkpointer

	// CheckpointAhead is how far past the current millisecond each saved
	// mark reaches. Larger values mean fewer writes and a longer wait on a
	// quick restart. Default: DefaultCheckpointAhead.
	CheckpointAhead time.Duration
}

// DefaultConfig returns a Config using DefaultEpoch, random sequences and
// the system clock.
func DefaultConfig(machineID int64) Config {
	return Config{
		MachineID:       machineID,
		Epoch:           DefaultEpoch,
		Sequence:        SequenceRandom,
		CheckpointAhead: DefaultCheckpointAhead,
	}
}

// Validate checks the configuration and returns a *ConfigError if it is invalid.
func (c *Config) Validate() error {
	if c.MachineID < 0 || c.MachineID > MaxMachineID {
		return newConfigError(
			"MachineID",
			fmt.Sprintf("%d", c.MachineID),
			"out of range",
			fmt.Sprintf("must be between 0 and %d (%d bits)", MaxMachineID, MachineIDBits),
			ErrInvalidMachineID,
		)
	}
	if c.Sequence != SequenceRandom && c.Sequence != SequenceCounter {
		return newConfigError("Sequence", c.Sequence.String(), "unknown strategy", "must be random or counter", nil)
	}
	if c.CheckpointAhead < 0 {
		return newConfigError("CheckpointAhead", c.CheckpointAhead.String(), "must be non-negative", "duration must be >= 0", nil)
	}
	return nil
}

// Metrics holds runtime counters. All counters only increase (until
// ResetMetrics) and are read atomically.
type Metrics struct {
	Generated         int64 // IDs successfully returned
	ClockRegressions  int64 // calls rejected because the clock went backwards
	SequenceExhausted int64 // milliseconds whose 4096 sequences ran out
	WaitTimeUs        int64 // time spent waiting for the next millisecond
	CheckpointSaves   int64 // marks persisted
	CheckpointErrors  int64 // failed saves (the call failed with them)
}

// Generator mints identifiers for one (epoch, machine id) pair.
//
// Generator is safe for concurrent use.
type Generator struct {
	mu            sync.Mutex // guards everything below up to the metrics
	epoch         int64
	machineID     int64
	lastTimestamp int64
	seq           sequencer
	clock         Clock
	log           logger.Logger

	checkpointer Checkpointer
	ahead        int64  // CheckpointAhead in milliseconds
	reserved     int64  // highest mark persisted so far
	incarnation  string // written into every checkpoint

	generated         atomic.Int64
	clockRegressions  atomic.Int64
	sequenceExhausted atomic.Int64
	waitTimeUs        atomic.Int64
	checkpointSaves   atomic.Int64
	checkpointErrors  atomic.Int64
}

// New creates a generator for the given epoch and machine id.
//
// Returns an error matching ErrInvalidMachineID if machineID is outside [0, 1023].
func New(epoch, machineID int64) (*Generator, error) {
	cfg := DefaultConfig(machineID)
	cfg.Epoch = epoch
	return NewWithConfig(cfg)
}

// NewWithConfig creates a generator from cfg. When cfg.Checkpointer is set
// the stored mark is restored first; see NewWithConfigContext.
func NewWithConfig(cfg Config) (*Generator, error) {
	return NewWithConfigContext(context.Background(), cfg)
}

// NewWithConfigContext creates a generator from cfg, restoring the
// checkpoint (if any) under ctx.
//
// If the clock is at or before the stored mark by no more than the larger
// of CheckpointAhead and the window the mark was reserved with,
// construction waits for the clock to pass the mark.
// If it is further behind, the clock regressed across the restart and a
// *ClockError is returned.
func NewWithConfigContext(ctx context.Context, cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewLogger("randflake")
	}

	g := &Generator{
		epoch:         cfg.Epoch,
		machineID:     cfg.MachineID,
		lastTimestamp: neverMinted,
		seq:           newSequencer(cfg.Sequence, cfg.Rand),
		clock:         clock,
		log:           log,
		checkpointer:  cfg.Checkpointer,
		ahead:         cfg.CheckpointAhead.Milliseconds(),
		reserved:      neverMinted,
		incarnation:   uuid.NewString(),
	}

	if g.checkpointer != nil {
		if err := g.restore(ctx); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// GenerateID mints a new identifier.
//
// Fails with ErrClockRegression if the clock reads earlier than the last
// minted millisecond. Blocks briefly only when the current millisecond's
// 4096 sequences are used up.
func (g *Generator) GenerateID() (ID, error) {
	return g.GenerateIDContext(context.Background())
}

// GenerateIDContext is GenerateID with a context that bounds the wait for
// the next millisecond and any checkpoint write.
func (g *Generator) GenerateIDContext(ctx context.Context) (ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := g.nextLocked(ctx)
	if err != nil {
		return 0, err
	}
	return ID(id), nil
}

// Generate mints a new identifier as a raw uint64.
func (g *Generator) Generate() (uint64, error) {
	id, err := g.GenerateID()
	return uint64(id), err
}

// MustGenerateID mints an identifier and panics on error.
func (g *Generator) MustGenerateID() ID {
	id, err := g.GenerateID()
	if err != nil {
		panic(err)
	}
	return id
}

// GenerateBatch mints count identifiers under a single lock acquisition.
//
// On error the IDs minted so far are returned along with the error.
//
// Example:
//
//	ids, err := gen.GenerateBatch(ctx, 1000)
//	if err != nil {
//	    log.Errorf("batch stopped after %d ids: %v", len(ids), err)
//	}
func (g *Generator) GenerateBatch(ctx context.Context, count int) ([]ID, error) {
	if count <= 0 {
		return []ID{}, nil
	}
	ids := make([]ID, 0, count)

	g.mu.Lock()
	defer g.mu.Unlock()

	for i := 0; i < count; i++ {
		id, err := g.nextLocked(ctx)
		if err != nil {
			return ids, err
		}
		ids = append(ids, ID(id))
	}
	return ids, nil
}

// nextLocked runs one generation step. g.mu must be held.
//
// Every failure path returns before lastTimestamp or the sequence state
// is touched, so a failed call leaves the generator as it was.
func (g *Generator) nextLocked(ctx context.Context) (uint64, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %w", ErrContextCanceled, ctx.Err())
	default:
	}

	now := g.clock.Now()
	if now < g.lastTimestamp {
		return 0, g.regression(now)
	}
	if err := g.checkRange(now); err != nil {
		return 0, err
	}

	if now != g.lastTimestamp {
		if err := g.reserve(ctx, now); err != nil {
			return 0, err
		}
		g.seq.reset()
		g.lastTimestamp = now
	}

	seq, ok := g.seq.next()
	if !ok {
		g.sequenceExhausted.Add(1)
		g.log.Debugf("sequence space exhausted for millisecond %d on machine %d, waiting", g.lastTimestamp, g.machineID)

		next, err := g.waitNextMillis(ctx)
		if err != nil {
			return 0, err
		}
		if err := g.checkRange(next); err != nil {
			return 0, err
		}
		if err := g.reserve(ctx, next); err != nil {
			return 0, err
		}
		g.seq.reset()
		g.lastTimestamp = next
		now = next
		seq, _ = g.seq.next()
	}

	g.generated.Add(1)
	return pack(now-g.epoch, g.machineID, seq), nil
}

// checkRange rejects readings that cannot be packed.
func (g *Generator) checkRange(now int64) error {
	delta := now - g.epoch
	if delta < 0 {
		return fmt.Errorf("%w: now=%d epoch=%d", ErrTimestampBeforeEpoch, now, g.epoch)
	}
	if delta >= maxTimestampDelta {
		return fmt.Errorf("%w: delta=%dms", ErrTimestampOverflow, delta)
	}
	return nil
}

func (g *Generator) regression(now int64) error {
	g.clockRegressions.Add(1)
	err := newClockError(now, g.lastTimestamp, g.machineID)
	g.log.Warnf("%v", err)
	return err
}

// waitNextMillis spins until the clock passes lastTimestamp, yielding to
// the scheduler between reads. A backward step during the wait is a
// regression like any other.
func (g *Generator) waitNextMillis(ctx context.Context) (int64, error) {
	start := time.Now()
	defer func() { g.waitTimeUs.Add(time.Since(start).Microseconds()) }()

	for {
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("%w: %w", ErrContextCanceled, ctx.Err())
		default:
		}

		now := g.clock.Now()
		if now > g.lastTimestamp {
			return now, nil
		}
		if now < g.lastTimestamp {
			return 0, g.regression(now)
		}
		runtime.Gosched()
	}
}

// reserve persists a new mark when now has moved past the reserved one.
func (g *Generator) reserve(ctx context.Context, now int64) error {
	if g.checkpointer == nil || now <= g.reserved {
		return nil
	}
	cp := Checkpoint{
		MachineID:   g.machineID,
		Timestamp:   now + g.ahead,
		Ahead:       time.Duration(g.ahead) * time.Millisecond,
		Incarnation: g.incarnation,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := g.checkpointer.Save(ctx, cp); err != nil {
		g.checkpointErrors.Add(1)
		g.log.Errorf("failed to save checkpoint for machine %d: %v", g.machineID, err)
		return &CheckpointError{Op: "save", MachineID: g.machineID, Err: err}
	}
	g.reserved = cp.Timestamp
	g.checkpointSaves.Add(1)
	return nil
}

// restore loads the stored mark and positions the generator above it.
func (g *Generator) restore(ctx context.Context) error {
	cp, err := g.checkpointer.Load(ctx, g.machineID)
	if errors.Is(err, ErrNoCheckpoint) {
		g.log.Infof("no checkpoint for machine %d, starting fresh", g.machineID)
		return nil
	}
	if err != nil {
		return &CheckpointError{Op: "load", MachineID: g.machineID, Err: err}
	}

	// The mark may have been reserved with a wider window than ours.
	tolerance := max(g.ahead, cp.Ahead.Milliseconds())

	now := g.clock.Now()
	if now <= cp.Timestamp {
		if cp.Timestamp-now > tolerance {
			g.clockRegressions.Add(1)
			return newClockError(now, cp.Timestamp, g.machineID)
		}
		g.log.Infof("clock at %d is not past checkpoint %d for machine %d, waiting", now, cp.Timestamp, g.machineID)
		if err := g.waitPast(ctx, cp.Timestamp); err != nil {
			return err
		}
	}

	g.lastTimestamp = cp.Timestamp
	g.reserved = cp.Timestamp
	g.seq.exhaust()
	g.log.Infof("restored checkpoint %d for machine %d (written by %s at %s)",
		cp.Timestamp, g.machineID, cp.Incarnation, cp.UpdatedAt.Format(time.RFC3339))
	return nil
}

// waitPast sleeps until the clock reads later than mark.
func (g *Generator) waitPast(ctx context.Context, mark int64) error {
	start := time.Now()
	defer func() { g.waitTimeUs.Add(time.Since(start).Microseconds()) }()

	for {
		now := g.clock.Now()
		if now > mark {
			return nil
		}
		timer := time.NewTimer(time.Duration(mark-now+1) * time.Millisecond)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrContextCanceled, ctx.Err())
		}
	}
}

// GetMetrics returns a snapshot of the generator's counters.
func (g *Generator) GetMetrics() Metrics {
	return Metrics{
		Generated:         g.generated.Load(),
		ClockRegressions:  g.clockRegressions.Load(),
		SequenceExhausted: g.sequenceExhausted.Load(),
		WaitTimeUs:        g.waitTimeUs.Load(),
		CheckpointSaves:   g.checkpointSaves.Load(),
		CheckpointErrors:  g.checkpointErrors.Load(),
	}
}

// ResetMetrics zeroes all counters. Intended for tests.
func (g *Generator) ResetMetrics() {
	g.generated.Store(0)
	g.clockRegressions.Store(0)
	g.sequenceExhausted.Store(0)
	g.waitTimeUs.Store(0)
	g.checkpointSaves.Store(0)
	g.checkpointErrors.Store(0)
}

// MachineID returns the machine id of this generator.
func (g *Generator) MachineID() int64 {
	return g.machineID
}

// Epoch returns the epoch of this generator in Unix milliseconds.
func (g *Generator) Epoch() int64 {
	return g.epoch
}

// Incarnation returns the random identifier this generator writes into
// its checkpoints.
func (g *Generator) Incarnation() string {
	return g.incarnation
}

// Default generator (DefaultEpoch, machine id 0) for package-level functions,
// created on first use.
var (
	defaultGenerator     *Generator
	defaultGeneratorOnce sync.Once
	defaultGeneratorErr  error
)

func initDefaultGenerator() {
	defaultGenerator, defaultGeneratorErr = New(DefaultEpoch, 0)
}

// GenerateID mints an identifier with the default generator.
//
// The default generator uses machine id 0, which is only suitable for a
// single process. Distributed deployments should create their own
// Generator with a unique machine id.
func GenerateID() (ID, error) {
	defaultGeneratorOnce.Do(initDefaultGenerator)
	if defaultGeneratorErr != nil {
		return 0, defaultGeneratorErr
	}
	return defaultGenerator.GenerateID()
}

// MustGenerateID mints an identifier with the default generator and panics on error.
func MustGenerateID() ID {
	id, err := GenerateID()
	if err != nil {
		panic(err)
	}
	return id
}

// DefaultMetrics returns the metrics of the default generator.
func DefaultMetrics() (Metrics, error) {
	defaultGeneratorOnce.Do(initDefaultGenerator)
	if defaultGeneratorErr != nil {
		return Metrics{}, defaultGeneratorErr
	}
	return defaultGenerator.GetMetrics(), nil
}
