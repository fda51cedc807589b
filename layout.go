// Package randflake - layout.go defines the fixed bit layout shared by the
// generator and the decoder.
//
//	┌──────────────────────────────────────────────┬──────────────┬──────────────┐
//	│  42 bits: milliseconds since epoch           │  10 bits:    │  12 bits:    │
//	│  (41 nominal, top bit reserved for sign)     │  Machine ID  │  Sequence    │
//	│                                              │  (0-1023)    │  (0-4095)    │
//	└──────────────────────────────────────────────┴──────────────┴──────────────┘

package randflake

import (
	"fmt"
	"time"
)

const (
	// MachineIDBits is the width of the machine id field.
	MachineIDBits = 10

	// SequenceBits is the width of the per-millisecond sequence field.
	SequenceBits = 12

	// TimestampBits is the nominal width of the timestamp field. The field
	// occupies every bit above TimestampShift, so the decoder reads 42 bits,
	// but IDs stay positive as int64 only while the delta fits in 41.
	TimestampBits = 64 - 1 - MachineIDBits - SequenceBits

	// MaxMachineID is the largest valid machine id (1023).
	MaxMachineID = -1 ^ (-1 << MachineIDBits)

	// MaxSequence is the largest sequence value (4095).
	MaxSequence = -1 ^ (-1 << SequenceBits)

	// SequenceSpace is the number of distinct sequences per millisecond.
	SequenceSpace = MaxSequence + 1

	// MachineIDShift positions the machine id above the sequence.
	MachineIDShift = SequenceBits

	// TimestampShift positions the timestamp delta above machine id and sequence (22).
	TimestampShift = MachineIDBits + SequenceBits

	// maxTimestampDelta is the first delta that no longer fits above TimestampShift.
	maxTimestampDelta = int64(1) << (64 - TimestampShift)

	// DefaultEpoch is 2020-01-01T00:00:00Z in milliseconds since the Unix epoch.
	DefaultEpoch int64 = 1577836800000
)

// pack composes an identifier from its three fields.
//
// machineID and sequence are masked to their widths. All arithmetic is done
// on uint64 so no intermediate value is truncated.
func pack(delta, machineID, sequence int64) uint64 {
	return uint64(delta)<<TimestampShift |
		uint64(machineID&MaxMachineID)<<MachineIDShift |
		uint64(sequence&MaxSequence)
}

// unpack splits an identifier into delta, machine id and sequence.
func unpack(id uint64) (delta, machineID, sequence int64) {
	delta = int64(id >> TimestampShift)
	machineID = int64((id >> MachineIDShift) & MaxMachineID)
	sequence = int64(id & MaxSequence)
	return
}

// Lifespan returns the last instant whose delta still fits the nominal
// 41-bit timestamp field for the given epoch (~69 years after it).
//
// Example:
//
//	fmt.Println(randflake.Lifespan(randflake.DefaultEpoch)) // 2089-09-06 ...
func Lifespan(epoch int64) time.Time {
	return time.UnixMilli(epoch + (int64(1)<<TimestampBits - 1)).UTC()
}

// LayoutCapacity summarises the throughput and scale limits of the layout.
type LayoutCapacity struct {
	MaxMachines         int64
	SequencesPerMilli   int64
	ThroughputPerSecond int64
	Lifespan            time.Duration
}

// Capacity returns the fixed capacity figures of the layout.
func Capacity() LayoutCapacity {
	return LayoutCapacity{
		MaxMachines:         MaxMachineID + 1,
		SequencesPerMilli:   SequenceSpace,
		ThroughputPerSecond: SequenceSpace * 1000,
		Lifespan:            time.Duration(int64(1)<<TimestampBits-1) * time.Millisecond,
	}
}

// String returns a human-readable description of the capacity.
func (c LayoutCapacity) String() string {
	years := int(c.Lifespan.Hours() / 24 / 365)
	return fmt.Sprintf("MaxMachines: %d, ThroughputPerSecond: %d, Lifespan: %d years",
		c.MaxMachines, c.ThroughputPerSecond, years)
}
