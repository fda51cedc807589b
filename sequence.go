package randflake

import (
	"fmt"
	"math/bits"
	"math/rand/v2"
)

// SequenceStrategy selects how sequence values are handed out within one
// millisecond. Both strategies issue each value at most once per millisecond.
type SequenceStrategy int

const (
	// SequenceRandom draws uniformly from [0, 4095] and retries on values
	// already used this millisecond.
	SequenceRandom SequenceStrategy = iota

	// SequenceCounter issues 0, 1, 2, ... within a millisecond.
	SequenceCounter
)

// String returns the strategy name used in configuration files.
func (s SequenceStrategy) String() string {
	switch s {
	case SequenceRandom:
		return "random"
	case SequenceCounter:
		return "counter"
	default:
		return fmt.Sprintf("SequenceStrategy(%d)", int(s))
	}
}

// ParseSequenceStrategy parses "random" or "counter".
func ParseSequenceStrategy(s string) (SequenceStrategy, error) {
	switch s {
	case "", "random":
		return SequenceRandom, nil
	case "counter":
		return SequenceCounter, nil
	default:
		return 0, newConfigError("Sequence", s, "unknown strategy", "must be random or counter", nil)
	}
}

// Intner is the random source used by SequenceRandom.
// *rand.Rand from math/rand/v2 satisfies it.
type Intner interface {
	IntN(n int) int
}

// globalRand uses the auto-seeded, goroutine-safe top-level source.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// sequencer tracks the sequence values issued within the current millisecond.
// It is only touched with the generator's mutex held.
type sequencer interface {
	// reset forgets every value; called when the millisecond changes.
	reset()
	// next returns an unused value, or false when all are used.
	next() (int64, bool)
	// exhaust marks every value used.
	exhaust()
	// used reports how many values have been issued.
	used() int
}

func newSequencer(strategy SequenceStrategy, rnd Intner) sequencer {
	if strategy == SequenceCounter {
		return &counterSequencer{}
	}
	if rnd == nil {
		rnd = globalRand{}
	}
	return &randomSequencer{rnd: rnd}
}

// randomSequencer keeps a 4096-bit set of issued values plus a count, so
// exhaustion is known without probing.
type randomSequencer struct {
	rnd   Intner
	set   [SequenceSpace / 64]uint64
	count int
}

func (s *randomSequencer) reset() {
	s.set = [SequenceSpace / 64]uint64{}
	s.count = 0
}

func (s *randomSequencer) next() (int64, bool) {
	if s.count >= SequenceSpace {
		return 0, false
	}
	for {
		v := s.rnd.IntN(SequenceSpace)
		word, bit := v/64, uint64(1)<<(v%64)
		if s.set[word]&bit != 0 {
			continue
		}
		s.set[word] |= bit
		s.count++
		return int64(v), true
	}
}

func (s *randomSequencer) exhaust() {
	for i := range s.set {
		s.set[i] = ^uint64(0)
	}
	s.count = SequenceSpace
}

func (s *randomSequencer) used() int { return s.count }

// contains reports whether v was issued this millisecond.
func (s *randomSequencer) contains(v int64) bool {
	return s.set[v/64]&(uint64(1)<<(v%64)) != 0
}

// popcount recounts the set; used by tests to check count bookkeeping.
func (s *randomSequencer) popcount() int {
	n := 0
	for _, w := range s.set {
		n += bits.OnesCount64(w)
	}
	return n
}

type counterSequencer struct {
	n int64
}

func (s *counterSequencer) reset() { s.n = 0 }

func (s *counterSequencer) next() (int64, bool) {
	if s.n > MaxSequence {
		return 0, false
	}
	v := s.n
	s.n++
	return v, true
}

func (s *counterSequencer) exhaust() { s.n = MaxSequence + 1 }

func (s *counterSequencer) used() int { return int(s.n) }
